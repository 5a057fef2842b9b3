package dto

import (
	"time"

	"github.com/SscSPs/rates_tracker_app/internal/core/domain"
	"github.com/go-playground/validator/v10"
)

// NBPDateTag validates a YYYY-MM-DD date the upstream can have a fixing for:
// after EarliestDate and not after today.
const NBPDateTag = "nbpdate"

// EarliestDate is the first day after which upstream publishes fixings.
var EarliestDate = time.Date(2002, 1, 1, 0, 0, 0, 0, time.UTC)

// RegisterValidators adds the custom tags to v. "today" is taken in loc.
func RegisterValidators(v *validator.Validate, loc *time.Location, now func() time.Time) error {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return v.RegisterValidation(NBPDateTag, func(fl validator.FieldLevel) bool {
		d, err := domain.ParseDate(fl.Field().String())
		if err != nil {
			return false
		}
		today := domain.DateOf(now().In(loc))
		return d.After(EarliestDate) && !d.After(today)
	})
}
