package domain

import (
	"fmt"
	"time"

	"github.com/SscSPs/rates_tracker_app/internal/apperrors"
)

// DateLayout is the wire and storage format of an effective date.
const DateLayout = "2006-01-02"

// MaxRangeDays is the longest inclusive span the upstream accepts in one range request.
const MaxRangeDays = 93

// ParseDate parses a YYYY-MM-DD string into a calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", apperrors.ErrValidation, s)
	}
	return t, nil
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DateOf drops the clock part of t, keeping the calendar date t has in its own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateRange is an inclusive [Start, End] span of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange builds a range, rejecting an end before the start.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: DateOf(start), End: DateOf(end)}
	if r.End.Before(r.Start) {
		return DateRange{}, fmt.Errorf("%w: end date %s is before start date %s",
			apperrors.ErrValidation, FormatDate(r.End), FormatDate(r.Start))
	}
	return r, nil
}

// Days is the number of calendar days in the range, never less than 1.
func (r DateRange) Days() int {
	days := int(r.End.Sub(r.Start).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

// ExpectedBusinessDays estimates the trading days in the range as ceil(days*5/7).
func (r DateRange) ExpectedBusinessDays() int {
	return (r.Days()*5 + 6) / 7
}

// MinimumCoverage is the stored-point count at which the range is served from
// storage: ceil(0.7 * ExpectedBusinessDays).
func (r DateRange) MinimumCoverage() int {
	return (r.ExpectedBusinessDays()*7 + 9) / 10
}

// HasSufficientCoverage reports whether count stored points are enough to
// answer the range without going upstream.
func (r DateRange) HasSufficientCoverage(count int) bool {
	return count > 0 && count >= r.MinimumCoverage()
}

// CheckSpan rejects ranges the upstream would refuse.
func (r DateRange) CheckSpan() error {
	if r.Days() > MaxRangeDays {
		return fmt.Errorf("%w: %d days requested, at most %d allowed", apperrors.ErrRangeTooLarge, r.Days(), MaxRangeDays)
	}
	return nil
}

func (r DateRange) String() string {
	return FormatDate(r.Start) + ":" + FormatDate(r.End)
}
