package nbp

import (
	"strings"

	"github.com/SscSPs/rates_tracker_app/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

type seriesKind int

const (
	seriesEmpty seriesKind = iota
	seriesValid
)

// series is a validated upstream answer. An empty series carries no points
// and stands for "malformed or not usable".
type series struct {
	kind   seriesKind
	name   string
	points []domain.RatePoint
}

func emptySeries() series { return series{kind: seriesEmpty} }

func (s series) first() (*domain.RatePoint, bool) {
	if s.kind != seriesValid || len(s.points) == 0 {
		return nil, false
	}
	p := s.points[0]
	return &p, true
}

func (s series) last() (*domain.RatePoint, bool) {
	if s.kind != seriesValid || len(s.points) == 0 {
		return nil, false
	}
	p := s.points[len(s.points)-1]
	return &p, true
}

// numeric accepts a JSON number or a string holding one.
func numeric(r gjson.Result) (decimal.Decimal, bool) {
	switch r.Type {
	case gjson.Number:
		d, err := decimal.NewFromString(r.Raw)
		return d, err == nil
	case gjson.String:
		d, err := decimal.NewFromString(strings.TrimSpace(r.Str))
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

func pointOn(r gjson.Result) (domain.RatePoint, bool) {
	if r.Type != gjson.String {
		return domain.RatePoint{}, false
	}
	d, err := domain.ParseDate(r.Str)
	if err != nil {
		return domain.RatePoint{}, false
	}
	return domain.RatePoint{EffectiveDate: d}, true
}

// parseRateSeries validates an /exchangerates/rates answer:
//
//	{"table":"A","currency":"dolar amerykański","code":"USD",
//	 "rates":[{"no":"004/A/NBP/2024","effectiveDate":"2024-01-05","mid":3.9850}]}
//
// The whole answer is rejected when the envelope is malformed or names
// another code; individual malformed rates are dropped.
func parseRateSeries(body []byte, inst domain.Instrument) series {
	if !gjson.ValidBytes(body) {
		return emptySeries()
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return emptySeries()
	}
	code, name, rates := root.Get("code"), root.Get("currency"), root.Get("rates")
	if code.Type != gjson.String || name.Type != gjson.String || !rates.IsArray() {
		return emptySeries()
	}
	if !strings.EqualFold(code.Str, inst.Code) {
		return emptySeries()
	}

	out := series{kind: seriesValid, name: name.Str}
	for _, r := range rates.Array() {
		if !r.IsObject() {
			continue
		}
		value, ok := numeric(r.Get("mid"))
		if !ok {
			continue
		}
		p, ok := pointOn(r.Get("effectiveDate"))
		if !ok {
			continue
		}
		p.InstrumentCode = domain.NormalizeCode(code.Str)
		p.Category = inst.Category
		p.Value = domain.RoundValue(value)
		if no := r.Get("no"); no.Type == gjson.String {
			p.TableNo = no.Str
		}
		out.points = append(out.points, p)
	}
	domain.SortRatePoints(out.points)
	return out
}

// parseGoldSeries validates a /cenyzlota answer: [{"data":"2024-01-05","cena":254.03}].
func parseGoldSeries(body []byte) series {
	if !gjson.ValidBytes(body) {
		return emptySeries()
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return emptySeries()
	}
	out := series{kind: seriesValid, name: domain.GoldInstrument().Name}
	for _, r := range root.Array() {
		if !r.IsObject() {
			continue
		}
		value, ok := numeric(r.Get("cena"))
		if !ok {
			continue
		}
		p, ok := pointOn(r.Get("data"))
		if !ok {
			continue
		}
		p.InstrumentCode = domain.GoldCode
		p.Category = domain.CategoryGold
		p.Value = domain.RoundValue(value)
		out.points = append(out.points, p)
	}
	domain.SortRatePoints(out.points)
	return out
}

// parseTable validates an /exchangerates/tables answer:
//
//	[{"table":"A","no":"...","effectiveDate":"...","rates":[{"currency":"bat (Tajlandia)","code":"THB","mid":0.1144}]}]
func parseTable(body []byte, category string) []domain.Instrument {
	if !gjson.ValidBytes(body) {
		return nil
	}
	rates := gjson.GetBytes(body, "0.rates")
	if !rates.IsArray() {
		return nil
	}
	var out []domain.Instrument
	for _, r := range rates.Array() {
		code, name := r.Get("code"), r.Get("currency")
		if code.Type != gjson.String || name.Type != gjson.String || code.Str == "" {
			continue
		}
		out = append(out, domain.Instrument{
			Code:     domain.NormalizeCode(code.Str),
			Name:     name.Str,
			Category: category,
		})
	}
	return out
}
