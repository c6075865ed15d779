package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// censorMarker prefixes values the lab reports only as a lower bound,
// e.g. ">2400" when the count exceeds the method's upper detection limit.
const censorMarker = ">"

// sampleTimeLayouts are tried in order when parsing feed timestamps.
var sampleTimeLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04 PM",
	"1/2/06",
	"1/2/06 15:04",
	"2006/01/02",
}

// CleanValue parses a numeric feed field. A leading ">" censoring marker is
// stripped and the bound is used as the value; censored reports whether it
// was present. Empty, malformed, NaN and infinite input yields nil.
func CleanValue(raw string) (value *float64, censored bool) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, censorMarker) {
		censored = true
		s = strings.TrimSpace(strings.TrimPrefix(s, censorMarker))
	}
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return nil, censored
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, censored
	}
	return &v, censored
}

// FormatValue renders a cleaned value so that CleanValue(FormatValue(v))
// returns v exactly.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseSampleTime parses a feed timestamp and normalizes it to midnight UTC
// of its calendar date.
func ParseSampleTime(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range sampleTimeLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// CleanSample converts a raw row already resolved to siteCode. ok is false
// when the timestamp cannot be parsed; measurement failures only nil the
// affected field.
func CleanSample(siteCode string, raw RawSample) (CleanedSample, bool) {
	ts, ok := ParseSampleTime(raw.Timestamp)
	if !ok {
		return CleanedSample{}, false
	}

	out := CleanedSample{SiteCode: siteCode, Timestamp: ts}
	for _, f := range Fields {
		src := raw.field(f)
		if src == nil {
			continue
		}
		v, censored := CleanValue(*src)
		switch f {
		case FieldTotalColiform:
			out.TotalColiform = v
		case FieldEcoli:
			out.Ecoli = v
		case FieldPH:
			out.PH = v
		case FieldTurbidity:
			out.Turbidity = v
		}
		if censored && v != nil {
			out.Censored = out.Censored.With(f)
		}
	}
	return out, true
}

func (r RawSample) field(f Field) *string {
	switch f {
	case FieldTotalColiform:
		return r.TotalColiformRaw
	case FieldEcoli:
		return r.EcoliRaw
	case FieldPH:
		return r.PHRaw
	case FieldTurbidity:
		return r.TurbidityRaw
	default:
		return nil
	}
}
