package domain

import (
	"fmt"
	"strings"
	"time"
)

// Field identifies one of the measured water-quality parameters.
type Field string

const (
	FieldTotalColiform Field = "total_coliform"
	FieldEcoli         Field = "ecoli"
	FieldPH            Field = "ph"
	FieldTurbidity     Field = "turbidity"
)

// Fields lists every measured field in display order.
var Fields = []Field{FieldTotalColiform, FieldEcoli, FieldPH, FieldTurbidity}

// fieldAliases maps feed column names and user spellings onto a Field.
// "tubidity" is the spelling used by the upstream spreadsheet.
var fieldAliases = map[string]Field{
	"total_coliform": FieldTotalColiform,
	"totalcoliform":  FieldTotalColiform,
	"tot_coli_conc":  FieldTotalColiform,
	"tot_coli":       FieldTotalColiform,
	"ecoli":          FieldEcoli,
	"e_coli":         FieldEcoli,
	"ecoli_conc":     FieldEcoli,
	"ph":             FieldPH,
	"turbidity":      FieldTurbidity,
	"tubidity":       FieldTurbidity,
}

// ParseField resolves a field name or alias, case-insensitively.
func ParseField(s string) (Field, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, ".", "")
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")
	if f, ok := fieldAliases[key]; ok {
		return f, nil
	}
	return "", fmt.Errorf("unknown measurement %q", s)
}

// FieldSet is a small bit set of fields.
type FieldSet uint8

func fieldBit(f Field) FieldSet {
	switch f {
	case FieldTotalColiform:
		return 1 << 0
	case FieldEcoli:
		return 1 << 1
	case FieldPH:
		return 1 << 2
	case FieldTurbidity:
		return 1 << 3
	default:
		return 0
	}
}

// With returns the set with f added.
func (s FieldSet) With(f Field) FieldSet { return s | fieldBit(f) }

// Has reports whether f is in the set.
func (s FieldSet) Has(f Field) bool { return s&fieldBit(f) != 0 }

// RawSample is one feed row as text. Nil measurement pointers mean the
// column was absent from the feed.
type RawSample struct {
	SiteToken        string
	Timestamp        string
	TotalColiformRaw *string
	EcoliRaw         *string
	PHRaw            *string
	TurbidityRaw     *string
}

// CleanedSample is a RawSample resolved to a site with typed measurements.
type CleanedSample struct {
	SiteCode      string
	Timestamp     time.Time
	TotalColiform *float64
	Ecoli         *float64
	PH            *float64
	Turbidity     *float64

	// Censored marks fields reported as ">N" in the feed.
	Censored FieldSet
}

// Value returns the measurement for f.
func (s CleanedSample) Value(f Field) *float64 {
	switch f {
	case FieldTotalColiform:
		return s.TotalColiform
	case FieldEcoli:
		return s.Ecoli
	case FieldPH:
		return s.PH
	case FieldTurbidity:
		return s.Turbidity
	default:
		return nil
	}
}

// WeeklyBucket holds one site's averaged readings for one week.
type WeeklyBucket struct {
	SiteCode      string    `json:"site_code"`
	WeekStart     time.Time `json:"week_start"`
	TotalColiform *float64  `json:"total_coliform"`
	Ecoli         *float64  `json:"ecoli"`
	PH            *float64  `json:"ph"`
	Turbidity     *float64  `json:"turbidity"`
	SampleCount   int       `json:"sample_count"`
	Censored      FieldSet  `json:"-"`
}

// Value returns the averaged measurement for f.
func (b WeeklyBucket) Value(f Field) *float64 {
	switch f {
	case FieldTotalColiform:
		return b.TotalColiform
	case FieldEcoli:
		return b.Ecoli
	case FieldPH:
		return b.PH
	case FieldTurbidity:
		return b.Turbidity
	default:
		return nil
	}
}

func (b *WeeklyBucket) set(f Field, v *float64) {
	switch f {
	case FieldTotalColiform:
		b.TotalColiform = v
	case FieldEcoli:
		b.Ecoli = v
	case FieldPH:
		b.PH = v
	case FieldTurbidity:
		b.Turbidity = v
	}
}

// SiteSummary pairs a site with its most recent weekly bucket, if any.
type SiteSummary struct {
	Site   CanonicalSite `json:"site"`
	Latest *WeeklyBucket `json:"latest"`
}
