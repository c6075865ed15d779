package domain

// Status annotates a measurement against a reference threshold.
type Status string

const (
	StatusAbove  Status = "above"
	StatusBelow  Status = "below"
	StatusWithin Status = "within"
	// StatusInconclusive marks a censored lower bound that sits below an
	// upper limit: the true value is at least the bound and may exceed it.
	StatusInconclusive Status = "inconclusive"
	StatusUnknown      Status = "unknown"
)

// EPA recreational-water reference values used by the upstream dashboard.
const (
	DefaultEcoliThreshold     = 1000.0 // MPN/100 mL
	DefaultPHMin              = 6.5
	DefaultPHMax              = 8.5
	DefaultTurbidityThreshold = 10.0 // NTU
)

// Limit is an inclusive reference band. A nil bound is open.
type Limit struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Thresholds holds the reference limit per field.
type Thresholds map[Field]Limit

// DefaultThresholds returns the standards quoted on the dashboard.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FieldEcoli:     {Max: ptr(DefaultEcoliThreshold)},
		FieldPH:        {Min: ptr(DefaultPHMin), Max: ptr(DefaultPHMax)},
		FieldTurbidity: {Max: ptr(DefaultTurbidityThreshold)},
	}
}

// Classify tags v against the limit for f without changing it. An upper
// limit is breached at or above Max, matching the ">= 1000" rule used for
// E. coli. A censored value is a lower bound on the true value.
func (t Thresholds) Classify(f Field, v *float64, censored bool) Status {
	if v == nil {
		return StatusUnknown
	}
	limit, ok := t[f]
	if !ok || (limit.Min == nil && limit.Max == nil) {
		return StatusUnknown
	}

	x := *v
	if limit.Max != nil && x >= *limit.Max {
		return StatusAbove
	}
	if limit.Min != nil && x < *limit.Min {
		if censored {
			return StatusInconclusive
		}
		return StatusBelow
	}
	if censored && limit.Max != nil {
		return StatusInconclusive
	}
	if limit.Min != nil && limit.Max != nil {
		return StatusWithin
	}
	if limit.Max != nil {
		return StatusBelow
	}
	return StatusAbove
}

func ptr(v float64) *float64 { return &v }
