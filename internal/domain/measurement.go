package domain

// MeasurementInfo describes a field for presentation collaborators.
type MeasurementInfo struct {
	Field          Field   `json:"field"`
	Name           string  `json:"name"`
	Unit           string  `json:"unit"`
	Description    string  `json:"description"`
	Standard       string  `json:"standard"`
	Interpretation string  `json:"interpretation"`
	StableBand     float64 `json:"stable_band"`
}

var measurements = map[Field]MeasurementInfo{
	FieldTotalColiform: {
		Field:          FieldTotalColiform,
		Name:           "Total coliform",
		Unit:           "MPN/100 mL",
		Description:    "Total coliform bacteria indicate general bacterial contamination.",
		Standard:       "none",
		Interpretation: "Lower values indicate cleaner water. Counts above the method limit are reported as >N.",
	},
	FieldEcoli: {
		Field:          FieldEcoli,
		Name:           "E. coli concentration",
		Unit:           "MPN/100 mL",
		Description:    "Escherichia coli indicates fecal contamination in water.",
		Standard:       "1000 MPN/100 mL",
		Interpretation: "Lower values indicate cleaner water. Values at or above 1000 MPN/100 mL exceed the EPA standard.",
	},
	FieldPH: {
		Field:          FieldPH,
		Name:           "pH",
		Unit:           "pH units",
		Description:    "pH measures how acidic or basic the water is on a scale of 0-14.",
		Standard:       "6.5-8.5",
		Interpretation: "7.0 is neutral. Natural streams typically range from 6.5 to 8.5.",
		StableBand:     0.5,
	},
	FieldTurbidity: {
		Field:          FieldTurbidity,
		Name:           "Turbidity",
		Unit:           "NTU",
		Description:    "Turbidity measures water clarity and the amount of suspended particles.",
		Standard:       "varies by water body type",
		Interpretation: "Lower values indicate clearer water. Values above 10 NTU may indicate runoff or erosion.",
		StableBand:     5,
	},
}

// Measurement returns the description of f.
func Measurement(f Field) (MeasurementInfo, bool) {
	info, ok := measurements[f]
	return info, ok
}
