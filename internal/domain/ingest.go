package domain

import (
	"log/slog"
)

// IngestStats counts what happened to each feed row during a refresh.
type IngestStats struct {
	Rows         int `json:"rows"`
	Accepted     int `json:"accepted"`
	Unmatched    int `json:"unmatched"`
	Ambiguous    int `json:"ambiguous"`
	BadTimestamp int `json:"bad_timestamp"`
	NullFields   int `json:"null_fields"`
}

// Dropped is the number of rows that did not reach the aggregate.
func (s IngestStats) Dropped() int {
	return s.Unmatched + s.BadTimestamp
}

// Ingest resolves and cleans raw rows. Unknown site labels and unparsable
// timestamps drop the row; nothing here returns an error so a fully
// malformed feed still yields an (empty) result.
func Ingest(catalog *Catalog, rows []RawSample, logger *slog.Logger) ([]CleanedSample, IngestStats) {
	matcher := NewSiteMatcher(catalog)
	stats := IngestStats{Rows: len(rows)}
	out := make([]CleanedSample, 0, len(rows))

	for i, row := range rows {
		match, ok := matcher.Resolve(row.SiteToken)
		if !ok {
			stats.Unmatched++
			continue
		}
		if match.Ambiguous {
			stats.Ambiguous++
			if logger != nil {
				logger.Warn("ambiguous site label, using longest match",
					"row", i,
					"label", row.SiteToken,
					"site", match.Code,
					"candidates", match.Candidates,
				)
			}
		}

		sample, ok := CleanSample(match.Code, row)
		if !ok {
			stats.BadTimestamp++
			continue
		}
		for _, f := range Fields {
			if row.field(f) != nil && sample.Value(f) == nil {
				stats.NullFields++
			}
		}

		out = append(out, sample)
	}

	stats.Accepted = len(out)
	return out, stats
}
