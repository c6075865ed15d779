package domain

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// SnapshotOptions configures a refresh.
type SnapshotOptions struct {
	Anchor WeekAnchor
	Logger *slog.Logger
}

// Snapshot is the immutable aggregate state produced by one refresh.
type Snapshot struct {
	ID        uuid.UUID
	BuiltAt   time.Time
	Catalog   *Catalog
	Anchor    WeekAnchor
	Buckets   map[string][]WeeklyBucket // ascending by week start
	Summaries []SiteSummary             // catalog order
	Stats     IngestStats
}

// BuildSnapshot runs ingestion, cleaning and aggregation over the complete
// raw input. It never fails: bad rows are counted in Stats.
func BuildSnapshot(catalog *Catalog, rows []RawSample, opts SnapshotOptions) *Snapshot {
	samples, stats := Ingest(catalog, rows, opts.Logger)
	buckets := Aggregate(samples, opts.Anchor)

	return &Snapshot{
		ID:        uuid.New(),
		BuiltAt:   clock.Now().UTC(),
		Catalog:   catalog,
		Anchor:    opts.Anchor,
		Buckets:   GroupBySite(buckets),
		Summaries: Summarize(catalog, buckets),
		Stats:     stats,
	}
}

// Summary returns the summary for a catalog site.
func (s *Snapshot) Summary(code string) (SiteSummary, bool) {
	i := s.Catalog.position(NormalizeCode(code))
	if i < 0 {
		return SiteSummary{}, false
	}
	return s.Summaries[i], true
}

// Series returns the site's buckets in ascending week order.
func (s *Snapshot) Series(code string) []WeeklyBucket {
	return s.Buckets[NormalizeCode(code)]
}
