// Package query serves read-only views over the current aggregate snapshot.
package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/creek-quality-service/internal/domain"
)

var (
	ErrNotReady         = errors.New("no snapshot loaded yet")
	ErrNotFound         = errors.New("site not found")
	ErrInsufficientData = errors.New("insufficient data")
	ErrUnknownField     = errors.New("unknown measurement")
)

// DefaultTrendWindows is the number of weekly buckets a trend covers when
// the caller does not say.
const DefaultTrendWindows = 8

// Service answers summary, trend and comparison queries. The snapshot is
// swapped atomically by the refresher; each query reads one snapshot.
type Service struct {
	current    atomic.Pointer[domain.Snapshot]
	thresholds domain.Thresholds
}

// NewService creates a Service that annotates values with thresholds.
func NewService(thresholds domain.Thresholds) *Service {
	if thresholds == nil {
		thresholds = domain.Thresholds{}
	}
	return &Service{thresholds: thresholds}
}

// Swap installs snap as the current snapshot and returns the previous one.
func (s *Service) Swap(snap *domain.Snapshot) *domain.Snapshot {
	return s.current.Swap(snap)
}

// Snapshot returns the current snapshot.
func (s *Service) Snapshot() (*domain.Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNotReady
	}
	return snap, nil
}

// CheckReadiness reports an error until the first snapshot is installed.
func (s *Service) CheckReadiness(_ context.Context) error {
	_, err := s.Snapshot()
	return err
}

// Thresholds returns the configured reference limits.
func (s *Service) Thresholds() domain.Thresholds {
	return s.thresholds
}

// Reading is one field's latest value with its threshold annotation.
type Reading struct {
	Field    domain.Field  `json:"field"`
	Value    *float64      `json:"value"`
	Censored bool          `json:"censored,omitempty"`
	Status   domain.Status `json:"status"`
}

// SiteReport is a SiteSummary plus annotated readings of its latest bucket.
type SiteReport struct {
	domain.SiteSummary
	Readings []Reading `json:"readings,omitempty"`
}

// Sites lists the catalog in load order.
func (s *Service) Sites() ([]domain.CanonicalSite, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Catalog.All(), nil
}

// Summary returns the latest state of a site, looked up by code or display
// name. A known site without samples has a nil Latest and no error.
func (s *Service) Summary(site string) (SiteReport, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return SiteReport{}, err
	}
	canonical, ok := snap.Catalog.Find(site)
	if !ok {
		return SiteReport{}, fmt.Errorf("site %q: %w", site, ErrNotFound)
	}
	summary, _ := snap.Summary(canonical.Code)
	return s.report(summary), nil
}

func (s *Service) report(summary domain.SiteSummary) SiteReport {
	r := SiteReport{SiteSummary: summary}
	if summary.Latest == nil {
		return r
	}
	r.Readings = make([]Reading, 0, len(domain.Fields))
	for _, f := range domain.Fields {
		r.Readings = append(r.Readings, s.reading(f, *summary.Latest))
	}
	return r
}

func (s *Service) reading(f domain.Field, b domain.WeeklyBucket) Reading {
	v := b.Value(f)
	censored := b.Censored.Has(f)
	return Reading{
		Field:    f,
		Value:    v,
		Censored: censored,
		Status:   s.thresholds.Classify(f, v, censored),
	}
}

// Overview is the dashboard-wide summary of the latest readings.
type Overview struct {
	SnapshotID    string                 `json:"snapshot_id"`
	BuiltAt       time.Time              `json:"built_at"`
	Sites         []SiteReport           `json:"sites"`
	NoData        []domain.CanonicalSite `json:"no_data"`
	AboveStandard []string               `json:"above_standard"`
	Stats         domain.IngestStats     `json:"ingest"`
}

// Overview returns the latest readings for every site with data and the
// codes of sites whose latest E. coli value breaches the standard.
func (s *Service) Overview() (Overview, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return Overview{}, err
	}

	out := Overview{
		SnapshotID:    snap.ID.String(),
		BuiltAt:       snap.BuiltAt,
		Sites:         []SiteReport{},
		NoData:        []domain.CanonicalSite{},
		AboveStandard: []string{},
		Stats:         snap.Stats,
	}
	for _, summary := range snap.Summaries {
		if summary.Latest == nil {
			out.NoData = append(out.NoData, summary.Site)
			continue
		}
		r := s.report(summary)
		out.Sites = append(out.Sites, r)
		if s.reading(domain.FieldEcoli, *summary.Latest).Status == domain.StatusAbove {
			out.AboveStandard = append(out.AboveStandard, summary.Site.Code)
		}
	}
	return out, nil
}

// RankedSite is one row of a cross-site comparison.
type RankedSite struct {
	Rank      int                  `json:"rank"`
	Site      domain.CanonicalSite `json:"site"`
	Value     float64              `json:"value"`
	WeekStart time.Time            `json:"week_start"`
	Censored  bool                 `json:"censored,omitempty"`
	Status    domain.Status        `json:"status"`
}

// Comparison ranks sites by their latest value of one field.
type Comparison struct {
	Field   domain.Field           `json:"field"`
	Ranking []RankedSite           `json:"ranking"`
	NoData  []domain.CanonicalSite `json:"no_data"`
}

// Compare ranks sites by the field's value in their latest bucket, highest
// first; ties keep catalog order. Sites whose latest bucket lacks the field
// are listed under NoData rather than ranked.
func (s *Service) Compare(field domain.Field) (Comparison, error) {
	if _, ok := domain.Measurement(field); !ok {
		return Comparison{}, fmt.Errorf("%q: %w", field, ErrUnknownField)
	}
	snap, err := s.Snapshot()
	if err != nil {
		return Comparison{}, err
	}

	out := Comparison{Field: field, Ranking: []RankedSite{}, NoData: []domain.CanonicalSite{}}
	for _, summary := range snap.Summaries {
		if summary.Latest == nil || summary.Latest.Value(field) == nil {
			out.NoData = append(out.NoData, summary.Site)
			continue
		}
		r := s.reading(field, *summary.Latest)
		out.Ranking = append(out.Ranking, RankedSite{
			Site:      summary.Site,
			Value:     *r.Value,
			WeekStart: summary.Latest.WeekStart,
			Censored:  r.Censored,
			Status:    r.Status,
		})
	}

	sort.SliceStable(out.Ranking, func(i, j int) bool {
		return out.Ranking[i].Value > out.Ranking[j].Value
	})
	for i := range out.Ranking {
		out.Ranking[i].Rank = i + 1
	}
	return out, nil
}

// MeasurementInfo describes a field together with its configured limit.
type MeasurementInfo struct {
	domain.MeasurementInfo
	Limit *domain.Limit `json:"limit,omitempty"`
}

// Measurement returns the description of field.
func (s *Service) Measurement(field domain.Field) (MeasurementInfo, error) {
	info, ok := domain.Measurement(field)
	if !ok {
		return MeasurementInfo{}, fmt.Errorf("%q: %w", field, ErrUnknownField)
	}
	out := MeasurementInfo{MeasurementInfo: info}
	if limit, ok := s.thresholds[field]; ok {
		out.Limit = &limit
	}
	return out, nil
}
