package query

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/couchcryptid/creek-quality-service/internal/domain"
)

// Direction summarizes the sign of a trend.
type Direction string

const (
	DirectionIncreasing Direction = "increasing"
	DirectionDecreasing Direction = "decreasing"
	DirectionStable     Direction = "stable"
)

// TrendPoint is one week of a trend series.
type TrendPoint struct {
	WeekStart time.Time     `json:"week_start"`
	Value     float64       `json:"value"`
	Censored  bool          `json:"censored,omitempty"`
	Status    domain.Status `json:"status"`
}

// Trend is a site's recent weekly series for one field.
type Trend struct {
	Site          domain.CanonicalSite `json:"site"`
	Field         domain.Field         `json:"field"`
	Points        []TrendPoint         `json:"points"`
	First         float64              `json:"first"`
	Last          float64              `json:"last"`
	Delta         float64              `json:"delta"`
	ChangePercent *float64             `json:"change_percent"`
	Direction     Direction            `json:"direction"`
}

// Trend returns the most recent windowCount weekly values of field for the
// site in ascending week order. Weeks without a value for the field are
// skipped. Fewer than two points is ErrInsufficientData.
func (s *Service) Trend(site string, field domain.Field, windowCount int) (Trend, error) {
	info, ok := domain.Measurement(field)
	if !ok {
		return Trend{}, fmt.Errorf("%q: %w", field, ErrUnknownField)
	}
	if windowCount <= 0 {
		windowCount = DefaultTrendWindows
	}

	snap, err := s.Snapshot()
	if err != nil {
		return Trend{}, err
	}
	canonical, ok := snap.Catalog.Find(site)
	if !ok {
		return Trend{}, fmt.Errorf("site %q: %w", site, ErrNotFound)
	}

	var points []TrendPoint
	for _, b := range snap.Series(canonical.Code) {
		r := s.reading(field, b)
		if r.Value == nil {
			continue
		}
		points = append(points, TrendPoint{
			WeekStart: b.WeekStart,
			Value:     *r.Value,
			Censored:  r.Censored,
			Status:    r.Status,
		})
	}
	if len(points) > windowCount {
		points = points[len(points)-windowCount:]
	}
	if len(points) < 2 {
		return Trend{}, fmt.Errorf("trend for %s %s needs 2 weeks, have %d: %w",
			canonical.Code, field, len(points), ErrInsufficientData)
	}

	first, last := points[0].Value, points[len(points)-1].Value
	delta := last - first
	return Trend{
		Site:          canonical,
		Field:         field,
		Points:        points,
		First:         first,
		Last:          last,
		Delta:         delta,
		ChangePercent: changePercent(first, last),
		Direction:     direction(delta, info.StableBand),
	}, nil
}

// changePercent is (last-first)/first as a percentage rounded to one
// decimal place, or nil when first is zero.
func changePercent(first, last float64) *float64 {
	if first == 0 {
		return nil
	}
	f := decimal.NewFromFloat(first)
	pct := decimal.NewFromFloat(last).Sub(f).Div(f).Mul(decimal.NewFromInt(100)).Round(1)
	v, _ := pct.Float64()
	return &v
}

func direction(delta, band float64) Direction {
	switch {
	case delta > band:
		return DirectionIncreasing
	case delta < -band:
		return DirectionDecreasing
	default:
		return DirectionStable
	}
}
