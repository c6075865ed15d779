package domain

import (
	"sort"
	"time"
)

const (
	// DefaultWeekStart is the weekday on which weekly buckets begin.
	DefaultWeekStart = time.Monday

	// DefaultWeekOffsetDays shifts the bucket label relative to the week
	// start. Revisions of the upstream dashboard used 0 and -1.
	DefaultWeekOffsetDays = 0
)

// WeekAnchor maps sample dates onto week-start dates.
type WeekAnchor struct {
	// Start is the first day of each bucket.
	Start time.Weekday
	// OffsetDays is added to the computed start to form the bucket label.
	// It does not change which samples share a bucket.
	OffsetDays int
}

// DefaultWeekAnchor returns the Monday-anchored, unshifted anchor.
func DefaultWeekAnchor() WeekAnchor {
	return WeekAnchor{Start: DefaultWeekStart, OffsetDays: DefaultWeekOffsetDays}
}

// WeekStart returns the bucket label for t: midnight UTC of the most recent
// Start weekday on or before t's date, shifted by OffsetDays.
func (a WeekAnchor) WeekStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	back := (int(day.Weekday()) - int(a.Start) + 7) % 7
	return day.AddDate(0, 0, -back+a.OffsetDays)
}

type bucketKey struct {
	site string
	week int64
}

type bucketAcc struct {
	bucket WeeklyBucket
	values map[Field][]float64
}

// Aggregate groups samples by (site, week) and averages each field over its
// non-nil values. The result is sorted by site code then week start and does
// not depend on the order of samples.
func Aggregate(samples []CleanedSample, anchor WeekAnchor) []WeeklyBucket {
	groups := make(map[bucketKey]*bucketAcc)

	for _, s := range samples {
		week := anchor.WeekStart(s.Timestamp)
		key := bucketKey{site: s.SiteCode, week: week.Unix()}
		acc, ok := groups[key]
		if !ok {
			acc = &bucketAcc{
				bucket: WeeklyBucket{SiteCode: s.SiteCode, WeekStart: week},
				values: make(map[Field][]float64, len(Fields)),
			}
			groups[key] = acc
		}
		acc.bucket.SampleCount++
		for _, f := range Fields {
			if v := s.Value(f); v != nil {
				acc.values[f] = append(acc.values[f], *v)
				if s.Censored.Has(f) {
					acc.bucket.Censored = acc.bucket.Censored.With(f)
				}
			}
		}
	}

	out := make([]WeeklyBucket, 0, len(groups))
	for _, acc := range groups {
		b := acc.bucket
		for _, f := range Fields {
			b.set(f, mean(acc.values[f]))
		}
		out = append(out, b)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].SiteCode != out[j].SiteCode {
			return out[i].SiteCode < out[j].SiteCode
		}
		return out[i].WeekStart.Before(out[j].WeekStart)
	})
	return out
}

// mean sums in sorted order so the float result is identical for any
// permutation of the input.
func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	m := sum / float64(len(sorted))
	return &m
}

// GroupBySite splits sorted buckets into per-site ascending series.
func GroupBySite(buckets []WeeklyBucket) map[string][]WeeklyBucket {
	out := make(map[string][]WeeklyBucket)
	for _, b := range buckets {
		out[b.SiteCode] = append(out[b.SiteCode], b)
	}
	for code := range out {
		series := out[code]
		sort.Slice(series, func(i, j int) bool {
			return series[i].WeekStart.Before(series[j].WeekStart)
		})
	}
	return out
}

// Summarize returns one summary per catalog site, in catalog order. Latest
// is the bucket with the greatest week start, or nil when the site has none.
func Summarize(catalog *Catalog, buckets []WeeklyBucket) []SiteSummary {
	latest := make(map[string]WeeklyBucket)
	for _, b := range buckets {
		cur, ok := latest[b.SiteCode]
		if !ok || b.WeekStart.After(cur.WeekStart) {
			latest[b.SiteCode] = b
		}
	}

	sites := catalog.All()
	out := make([]SiteSummary, len(sites))
	for i, site := range sites {
		out[i] = SiteSummary{Site: site}
		if b, ok := latest[site.Code]; ok {
			b := b
			out[i].Latest = &b
		}
	}
	return out
}
