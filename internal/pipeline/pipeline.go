package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/creek-quality-service/internal/domain"
	"github.com/couchcryptid/creek-quality-service/internal/observability"
)

// SampleSource reads the complete raw sample feed.
type SampleSource interface {
	FetchSamples(ctx context.Context) ([]domain.RawSample, error)
}

// CatalogSource reads the site catalog feed.
type CatalogSource interface {
	FetchCatalog(ctx context.Context) ([]domain.SiteRecord, error)
}

// SnapshotStore receives each freshly built snapshot.
type SnapshotStore interface {
	Swap(snap *domain.Snapshot) *domain.Snapshot
}

// SummaryPublisher emits per-site summaries after a refresh.
type SummaryPublisher interface {
	PublishSummaries(ctx context.Context, snap *domain.Snapshot) (int, error)
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Options configures a Refresher.
type Options struct {
	// Interval between successful refreshes. Zero refreshes once and returns.
	Interval time.Duration
	Anchor   domain.WeekAnchor
	Clock    clockwork.Clock
}

// Refresher rebuilds the snapshot from the feeds and swaps it into the store.
type Refresher struct {
	samples   SampleSource
	catalog   CatalogSource
	store     SnapshotStore
	publisher SummaryPublisher
	opts      Options
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Refresher. Pass a nil publisher to skip summary publication.
func New(samples SampleSource, catalog CatalogSource, store SnapshotStore, publisher SummaryPublisher,
	opts Options, logger *slog.Logger, metrics *observability.Metrics) *Refresher {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Refresher{
		samples:   samples,
		catalog:   catalog,
		store:     store,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run refreshes until the context is cancelled. Failed refreshes are retried
// with exponential backoff; the previous snapshot keeps serving meanwhile.
func (r *Refresher) Run(ctx context.Context) error {
	r.logger.Info("refresher started", "interval", r.opts.Interval)
	r.metrics.RefresherRunning.Set(1)
	defer r.metrics.RefresherRunning.Set(0)

	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			r.logger.Info("refresher stopping", "reason", ctx.Err())
			return nil
		}

		if _, err := r.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Error("refresh failed", "error", err, "retry_in", backoff)
			if !r.sleep(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = initialBackoff

		if r.opts.Interval <= 0 {
			return nil
		}
		if !r.sleep(ctx, r.opts.Interval) {
			r.logger.Info("refresher stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// Refresh performs one full rebuild: fetch both feeds, build the snapshot,
// swap it in and publish summaries.
func (r *Refresher) Refresh(ctx context.Context) (*domain.Snapshot, error) {
	start := r.opts.Clock.Now()

	snap, err := r.build(ctx)
	if err != nil {
		r.metrics.Refreshes.WithLabelValues("error").Inc()
		return nil, err
	}
	r.store.Swap(snap)

	r.metrics.Refreshes.WithLabelValues("success").Inc()
	r.metrics.RefreshDuration.Observe(r.opts.Clock.Since(start).Seconds())
	r.recordStats(snap)

	r.logger.Info("snapshot refreshed",
		"snapshot_id", snap.ID,
		"sites", snap.Catalog.Len(),
		"rows", snap.Stats.Rows,
		"accepted", snap.Stats.Accepted,
		"unmatched", snap.Stats.Unmatched,
		"bad_timestamp", snap.Stats.BadTimestamp,
		"ambiguous", snap.Stats.Ambiguous,
	)

	r.publish(ctx, snap)
	return snap, nil
}

func (r *Refresher) build(ctx context.Context) (*domain.Snapshot, error) {
	records, err := r.catalog.FetchCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	catalog, err := domain.NewCatalog(records)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	rows, err := r.samples.FetchSamples(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch samples: %w", err)
	}
	return domain.BuildSnapshot(catalog, rows, domain.SnapshotOptions{
		Anchor: r.opts.Anchor,
		Logger: r.logger,
	}), nil
}

func (r *Refresher) recordStats(snap *domain.Snapshot) {
	r.metrics.RowsIngested.Add(float64(snap.Stats.Accepted))
	r.metrics.RowsDropped.WithLabelValues("unmatched").Add(float64(snap.Stats.Unmatched))
	r.metrics.RowsDropped.WithLabelValues("bad_timestamp").Add(float64(snap.Stats.BadTimestamp))
	r.metrics.RowsAmbiguous.Add(float64(snap.Stats.Ambiguous))

	withData := 0
	for _, s := range snap.Summaries {
		if s.Latest != nil {
			withData++
		}
	}
	r.metrics.SnapshotSites.Set(float64(withData))
}

// publish failures are logged only; the snapshot is already serving.
func (r *Refresher) publish(ctx context.Context, snap *domain.Snapshot) {
	if r.publisher == nil {
		return
	}
	n, err := r.publisher.PublishSummaries(ctx, snap)
	if err != nil {
		r.logger.Warn("publish summaries failed", "error", err, "snapshot_id", snap.ID)
		return
	}
	r.metrics.SummariesProduced.Add(float64(n))
}

func (r *Refresher) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := r.opts.Clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
