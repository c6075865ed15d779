package nearest

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/creek-quality-service/internal/domain"
	"github.com/couchcryptid/creek-quality-service/internal/observability"
)

// SnapshotSource yields the snapshot currently being served.
type SnapshotSource interface {
	Snapshot() (*domain.Snapshot, error)
}

// Finder resolves against the catalog of the current snapshot, so a
// refreshed catalog takes effect on the next request.
type Finder struct {
	router    domain.Router
	snapshots SnapshotSource
	opts      Options
	logger    *slog.Logger
	metrics   *observability.Metrics
}

func NewFinder(router domain.Router, snapshots SnapshotSource, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Finder {
	return &Finder{router: router, snapshots: snapshots, opts: opts, logger: logger, metrics: metrics}
}

// Nearest returns the closest site to origin. It fails with the snapshot
// source's error when no snapshot has been built yet.
func (f *Finder) Nearest(ctx context.Context, origin string) (domain.NearestSiteResult, error) {
	snap, err := f.snapshots.Snapshot()
	if err != nil {
		return domain.NearestSiteResult{}, err
	}
	return NewResolver(f.router, snap.Catalog, f.opts, f.logger, f.metrics).Resolve(ctx, origin)
}
