// Package nearest finds the catalog site with the shortest walking route
// from a free-text origin.
package nearest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/creek-quality-service/internal/domain"
	"github.com/couchcryptid/creek-quality-service/internal/observability"
)

// ErrInvalidOrigin is returned for an empty or blank origin.
var ErrInvalidOrigin = errors.New("origin must not be empty")

// Options tunes the fan-out.
type Options struct {
	// Workers bounds concurrent routing requests. Values below 1 mean 1.
	Workers int
	// CallTimeout bounds each routing request. Zero means no per-call limit.
	CallTimeout time.Duration
	// NearZeroMeters stops launching further sites once a route this short
	// is found and cancels later in-flight sites. Later routes that already
	// completed still count, so a strictly shorter one is never discarded.
	// Zero only short-circuits on an exact zero distance.
	NearZeroMeters float64
}

// Resolver computes the nearest site over a fixed catalog.
type Resolver struct {
	router  domain.Router
	sites   []domain.CanonicalSite
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewResolver creates a Resolver over the catalog's sites.
func NewResolver(router domain.Router, catalog *domain.Catalog, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Resolver {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Resolver{
		router:  router,
		sites:   catalog.All(),
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
}

type outcome struct {
	route domain.Route
	err   error
	done  bool
}

// Resolve routes from origin to every catalog site and returns the closest
// by walking distance. Sites whose request fails are skipped. Ties keep the
// site that comes first in the catalog.
func (r *Resolver) Resolve(ctx context.Context, origin string) (domain.NearestSiteResult, error) {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return domain.NearestSiteResult{}, ErrInvalidOrigin
	}

	start := time.Now()
	defer func() { r.metrics.NearestDuration.Observe(time.Since(start).Seconds()) }()

	results, err := r.fanOut(ctx, origin)
	if err != nil {
		return domain.NearestSiteResult{}, err
	}
	return r.fold(origin, results)
}

// fanOut issues one request per site. Each site's context is cancelled when
// an earlier site reaches the near-zero distance; earlier sites keep running
// so the catalog-order tie-break stays intact. Later sites that already
// answered are kept.
func (r *Resolver) fanOut(ctx context.Context, origin string) ([]outcome, error) {
	results := make([]outcome, len(r.sites))
	cancels := make([]context.CancelFunc, len(r.sites))

	var (
		mu     sync.Mutex
		cutoff = len(r.sites) // index of the earliest near-zero site
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	for i := range r.sites {
		if gctx.Err() != nil {
			break
		}
		mu.Lock()
		if i >= cutoff {
			mu.Unlock()
			break
		}
		siteCtx, cancel := context.WithCancel(gctx)
		cancels[i] = cancel
		mu.Unlock()

		g.Go(func() error {
			defer cancel()
			route, err := r.route(siteCtx, origin, r.sites[i])
			if errors.Is(err, domain.ErrRoutingUnauthorized) {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if i > cutoff && err != nil {
				return nil
			}
			results[i] = outcome{route: route, err: err, done: true}
			if err == nil && i < cutoff && route.DistanceMeters <= r.opts.NearZeroMeters {
				cutoff = i
				for j := i + 1; j < len(cancels); j++ {
					if cancels[j] != nil {
						cancels[j]()
					}
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		r.logger.Error("routing provider rejected credentials", "error", err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("resolve nearest site: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	// Later sites that failed, mostly by cancellation, are dropped. Later
	// routes that completed are kept: fold only lets them win when strictly
	// shorter than the near-zero site.
	for j := cutoff + 1; j < len(results); j++ {
		if results[j].err != nil {
			results[j] = outcome{}
		}
	}
	return results, nil
}

func (r *Resolver) route(ctx context.Context, origin string, site domain.CanonicalSite) (domain.Route, error) {
	if r.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.CallTimeout)
		defer cancel()
	}

	route, err := r.router.Route(ctx, origin, site.Coordinates(), domain.ModeWalking)
	switch {
	case err == nil:
		r.metrics.RouteRequests.WithLabelValues("success").Inc()
	case errors.Is(err, domain.ErrNoRoute):
		r.metrics.RouteRequests.WithLabelValues("no_route").Inc()
	default:
		r.metrics.RouteRequests.WithLabelValues("error").Inc()
	}
	return route, err
}

// fold picks the strictly shortest route in catalog order.
func (r *Resolver) fold(origin string, results []outcome) (domain.NearestSiteResult, error) {
	best := -1
	failures, unavailable := 0, 0
	for i, res := range results {
		if !res.done {
			continue
		}
		if res.err != nil {
			failures++
			if errors.Is(res.err, domain.ErrRoutingUnavailable) {
				unavailable++
			}
			r.logger.Debug("skipping site without route",
				"site", r.sites[i].Code, "error", res.err)
			continue
		}
		if best < 0 || res.route.DistanceMeters < results[best].route.DistanceMeters {
			best = i
		}
	}

	if best < 0 {
		if failures > 0 && unavailable == failures {
			r.logger.Warn("routing unavailable for every site", "origin", origin, "sites", failures)
			return domain.NearestSiteResult{}, fmt.Errorf("resolve nearest site: %w", domain.ErrRoutingUnavailable)
		}
		return domain.NearestSiteResult{Found: false}, nil
	}

	site := r.sites[best]
	distance := results[best].route.DistanceMeters
	duration := results[best].route.DurationSeconds
	return domain.NearestSiteResult{
		Site:            &site,
		DistanceMeters:  &distance,
		DurationSeconds: &duration,
		Found:           true,
	}, nil
}
