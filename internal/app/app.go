// Package app wires adapters from configuration for the commands.
package app

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/creek-quality-service/internal/adapter/feed"
	"github.com/couchcryptid/creek-quality-service/internal/adapter/geo"
	"github.com/couchcryptid/creek-quality-service/internal/adapter/mapbox"
	"github.com/couchcryptid/creek-quality-service/internal/adapter/postgres"
	"github.com/couchcryptid/creek-quality-service/internal/config"
	"github.com/couchcryptid/creek-quality-service/internal/domain"
	"github.com/couchcryptid/creek-quality-service/internal/nearest"
	"github.com/couchcryptid/creek-quality-service/internal/observability"
	"github.com/couchcryptid/creek-quality-service/internal/pipeline"
)

// Source reads both feeds.
type Source interface {
	pipeline.SampleSource
	pipeline.CatalogSource
}

// OpenSource returns the Postgres source when DATABASE_URL is set and the
// CSV file/URL source otherwise. The returned close func is never nil.
func OpenSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Source, func() error, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("reading csv feeds", "samples", cfg.SampleFeed, "catalog", cfg.CatalogFeed)
		return feed.NewSource(cfg.SampleFeed, cfg.CatalogFeed, cfg.SampleSkipRows, cfg.FeedTimeout),
			func() error { return nil }, nil
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("reading postgres feeds", "samples_table", postgres.DefaultSamplesTable, "sites_table", postgres.DefaultSitesTable)
	return postgres.NewSource(db), db.Close, nil
}

// NewRouter returns the Mapbox router when routing is enabled, otherwise the
// offline great-circle router which accepts "lat,lon" origins only.
func NewRouter(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) domain.Router {
	if !cfg.MapboxEnabled {
		metrics.RoutingEnabled.Set(0)
		logger.Info("mapbox routing disabled, using offline distance router")
		return geo.NewRouter(nil)
	}

	client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
	geocoder := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
	metrics.RoutingEnabled.Set(1)
	logger.Info("mapbox routing enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	return mapbox.NewRouter(geocoder, client)
}

// NearestOptions maps configuration onto resolver options.
func NearestOptions(cfg *config.Config) nearest.Options {
	return nearest.Options{
		Workers:        cfg.RouteWorkers,
		CallTimeout:    cfg.RouteTimeout,
		NearZeroMeters: cfg.NearZeroMeters,
	}
}
