// Package geo provides an offline domain.Router that measures great-circle
// distance on the sphere. It is used when Mapbox routing is disabled.
package geo

import (
	"context"
	"fmt"

	"github.com/golang/geo/s2"

	"github.com/couchcryptid/creek-quality-service/internal/domain"
)

const (
	// EarthRadiusMeters is the mean Earth radius.
	EarthRadiusMeters = 6371008.8
	// WalkingSpeed is a typical walking pace in meters per second.
	WalkingSpeed = 1.4
)

// Router estimates routes as straight lines. Origins must be "lat,lon"
// unless a geocoder is supplied.
type Router struct {
	geocoder domain.Geocoder
}

// NewRouter creates an offline router. geocoder may be nil.
func NewRouter(geocoder domain.Geocoder) *Router {
	return &Router{geocoder: geocoder}
}

// Route returns the great-circle distance from origin to dest and the time
// to walk it.
func (r *Router) Route(ctx context.Context, origin string, dest domain.Coordinates, _ domain.TravelMode) (domain.Route, error) {
	if err := ctx.Err(); err != nil {
		return domain.Route{}, err
	}
	from, err := r.locate(ctx, origin)
	if err != nil {
		return domain.Route{}, err
	}

	d := Distance(from, dest)
	return domain.Route{DistanceMeters: d, DurationSeconds: d / WalkingSpeed}, nil
}

func (r *Router) locate(ctx context.Context, origin string) (domain.Coordinates, error) {
	if c, ok := domain.ParseCoordinates(origin); ok {
		return c, nil
	}
	if r.geocoder == nil {
		return domain.Coordinates{}, fmt.Errorf("origin %q is not a lat,lon pair: %w", origin, domain.ErrNoRoute)
	}

	result, err := r.geocoder.ForwardGeocode(ctx, origin)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode origin: %w", err)
	}
	if !result.Found() {
		return domain.Coordinates{}, fmt.Errorf("origin %q not found: %w", origin, domain.ErrNoRoute)
	}
	return domain.Coordinates{Lat: result.Lat, Lon: result.Lon}, nil
}

// Distance is the great-circle distance between a and b in meters.
func Distance(a, b domain.Coordinates) float64 {
	from := s2.LatLngFromDegrees(a.Lat, a.Lon)
	to := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return from.Distance(to).Radians() * EarthRadiusMeters
}
