package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoRoute means the provider found no usable route for one origin and
	// destination pair. Resolvers skip the destination and continue.
	ErrNoRoute = errors.New("no route found")

	// ErrRoutingUnavailable marks faults of the routing provider itself
	// (transport, quota, server errors) as opposed to a missing route.
	ErrRoutingUnavailable = errors.New("routing service unavailable")

	// ErrRoutingUnauthorized is a configuration fault: every further request
	// would fail the same way.
	ErrRoutingUnauthorized = fmt.Errorf("%w: unauthorized", ErrRoutingUnavailable)
)

// TravelMode selects the routing profile.
type TravelMode string

// ModeWalking is the only profile the resolver uses.
const ModeWalking TravelMode = "walking"

// Route is the provider's best route between two points.
type Route struct {
	DistanceMeters  float64
	DurationSeconds float64
}

// Router computes routes from a free-text origin to a coordinate.
type Router interface {
	Route(ctx context.Context, origin string, dest Coordinates, mode TravelMode) (Route, error)
}

// NearestSiteResult is the outcome of nearest-site resolution. Found is
// false when no catalog site produced a route.
type NearestSiteResult struct {
	Site            *CanonicalSite `json:"site,omitempty"`
	DistanceMeters  *float64       `json:"distance_meters,omitempty"`
	DurationSeconds *float64       `json:"duration_seconds,omitempty"`
	Found           bool           `json:"found"`
}
