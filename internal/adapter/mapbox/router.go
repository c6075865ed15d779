package mapbox

import (
	"context"
	"fmt"

	"github.com/couchcryptid/creek-quality-service/internal/domain"
)

// Router implements domain.Router on top of the Directions API. Free-text
// origins are geocoded first; a "lat,lon" origin is used as is.
type Router struct {
	geocoder domain.Geocoder
	client   *Client
}

// NewRouter creates a Router. The geocoder is usually a CachedGeocoder
// around the same client, since the resolver routes one origin to every site.
func NewRouter(geocoder domain.Geocoder, client *Client) *Router {
	return &Router{geocoder: geocoder, client: client}
}

// Route geocodes origin and asks Mapbox for a route to dest. An origin that
// cannot be geocoded yields domain.ErrNoRoute.
func (r *Router) Route(ctx context.Context, origin string, dest domain.Coordinates, mode domain.TravelMode) (domain.Route, error) {
	from, err := r.locate(ctx, origin)
	if err != nil {
		return domain.Route{}, err
	}
	return r.client.Directions(ctx, from, dest, mode)
}

func (r *Router) locate(ctx context.Context, origin string) (domain.Coordinates, error) {
	if c, ok := domain.ParseCoordinates(origin); ok {
		return c, nil
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
