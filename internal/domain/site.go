package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SiteRecord is one row of the site catalog feed before validation.
type SiteRecord struct {
	Code        string
	DisplayName string
	Lat         float64
	Lon         float64
}

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ParseCoordinates parses a "lat,lon" pair such as "33.79,-84.32".
func ParseCoordinates(s string) (Coordinates, bool) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return Coordinates{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil || !validCoordinate(lat, 90) {
		return Coordinates{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil || !validCoordinate(lon, 180) {
		return Coordinates{}, false
	}
	return Coordinates{Lat: lat, Lon: lon}, true
}

// CanonicalSite is a catalog-registered monitoring location.
type CanonicalSite struct {
	Code        string  `json:"code"`
	DisplayName string  `json:"display_name"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// Coordinates returns the site location.
func (s CanonicalSite) Coordinates() Coordinates {
	return Coordinates{Lat: s.Lat, Lon: s.Lon}
}

// CatalogError reports an invalid catalog feed.
type CatalogError struct {
	Code   string
	Reason string
}

func (e *CatalogError) Error() string {
	if e.Code == "" {
		return "catalog: " + e.Reason
	}
	return fmt.Sprintf("catalog: site %q: %s", e.Code, e.Reason)
}

// Catalog is the immutable registry of monitoring sites. Iteration order is
// the order in which sites were loaded.
type Catalog struct {
	sites  []CanonicalSite
	byCode map[string]int
	byName map[string]int
}

// NewCatalog validates records and builds a catalog. Codes are trimmed and
// lower-cased; a duplicate code is a *CatalogError.
func NewCatalog(records []SiteRecord) (*Catalog, error) {
	c := &Catalog{
		sites:  make([]CanonicalSite, 0, len(records)),
		byCode: make(map[string]int, len(records)),
		byName: make(map[string]int, len(records)),
	}

	for _, rec := range records {
		code := NormalizeCode(rec.Code)
		if code == "" {
			return nil, &CatalogError{Reason: "empty site code"}
		}
		if _, dup := c.byCode[code]; dup {
			return nil, &CatalogError{Code: code, Reason: "duplicate site code"}
		}
		if !validCoordinate(rec.Lat, 90) || !validCoordinate(rec.Lon, 180) {
			return nil, &CatalogError{Code: code, Reason: fmt.Sprintf("invalid coordinates (%g, %g)", rec.Lat, rec.Lon)}
		}

		name := strings.TrimSpace(rec.DisplayName)
		if name == "" {
			name = code
		}

		c.byCode[code] = len(c.sites)
		if _, taken := c.byName[strings.ToLower(name)]; !taken {
			c.byName[strings.ToLower(name)] = len(c.sites)
		}
		c.sites = append(c.sites, CanonicalSite{
			Code:        code,
			DisplayName: name,
			Lat:         rec.Lat,
			Lon:         rec.Lon,
		})
	}

	return c, nil
}

// NormalizeCode trims and lower-cases a site code.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func validCoordinate(v, limit float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= -limit && v <= limit
}

// Lookup returns the site with the given code, case-insensitively.
func (c *Catalog) Lookup(code string) (CanonicalSite, bool) {
	i, ok := c.byCode[NormalizeCode(code)]
	if !ok {
		return CanonicalSite{}, false
	}
	return c.sites[i], true
}

// Find resolves either a site code or a display name.
func (c *Catalog) Find(nameOrCode string) (CanonicalSite, bool) {
	if site, ok := c.Lookup(nameOrCode); ok {
		return site, true
	}
	i, ok := c.byName[strings.ToLower(strings.TrimSpace(nameOrCode))]
	if !ok {
		return CanonicalSite{}, false
	}
	return c.sites[i], true
}

// All returns the sites in catalog order. The slice is a copy.
func (c *Catalog) All() []CanonicalSite {
	out := make([]CanonicalSite, len(c.sites))
	copy(out, c.sites)
	return out
}

// Codes returns the site codes in catalog order.
func (c *Catalog) Codes() []string {
	out := make([]string, len(c.sites))
	for i, s := range c.sites {
		out[i] = s.Code
	}
	return out
}

// Len reports the number of sites.
func (c *Catalog) Len() int {
	return len(c.sites)
}

// position returns the catalog index of code, or -1.
func (c *Catalog) position(code string) int {
	if i, ok := c.byCode[code]; ok {
		return i
	}
	return -1
}
