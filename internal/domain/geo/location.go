// internal/domain/geo/location.go

package geo

import (
	"fmt"
	"math/rand"
)

// Location represents a geographic point
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// String renders the location as "lat,lng"
func (l Location) String() string {
	return fmt.Sprintf("%.5f,%.5f", l.Latitude, l.Longitude)
}

// Geo indexes based on web-mercator geohashes cannot store latitudes beyond this
const MaxIndexedLatitude = 85.05112878

// Valid reports whether the location can be stored in a geo index
func (l Location) Valid() bool {
	return l.Latitude >= -MaxIndexedLatitude && l.Latitude <= MaxIndexedLatitude &&
		l.Longitude >= -180 && l.Longitude <= 180
}

// BoundingBox is an inclusive latitude/longitude rectangle
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Validate checks that the box is well formed
func (b BoundingBox) Validate() error {
	if b.MinLat > b.MaxLat {
		return fmt.Errorf("min latitude %.4f exceeds max latitude %.4f", b.MinLat, b.MaxLat)
	}
	if b.MinLon > b.MaxLon {
		return fmt.Errorf("min longitude %.4f exceeds max longitude %.4f", b.MinLon, b.MaxLon)
	}
	if b.MinLat < -90 || b.MaxLat > 90 {
		return fmt.Errorf("latitude range [%.4f, %.4f] outside [-90, 90]", b.MinLat, b.MaxLat)
	}
	if b.MinLon < -180 || b.MaxLon > 180 {
		return fmt.Errorf("longitude range [%.4f, %.4f] outside [-180, 180]", b.MinLon, b.MaxLon)
	}
	return nil
}

// Contains reports whether the location lies inside the box
func (b BoundingBox) Contains(l Location) bool {
	return l.Latitude >= b.MinLat && l.Latitude <= b.MaxLat &&
		l.Longitude >= b.MinLon && l.Longitude <= b.MaxLon
}

// RandomLocation returns a uniformly distributed point in [min, max) on both axes
func (b BoundingBox) RandomLocation(rng *rand.Rand) Location {
	return Location{
		Latitude:  b.MinLat + rng.Float64()*(b.MaxLat-b.MinLat),
		Longitude: b.MinLon + rng.Float64()*(b.MaxLon-b.MinLon),
	}
}
