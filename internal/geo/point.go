// Package geo converts between the latitude-first coordinates carried by API
// payloads and the longitude-first points used by geometry encodings (WKT,
// GeoJSON, PostGIS). Every crossing between the two conventions goes through
// this package.
package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	orbgeo "github.com/paulmach/orb/geo"
)

// SRID is the spatial reference of every stored point (WGS84).
const SRID = 4326

// Coordinates is a WGS84 latitude/longitude pair in degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether both components are within their WGS84 ranges.
func (c Coordinates) Valid() bool {
	return ValidLatitude(c.Latitude) && ValidLongitude(c.Longitude)
}

// Point returns the geometry point for c. Geometry is (x=longitude, y=latitude).
func (c Coordinates) Point() orb.Point {
	return orb.Point{c.Longitude, c.Latitude}
}

// FromPoint decomposes a geometry point back into coordinates.
func FromPoint(p orb.Point) Coordinates {
	return Coordinates{Latitude: p.Lat(), Longitude: p.Lon()}
}

// FromLonLat converts a GeoJSON position ([longitude, latitude]). It returns
// false for anything that is not exactly two in-range numbers.
func FromLonLat(position []float64) (Coordinates, bool) {
	if len(position) != 2 {
		return Coordinates{}, false
	}
	c := FromPoint(orb.Point{position[0], position[1]})
	if !c.Valid() {
		return Coordinates{}, false
	}
	return c, true
}

// WKT renders c as a WKT point, longitude first: "POINT(8.5417 47.3769)".
func WKT(c Coordinates) string {
	return wkt.MarshalString(c.Point())
}

// ParseWKT parses a WKT point back into coordinates.
func ParseWKT(s string) (Coordinates, error) {
	p, err := wkt.UnmarshalPoint(s)
	if err != nil {
		return Coordinates{}, fmt.Errorf("parse wkt point %q: %w", s, err)
	}
	return FromPoint(p), nil
}

// DistanceMeters is the great-circle (haversine) distance between a and b.
func DistanceMeters(a, b Coordinates) float64 {
	return orbgeo.DistanceHaversine(a.Point(), b.Point())
}

// SearchBound returns the bounding box that contains every point within
// meters of center. When the box wraps across the antimeridian or touches a
// pole its longitude range cannot be used as a filter and lonBounded is false.
func SearchBound(center Coordinates, meters float64) (bound orb.Bound, lonBounded bool) {
	bound = orbgeo.NewBoundAroundPoint(center.Point(), meters)
	lonBounded = bound.Min.Lon() <= bound.Max.Lon() &&
		bound.Min.Lat() > -90 && bound.Max.Lat() < 90 &&
		!math.IsNaN(bound.Min.Lon()) && !math.IsNaN(bound.Max.Lon())
	return bound, lonBounded
}

func ValidLatitude(v float64) bool  { return v >= -90 && v <= 90 }
func ValidLongitude(v float64) bool { return v >= -180 && v <= 180 }
