package domain

import (
	"github.com/couchcryptid/grocery-deals-api/internal/geo"
)

const (
	DefaultRadiusKm = 10.0
	MaxRadiusKm     = 50.0

	DefaultLimit = 100
	MaxLimit     = 200
)

// Page selects a window of an id-ordered result: skip rows, then at most
// Limit rows.
type Page struct {
	Skip  int
	Limit int
}

// DefaultPage is the first page at the default size.
func DefaultPage() Page {
	return Page{Skip: 0, Limit: DefaultLimit}
}

func (p Page) Validate() error {
	var errs fieldErrors
	p.validate(&errs)
	return errs.err()
}

func (p Page) validate(errs *fieldErrors) {
	if p.Skip < 0 {
		errs.add("skip", "must be greater than or equal to 0")
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		errs.add("limit", "must be between 1 and 200")
	}
}

// RadiusQuery selects stores within RadiusKm of Center.
type RadiusQuery struct {
	Center   geo.Coordinates
	RadiusKm float64
	Page     Page
}

// RadiusMeters is the search distance in metres.
func (q RadiusQuery) RadiusMeters() float64 {
	return q.RadiusKm * 1000
}

func (q RadiusQuery) Validate() error {
	var errs fieldErrors
	if !geo.ValidLatitude(q.Center.Latitude) {
		errs.add("latitude", "must be between -90 and 90")
	}
	if !geo.ValidLongitude(q.Center.Longitude) {
		errs.add("longitude", "must be between -180 and 180")
	}
	if !(q.RadiusKm > 0 && q.RadiusKm <= MaxRadiusKm) {
		errs.add("radius_km", "must be greater than 0 and at most 50")
	}
	q.Page.validate(&errs)
	return errs.err()
}
