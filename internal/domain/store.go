package domain

import (
	"strings"

	"github.com/couchcryptid/grocery-deals-api/internal/geo"
)

// Store is a grocery store at a fixed location.
type Store struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Address    string      `json:"address"`
	Latitude   float64     `json:"latitude"`
	Longitude  float64     `json:"longitude"`
	ChainName  *string     `json:"chain_name"`
	Promotions []Promotion `json:"promotions"`
}

// Coordinates returns the store position.
func (s Store) Coordinates() geo.Coordinates {
	return geo.Coordinates{Latitude: s.Latitude, Longitude: s.Longitude}
}

// StoreInput is the payload for registering a store. Latitude and longitude
// are pointers so a missing value is distinguishable from zero.
type StoreInput struct {
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	ChainName *string  `json:"chain_name"`
}

// Validate checks every field and reports all failures at once.
func (in StoreInput) Validate() error {
	var errs fieldErrors
	if strings.TrimSpace(in.Name) == "" {
		errs.add("name", "is required")
	}
	if strings.TrimSpace(in.Address) == "" {
		errs.add("address", "is required")
	}
	switch {
	case in.Latitude == nil:
		errs.add("latitude", "is required")
	case !geo.ValidLatitude(*in.Latitude):
		errs.add("latitude", "must be between -90 and 90")
	}
	switch {
	case in.Longitude == nil:
		errs.add("longitude", "is required")
	case !geo.ValidLongitude(*in.Longitude):
		errs.add("longitude", "must be between -180 and 180")
	}
	return errs.err()
}

// Store builds the store described by a validated input. The ID is assigned
// by the repository.
func (in StoreInput) Store() Store {
	return Store{
		Name:       in.Name,
		Address:    in.Address,
		Latitude:   *in.Latitude,
		Longitude:  *in.Longitude,
		ChainName:  in.ChainName,
		Promotions: []Promotion{},
	}
}
