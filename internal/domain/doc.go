// Package domain models the grocery promotion directory: stores with a
// geographic position and the promotions attached to them.
//
// # Stores
//
// A store is created once and never modified. Its latitude and longitude are
// kept both as raw numbers and as a WGS84 point (SRID 4326) used for radius
// search. The point is always built longitude first; see package geo.
//
// # Promotions
//
// A promotion belongs to exactly one existing store. Prices are decimal
// amounts with at most two fractional digits:
//
//	sale_price      required, >= 0
//	original_price  optional, >= 0
//	valid_until     optional calendar date, "2006-01-02"
//
// last_updated is stamped by the service on creation and by the store on
// every later write.
//
// # Pagination
//
// List operations take an offset (skip >= 0) and a page size
// (1 <= limit <= 200, default 100) and return results in ascending id order,
// so consecutive pages never overlap or leave gaps.
//
// # Radius search
//
// The radius is given in kilometres, 0 < radius_km <= 50, default 10. A store
// matches when its geographic distance from the center is at most
// radius_km * 1000 metres.
package domain
