package gormstore

import (
	"fmt"

	"github.com/couchcryptid/grocery-deals-api/internal/domain"
	"github.com/couchcryptid/grocery-deals-api/internal/geo"
	"gorm.io/gorm"
)

// radiusFinder runs the "within distance" predicate for one dialect and
// returns a single id-ordered page.
type radiusFinder interface {
	find(db *gorm.DB, q domain.RadiusQuery) ([]storeRecord, error)
}

// postgisRadius delegates the distance test and pagination to PostGIS. The
// geography cast makes ST_DWithin measure metres on the WGS84 ellipsoid.
type postgisRadius struct{}

func (postgisRadius) find(db *gorm.DB, q domain.RadiusQuery) ([]storeRecord, error) {
	var recs []storeRecord
	err := db.
		Where(fmt.Sprintf("ST_DWithin(stores.geom::geography, ST_SetSRID(ST_MakePoint(?, ?), %d)::geography, ?)", geo.SRID),
			q.Center.Longitude, q.Center.Latitude, q.RadiusMeters()).
		Order("stores.id").
		Scopes(paginate(q.Page)).
		Find(&recs).Error
	return recs, err
}

// haversineRadius narrows candidates with a bounding box on the raw
// latitude/longitude columns, then applies the exact great-circle distance to
// the stored point and paginates the survivors.
type haversineRadius struct{}

func (haversineRadius) find(db *gorm.DB, q domain.RadiusQuery) ([]storeRecord, error) {
	bound, lonBounded := geo.SearchBound(q.Center, q.RadiusMeters())

	tx := db.Where("latitude BETWEEN ? AND ?", bound.Min.Lat(), bound.Max.Lat())
	if lonBounded {
		tx = tx.Where("longitude BETWEEN ? AND ?", bound.Min.Lon(), bound.Max.Lon())
	}

	var candidates []storeRecord
	if err := tx.Order("id").Find(&candidates).Error; err != nil {
		return nil, err
	}

	within := candidates[:0]
	for _, rec := range candidates {
		if !rec.Geom.valid {
			continue
		}
		if geo.DistanceMeters(q.Center, rec.Geom.coords) <= q.RadiusMeters() {
			within = append(within, rec)
		}
	}

	if q.Page.Skip >= len(within) {
		return []storeRecord{}, nil
	}
	end := min(q.Page.Skip+q.Page.Limit, len(within))
	return within[q.Page.Skip:end], nil
}
