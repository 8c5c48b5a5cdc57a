package gormstore

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/couchcryptid/grocery-deals-api/internal/domain"
	"github.com/couchcryptid/grocery-deals-api/internal/geo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

type storeRecord struct {
	ID         int64   `gorm:"primaryKey"`
	Name       string  `gorm:"size:255;not null;index"`
	Address    string  `gorm:"type:text;not null"`
	Latitude   float64 `gorm:"not null"`
	Longitude  float64 `gorm:"not null"`
	ChainName  *string `gorm:"size:100"`
	Geom       point
	Promotions []promotionRecord `gorm:"foreignKey:StoreID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (storeRecord) TableName() string { return "stores" }

type promotionRecord struct {
	ID            int64               `gorm:"primaryKey"`
	StoreID       int64               `gorm:"not null;index"`
	ProductName   string              `gorm:"size:255;not null"`
	SalePrice     decimal.Decimal     `gorm:"type:numeric(10,2);not null"`
	OriginalPrice decimal.NullDecimal `gorm:"type:numeric(10,2)"`
	ValidUntil    *domain.Date
	Description   *string   `gorm:"type:text"`
	ImageURL      *string   `gorm:"type:text"`
	LastUpdated   time.Time `gorm:"autoUpdateTime;not null"`
}

func (promotionRecord) TableName() string { return "promotions" }

func newStoreRecord(s domain.Store) storeRecord {
	return storeRecord{
		Name:      s.Name,
		Address:   s.Address,
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		ChainName: s.ChainName,
		Geom:      point{coords: s.Coordinates(), valid: true},
	}
}

// toDomain reports the position held by the point column, falling back to
// the raw columns for rows written without one.
func (r storeRecord) toDomain() domain.Store {
	s := domain.Store{
		ID:         r.ID,
		Name:       r.Name,
		Address:    r.Address,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		ChainName:  r.ChainName,
		Promotions: make([]domain.Promotion, 0, len(r.Promotions)),
	}
	if r.Geom.valid {
		s.Latitude = r.Geom.coords.Latitude
		s.Longitude = r.Geom.coords.Longitude
	}
	for i := range r.Promotions {
		s.Promotions = append(s.Promotions, r.Promotions[i].toDomain())
	}
	return s
}

func newPromotionRecord(p domain.Promotion) promotionRecord {
	rec := promotionRecord{
		StoreID:     p.StoreID,
		ProductName: p.ProductName,
		SalePrice:   p.SalePrice,
		ValidUntil:  p.ValidUntil,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		LastUpdated: p.LastUpdated,
	}
	if p.OriginalPrice != nil {
		rec.OriginalPrice = decimal.NewNullDecimal(*p.OriginalPrice)
	}
	return rec
}

func (r promotionRecord) toDomain() domain.Promotion {
	p := domain.Promotion{
		ID:          r.ID,
		StoreID:     r.StoreID,
		ProductName: r.ProductName,
		SalePrice:   r.SalePrice,
		ValidUntil:  r.ValidUntil,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		LastUpdated: r.LastUpdated.UTC(),
	}
	if r.OriginalPrice.Valid {
		v := r.OriginalPrice.Decimal
		p.OriginalPrice = &v
	}
	return p
}

func toPromotions(recs []promotionRecord) []domain.Promotion {
	out := make([]domain.Promotion, len(recs))
	for i := range recs {
		out[i] = recs[i].toDomain()
	}
	return out
}

func toStores(recs []storeRecord) []domain.Store {
	out := make([]domain.Store, len(recs))
	for i := range recs {
		out[i] = recs[i].toDomain()
	}
	return out
}

// point is the spatial column of stores. On PostgreSQL it is a PostGIS
// geometry(Point, 4326) written from WKT and read back through ST_AsText; on
// SQLite the WKT text itself is stored.
type point struct {
	coords geo.Coordinates
	valid  bool
}

func (point) GormDataType() string {
	return "geometry"
}

func (point) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if isPostgres(db) {
		return fmt.Sprintf("geometry(Point,%d)", geo.SRID)
	}
	return "text"
}

func (p point) GormValue(_ context.Context, db *gorm.DB) clause.Expr {
	if !p.valid {
		return clause.Expr{SQL: "NULL"}
	}
	if isPostgres(db) {
		return clause.Expr{SQL: fmt.Sprintf("ST_GeomFromText(?, %d)", geo.SRID), Vars: []any{geo.WKT(p.coords)}}
	}
	return clause.Expr{SQL: "?", Vars: []any{geo.WKT(p.coords)}}
}

func (p point) Value() (driver.Value, error) {
	if !p.valid {
		return nil, nil
	}
	return geo.WKT(p.coords), nil
}

func (p *point) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*p = point{}
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("scan point: unsupported type %T", src)
	}
	c, err := geo.ParseWKT(s)
	if err != nil {
		return err
	}
	*p = point{coords: c, valid: true}
	return nil
}

func isPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}
