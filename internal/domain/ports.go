package domain

import (
	"context"

	"github.com/couchcryptid/grocery-deals-api/internal/geo"
)

// Geocoder resolves a free-text address to its single best WGS84 match.
type Geocoder interface {
	// Resolve returns false when the address cannot be resolved, including
	// when the provider is unreachable or answers with an error.
	Resolve(ctx context.Context, address string) (geo.Coordinates, bool)
}

// Repository persists stores and promotions.
type Repository interface {
	// CreateStore assigns an ID and persists the store with its point.
	CreateStore(ctx context.Context, store Store) (Store, error)

	// GetStore returns the store with its promotions, or ErrNotFound.
	GetStore(ctx context.Context, id int64) (Store, error)

	// FindStoresWithinRadius returns one page of matching stores in id order.
	// Promotions are not loaded.
	FindStoresWithinRadius(ctx context.Context, q RadiusQuery) ([]Store, error)

	// CreatePromotion persists p, or returns ErrNotFound if its store is missing.
	CreatePromotion(ctx context.Context, p Promotion) (Promotion, error)

	// ListPromotions returns one page of a store's promotions in id order, or
	// ErrNotFound if the store is missing.
	ListPromotions(ctx context.Context, storeID int64, page Page) ([]Promotion, error)
}

// PromotionPublisher announces newly created promotions to downstream
// consumers.
type PromotionPublisher interface {
	PublishPromotion(ctx context.Context, p Promotion) error
}
