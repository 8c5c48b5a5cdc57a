// Package service validates requests and orchestrates the repository, the
// geocoder and the promotion publisher.
package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/couchcryptid/grocery-deals-api/internal/domain"
	"github.com/couchcryptid/grocery-deals-api/internal/geo"
	"github.com/couchcryptid/grocery-deals-api/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Service is the store and promotion directory.
type Service struct {
	repo      domain.Repository
	geocoder  domain.Geocoder
	publisher domain.PromotionPublisher
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Service. A nil geocoder resolves nothing; a nil publisher
// disables promotion events.
func New(repo domain.Repository, geocoder domain.Geocoder, publisher domain.PromotionPublisher, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		repo:      repo,
		geocoder:  geocoder,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// CreateStore registers a store and returns it with its assigned ID and an
// empty promotion list.
func (s *Service) CreateStore(ctx context.Context, in domain.StoreInput) (domain.Store, error) {
	if err := in.Validate(); err != nil {
		return domain.Store{}, err
	}
	store, err := s.repo.CreateStore(ctx, in.Store())
	if err != nil {
		return domain.Store{}, err
	}
	s.metrics.StoresCreated.Inc()
	s.logger.Info("store created", "store_id", store.ID, "name", store.Name)
	return store, nil
}

// GetStore returns a store with its promotions, or domain.ErrNotFound.
func (s *Service) GetStore(ctx context.Context, id int64) (domain.Store, error) {
	return s.repo.GetStore(ctx, id)
}

// FindStoresWithinRadius returns one page of stores within the query radius,
// in ascending id order.
func (s *Service) FindStoresWithinRadius(ctx context.Context, q domain.RadiusQuery) ([]domain.Store, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	stores, err := s.repo.FindStoresWithinRadius(ctx, q)
	if err != nil {
		return nil, err
	}
	s.metrics.SearchResults.Observe(float64(len(stores)))
	return stores, nil
}

// CreatePromotion attaches a promotion to storeID. Field errors come first,
// then a store_id that disagrees with storeID, then a missing store.
func (s *Service) CreatePromotion(ctx context.Context, storeID int64, in domain.PromotionInput) (domain.Promotion, error) {
	if err := in.Validate(); err != nil {
		return domain.Promotion{}, err
	}
	if err := in.CheckStore(storeID); err != nil {
		return domain.Promotion{}, err
	}

	promo, err := s.repo.CreatePromotion(ctx, in.Promotion(s.clock.Now().UTC()))
	if err != nil {
		return domain.Promotion{}, err
	}
	s.metrics.PromotionsCreated.Inc()
	s.logger.Info("promotion created", "promotion_id", promo.ID, "store_id", promo.StoreID)

	s.publish(ctx, promo)
	return promo, nil
}

// publish announces a committed promotion. Failures never fail the request.
func (s *Service) publish(ctx context.Context, promo domain.Promotion) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishPromotion(ctx, promo); err != nil {
		s.metrics.PromotionEvents.WithLabelValues("failed").Inc()
		s.logger.Warn("promotion event not published", "promotion_id", promo.ID, "store_id", promo.StoreID, "error", err)
		return
	}
	s.metrics.PromotionEvents.WithLabelValues("published").Inc()
}

// ListPromotions returns one page of a store's promotions, or
// domain.ErrNotFound when the store does not exist.
func (s *Service) ListPromotions(ctx context.Context, storeID int64, page domain.Page) ([]domain.Promotion, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ListPromotions(ctx, storeID, page)
}

// ResolveAddress geocodes a free-text address. found is false when the
// address cannot be resolved or geocoding is disabled.
func (s *Service) ResolveAddress(ctx context.Context, address string) (coords geo.Coordinates, found bool, err error) {
	if strings.TrimSpace(address) == "" {
		return geo.Coordinates{}, false, domain.NewValidationError("address", "is required")
	}
	if s.geocoder == nil {
		return geo.Coordinates{}, false, nil
	}
	coords, found = s.geocoder.Resolve(ctx, address)
	return coords, found, nil
}
