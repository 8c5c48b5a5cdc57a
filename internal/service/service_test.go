package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/grocery-deals-api/internal/domain"
	"github.com/couchcryptid/grocery-deals-api/internal/geo"
	"github.com/couchcryptid/grocery-deals-api/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockRepository struct {
	stores     map[int64]domain.Store
	promotions []domain.Promotion
	err        error

	createStoreCalls     int
	findCalls            int
	createPromotionCalls int
	listCalls            int
	lastQuery            domain.RadiusQuery
}

func newMockRepository() *mockRepository {
	return &mockRepository{stores: map[int64]domain.Store{}}
}

func (m *mockRepository) CreateStore(_ context.Context, s domain.Store) (domain.Store, error) {
	m.createStoreCalls++
	if m.err != nil {
		return domain.Store{}, m.err
	}
	s.ID = int64(len(m.stores) + 1)
	m.stores[s.ID] = s
	return s, nil
}

func (m *mockRepository) GetStore(_ context.Context, id int64) (domain.Store, error) {
	s, ok := m.stores[id]
	if !ok {
		return domain.Store{}, domain.ErrNotFound
	}
	return s, nil
}

func (m *mockRepository) FindStoresWithinRadius(_ context.Context, q domain.RadiusQuery) ([]domain.Store, error) {
	m.findCalls++
	m.lastQuery = q
	return []domain.Store{{ID: 1}, {ID: 2}}, m.err
}

func (m *mockRepository) CreatePromotion(_ context.Context, p domain.Promotion) (domain.Promotion, error) {
	m.createPromotionCalls++
	if _, ok := m.stores[p.StoreID]; !ok {
		return domain.Promotion{}, domain.ErrNotFound
	}
	p.ID = int64(len(m.promotions) + 1)
	m.promotions = append(m.promotions, p)
	return p, nil
}

func (m *mockRepository) ListPromotions(_ context.Context, storeID int64, _ domain.Page) ([]domain.Promotion, error) {
	m.listCalls++
	if _, ok := m.stores[storeID]; !ok {
		return nil, domain.ErrNotFound
	}
	return m.promotions, nil
}

type mockGeocoder struct {
	coords geo.Coordinates
	found  bool
	calls  int
}

func (m *mockGeocoder) Resolve(_ context.Context, _ string) (geo.Coordinates, bool) {
	m.calls++
	return m.coords, m.found
}

type mockPublisher struct {
	published []domain.Promotion
	err       error
}

func (m *mockPublisher) PublishPromotion(_ context.Context, p domain.Promotion) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, p)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testNow = time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	svc       *Service
	repo      *mockRepository
	geocoder  *mockGeocoder
	publisher *mockPublisher
	metrics   *observability.Metrics
}

func newFixture() fixture {
	f := fixture{
		repo:      newMockRepository(),
		geocoder:  &mockGeocoder{},
		publisher: &mockPublisher{},
		metrics:   observability.NewMetricsForTesting(),
	}
	f.svc = New(f.repo, f.geocoder, f.publisher, clockwork.NewFakeClockAt(testNow), discardLogger(), f.metrics)
	return f
}

func ptr[T any](v T) *T { return &v }

func coopInput() domain.StoreInput {
	return domain.StoreInput{
		Name:      "Coop Zurich",
		Address:   "Bahnhofstrasse 1, 8001 Zurich",
		Latitude:  ptr(47.3769),
		Longitude: ptr(8.5417),
	}
}

func milk(storeID int64) domain.PromotionInput {
	return domain.PromotionInput{
		StoreID:     ptr(storeID),
		ProductName: "Milk",
		SalePrice:   ptr(decimal.RequireFromString("1.20")),
	}
}

// --- stores ---

func TestCreateStore(t *testing.T) {
	f := newFixture()

	s, err := f.svc.CreateStore(context.Background(), coopInput())
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.ID)
	assert.NotNil(t, s.Promotions)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.StoresCreated))
}

func TestCreateStore_InvalidDoesNotPersist(t *testing.T) {
	f := newFixture()

	in := coopInput()
	in.Latitude = nil
	_, err := f.svc.CreateStore(context.Background(), in)

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.HasField("latitude"))
	assert.Zero(t, f.repo.createStoreCalls)
}

func TestCreateStore_RepositoryError(t *testing.T) {
	f := newFixture()
	f.repo.err = errors.New("disk full")

	_, err := f.svc.CreateStore(context.Background(), coopInput())
	assert.EqualError(t, err, "disk full")
	assert.Zero(t, testutil.ToFloat64(f.metrics.StoresCreated))
}

func TestGetStore_NotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.GetStore(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFindStoresWithinRadius(t *testing.T) {
	f := newFixture()
	q := domain.RadiusQuery{Center: geo.Coordinates{Latitude: 47.3769, Longitude: 8.5417}, RadiusKm: 50, Page: domain.Page{Skip: 10, Limit: 200}}

	stores, err := f.svc.FindStoresWithinRadius(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, stores, 2)
	assert.Equal(t, q, f.repo.lastQuery)
}

func TestFindStoresWithinRadius_RejectsBeforeQuerying(t *testing.T) {
	tests := []struct {
		name  string
		query domain.RadiusQuery
		field string
	}{
		{"radius zero", domain.RadiusQuery{RadiusKm: 0, Page: domain.DefaultPage()}, "radius_km"},
		{"radius negative", domain.RadiusQuery{RadiusKm: -1, Page: domain.DefaultPage()}, "radius_km"},
		{"radius too large", domain.RadiusQuery{RadiusKm: 50.5, Page: domain.DefaultPage()}, "radius_km"},
		{"negative skip", domain.RadiusQuery{RadiusKm: 10, Page: domain.Page{Skip: -1, Limit: 1}}, "skip"},
		{"limit too large", domain.RadiusQuery{RadiusKm: 10, Page: domain.Page{Limit: 201}}, "limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.FindStoresWithinRadius(context.Background(), tt.query)

			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.True(t, ve.HasField(tt.field))
			assert.Zero(t, f.repo.findCalls)
		})
	}
}

// --- promotions ---

func TestCreatePromotion(t *testing.T) {
	f := newFixture()
	store, err := f.svc.CreateStore(context.Background(), coopInput())
	require.NoError(t, err)

	p, err := f.svc.CreatePromotion(context.Background(), store.ID, milk(store.ID))
	require.NoError(t, err)

	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, store.ID, p.StoreID)
	assert.Equal(t, testNow, p.LastUpdated)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.PromotionsCreated))

	require.Len(t, f.publisher.published, 1)
	assert.Equal(t, p, f.publisher.published[0])
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.PromotionEvents.WithLabelValues("published")))
}

func TestCreatePromotion_MismatchBeforeNotFound(t *testing.T) {
	f := newFixture()

	// Neither store exists; the mismatch still wins.
	_, err := f.svc.CreatePromotion(context.Background(), 1, milk(2))
	require.ErrorIs(t, err, domain.ErrStoreIDMismatch)
	assert.Zero(t, f.repo.createPromotionCalls)
}

func TestCreatePromotion_UnknownStore(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreatePromotion(context.Background(), 42, milk(42))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, f.publisher.published)
}

func TestCreatePromotion_InvalidFields(t *testing.T) {
	f := newFixture()

	in := milk(1)
	in.SalePrice = ptr(decimal.RequireFromString("-1"))
	_, err := f.svc.CreatePromotion(context.Background(), 1, in)

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.HasField("sale_price"))
	assert.NotErrorIs(t, err, domain.ErrStoreIDMismatch)
	assert.Zero(t, f.repo.createPromotionCalls)
}

func TestCreatePromotion_PublishFailureDoesNotFail(t *testing.T) {
	f := newFixture()
	f.publisher.err = errors.New("broker down")
	store, err := f.svc.CreateStore(context.Background(), coopInput())
	require.NoError(t, err)

	p, err := f.svc.CreatePromotion(context.Background(), store.ID, milk(store.ID))
	require.NoError(t, err)
	assert.Positive(t, p.ID)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.PromotionEvents.WithLabelValues("failed")))
}

func TestCreatePromotion_NilPublisher(t *testing.T) {
	repo := newMockRepository()
	svc := New(repo, nil, nil, clockwork.NewFakeClockAt(testNow), discardLogger(), observability.NewMetricsForTesting())
	store, err := svc.CreateStore(context.Background(), coopInput())
	require.NoError(t, err)

	_, err = svc.CreatePromotion(context.Background(), store.ID, milk(store.ID))
	assert.NoError(t, err)
}

func TestListPromotions(t *testing.T) {
	f := newFixture()
	store, err := f.svc.CreateStore(context.Background(), coopInput())
	require.NoError(t, err)
	_, err = f.svc.CreatePromotion(context.Background(), store.ID, milk(store.ID))
	require.NoError(t, err)

	got, err := f.svc.ListPromotions(context.Background(), store.ID, domain.DefaultPage())
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = f.svc.ListPromotions(context.Background(), 99, domain.DefaultPage())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListPromotions_InvalidPage(t *testing.T) {
	f := newFixture()
	_, err := f.svc.ListPromotions(context.Background(), 1, domain.Page{Skip: 0, Limit: 0})

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Zero(t, f.repo.listCalls)
}

// --- geocoding ---

func TestResolveAddress(t *testing.T) {
	f := newFixture()
	f.geocoder.coords = geo.Coordinates{Latitude: 46.94661, Longitude: 7.44403}
	f.geocoder.found = true

	coords, found, err := f.svc.ResolveAddress(context.Background(), "Bundesplatz 1, 3011 Bern")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 46.94661, coords.Latitude)
}

func TestResolveAddress_NotFound(t *testing.T) {
	f := newFixture()

	_, found, err := f.svc.ResolveAddress(context.Background(), "Nowhere")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 1, f.geocoder.calls)
}

func TestResolveAddress_MissingAddress(t *testing.T) {
	f := newFixture()

	_, _, err := f.svc.ResolveAddress(context.Background(), "   ")
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.HasField("address"))
	assert.Zero(t, f.geocoder.calls)
}

func TestResolveAddress_GeocodingDisabled(t *testing.T) {
	svc := New(newMockRepository(), nil, nil, clockwork.NewRealClock(), discardLogger(), observability.NewMetricsForTesting())

	_, found, err := svc.ResolveAddress(context.Background(), "Bundesplatz 1")
	require.NoError(t, err)
	assert.False(t, found)
}
