package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/couchcryptid/grocery-deals-api/internal/geo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func validationFields(t *testing.T, err error) []string {
	t.Helper()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	fields := make([]string, len(ve.Fields))
	for i, f := range ve.Fields {
		fields[i] = f.Field
	}
	return fields
}

// --- stores ---

func TestStoreInput_Valid(t *testing.T) {
	in := StoreInput{
		Name:      "Coop Zurich",
		Address:   "Bahnhofstrasse 1, 8001 Zurich",
		Latitude:  ptr(47.3769),
		Longitude: ptr(8.5417),
		ChainName: ptr("Coop"),
	}
	require.NoError(t, in.Validate())

	s := in.Store()
	assert.Equal(t, 47.3769, s.Latitude)
	assert.Equal(t, 8.5417, s.Longitude)
	assert.Equal(t, "Coop", *s.ChainName)
	assert.NotNil(t, s.Promotions)
	assert.Empty(t, s.Promotions)
	assert.Equal(t, geo.Coordinates{Latitude: 47.3769, Longitude: 8.5417}, s.Coordinates())
}

func TestStoreInput_MissingFields(t *testing.T) {
	err := StoreInput{Name: "  "}.Validate()
	assert.ElementsMatch(t, []string{"name", "address", "latitude", "longitude"}, validationFields(t, err))
}

func TestStoreInput_ZeroCoordinatesAreValid(t *testing.T) {
	in := StoreInput{Name: "Null Island", Address: "Gulf of Guinea", Latitude: ptr(0.0), Longitude: ptr(0.0)}
	assert.NoError(t, in.Validate())
}

func TestStoreInput_OutOfRange(t *testing.T) {
	in := StoreInput{Name: "x", Address: "y", Latitude: ptr(91.0), Longitude: ptr(-181.0)}
	assert.ElementsMatch(t, []string{"latitude", "longitude"}, validationFields(t, in.Validate()))
}

// --- promotions ---

func milkInput(storeID int64) PromotionInput {
	return PromotionInput{
		StoreID:     ptr(storeID),
		ProductName: "Milk",
		SalePrice:   ptr(decimal.RequireFromString("1.20")),
	}
}

func TestPromotionInput_Valid(t *testing.T) {
	in := milkInput(1)
	in.OriginalPrice = ptr(decimal.RequireFromString("1.85"))
	require.NoError(t, in.Validate())

	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	p := in.Promotion(now)
	assert.Equal(t, int64(1), p.StoreID)
	assert.True(t, p.SalePrice.Equal(decimal.RequireFromString("1.2")))
	assert.Equal(t, now, p.LastUpdated)
}

func TestPromotionInput_MissingFields(t *testing.T) {
	err := PromotionInput{}.Validate()
	assert.ElementsMatch(t, []string{"store_id", "product_name", "sale_price"}, validationFields(t, err))
}

func TestPromotionInput_InvalidPrices(t *testing.T) {
	tests := []struct {
		name  string
		price string
	}{
		{"negative", "-0.01"},
		{"too precise", "1.005"},
		{"too large", "100000000.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := milkInput(1)
			in.SalePrice = ptr(decimal.RequireFromString(tt.price))
			assert.Equal(t, []string{"sale_price"}, validationFields(t, in.Validate()))
		})
	}
}

func TestPromotionInput_TrailingZerosAccepted(t *testing.T) {
	in := milkInput(1)
	in.SalePrice = ptr(decimal.RequireFromString("0.500"))
	assert.NoError(t, in.Validate())
}

func TestPromotionInput_NegativeOriginalPrice(t *testing.T) {
	in := milkInput(1)
	in.OriginalPrice = ptr(decimal.RequireFromString("-2"))
	assert.Equal(t, []string{"original_price"}, validationFields(t, in.Validate()))
}

func TestPromotionInput_CheckStore(t *testing.T) {
	in := milkInput(7)
	assert.NoError(t, in.CheckStore(7))

	err := in.CheckStore(8)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStoreIDMismatch))
	assert.Equal(t, []string{"store_id"}, validationFields(t, err))
}

func TestPromotion_JSONShape(t *testing.T) {
	p := Promotion{
		ID:          3,
		StoreID:     1,
		ProductName: "Milk",
		SalePrice:   decimal.RequireFromString("1.20"),
		ValidUntil:  ptr(NewDate(2024, time.June, 30)),
		LastUpdated: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(p)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"id": 3,
		"store_id": 1,
		"product_name": "Milk",
		"sale_price": 1.2,
		"original_price": null,
		"valid_until": "2024-06-30",
		"description": null,
		"image_url": null,
		"last_updated": "2024-06-01T08:00:00Z"
	}`, string(data))
}

func TestPromotionInput_DecodesNumbersAndStrings(t *testing.T) {
	var in PromotionInput
	require.NoError(t, json.Unmarshal([]byte(`{"store_id":1,"product_name":"Milk","sale_price":1.20,"original_price":"1.85","valid_until":"2024-06-30"}`), &in))

	assert.True(t, in.SalePrice.Equal(decimal.RequireFromString("1.2")))
	assert.True(t, in.OriginalPrice.Equal(decimal.RequireFromString("1.85")))
	assert.Equal(t, "2024-06-30", in.ValidUntil.String())
}

// --- dates ---

func TestDate_Scan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-06-30", d.String())

	require.NoError(t, d.Scan("2024-07-01T00:00:00Z"))
	assert.Equal(t, "2024-07-01", d.String())

	require.NoError(t, d.Scan([]byte("2024-07-02")))
	assert.Equal(t, "2024-07-02", d.String())

	assert.Error(t, d.Scan(42))
}

func TestDate_InvalidJSON(t *testing.T) {
	var d Date
	assert.Error(t, json.Unmarshal([]byte(`"30.06.2024"`), &d))
}

// --- queries ---

func TestRadiusQuery_Validate(t *testing.T) {
	zurich := geo.Coordinates{Latitude: 47.3769, Longitude: 8.5417}

	ok := RadiusQuery{Center: zurich, RadiusKm: DefaultRadiusKm, Page: DefaultPage()}
	require.NoError(t, ok.Validate())
	assert.Equal(t, 10_000.0, ok.RadiusMeters())

	tests := []struct {
		name   string
		query  RadiusQuery
		fields []string
	}{
		{"zero radius", RadiusQuery{Center: zurich, RadiusKm: 0, Page: DefaultPage()}, []string{"radius_km"}},
		{"radius above max", RadiusQuery{Center: zurich, RadiusKm: 50.01, Page: DefaultPage()}, []string{"radius_km"}},
		{"negative skip", RadiusQuery{Center: zurich, RadiusKm: 5, Page: Page{Skip: -1, Limit: 10}}, []string{"skip"}},
		{"zero limit", RadiusQuery{Center: zurich, RadiusKm: 5, Page: Page{Limit: 0}}, []string{"limit"}},
		{"limit above cap", RadiusQuery{Center: zurich, RadiusKm: 5, Page: Page{Limit: 201}}, []string{"limit"}},
		{"bad center", RadiusQuery{Center: geo.Coordinates{Latitude: -91, Longitude: 181}, RadiusKm: 5, Page: DefaultPage()}, []string{"latitude", "longitude"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.fields, validationFields(t, tt.query.Validate()))
		})
	}
}

func TestRadiusQuery_MaxRadiusIsInclusive(t *testing.T) {
	q := RadiusQuery{Center: geo.Coordinates{}, RadiusKm: MaxRadiusKm, Page: Page{Limit: MaxLimit}}
	assert.NoError(t, q.Validate())
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Fields: []FieldError{{Field: "name", Message: "is required"}, {Field: "limit", Message: "must be between 1 and 200"}}}
	assert.Equal(t, "validation failed: name: is required; limit: must be between 1 and 200", err.Error())
	assert.True(t, err.HasField("limit"))
	assert.False(t, err.HasField("skip"))
}
