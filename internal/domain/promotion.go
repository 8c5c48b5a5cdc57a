package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// maxPrice is the largest amount a numeric(10,2) column holds.
var maxPrice = decimal.RequireFromString("99999999.99")

// Promotion is a discounted product offered by one store.
type Promotion struct {
	ID            int64            `json:"id"`
	StoreID       int64            `json:"store_id"`
	ProductName   string           `json:"product_name"`
	SalePrice     decimal.Decimal  `json:"sale_price"`
	OriginalPrice *decimal.Decimal `json:"original_price"`
	ValidUntil    *Date            `json:"valid_until"`
	Description   *string          `json:"description"`
	ImageURL      *string          `json:"image_url"`
	LastUpdated   time.Time        `json:"last_updated"`
}

// PromotionInput is the payload for creating a promotion. StoreID must match
// the store the promotion is created under.
type PromotionInput struct {
	StoreID       *int64           `json:"store_id"`
	ProductName   string           `json:"product_name"`
	SalePrice     *decimal.Decimal `json:"sale_price"`
	OriginalPrice *decimal.Decimal `json:"original_price"`
	ValidUntil    *Date            `json:"valid_until"`
	Description   *string          `json:"description"`
	ImageURL      *string          `json:"image_url"`
}

// Validate checks the payload fields. It does not compare StoreID with the
// target store; see CheckStore.
func (in PromotionInput) Validate() error {
	var errs fieldErrors
	if in.StoreID == nil {
		errs.add("store_id", "is required")
	}
	if strings.TrimSpace(in.ProductName) == "" {
		errs.add("product_name", "is required")
	}
	if in.SalePrice == nil {
		errs.add("sale_price", "is required")
	} else {
		validatePrice(&errs, "sale_price", *in.SalePrice)
	}
	if in.OriginalPrice != nil {
		validatePrice(&errs, "original_price", *in.OriginalPrice)
	}
	return errs.err()
}

// CheckStore returns a ValidationError wrapping ErrStoreIDMismatch when the
// payload names a store other than storeID.
func (in PromotionInput) CheckStore(storeID int64) error {
	if in.StoreID != nil && *in.StoreID != storeID {
		return mismatchError()
	}
	return nil
}

// Promotion builds the promotion described by a validated input.
func (in PromotionInput) Promotion(now time.Time) Promotion {
	return Promotion{
		StoreID:       *in.StoreID,
		ProductName:   in.ProductName,
		SalePrice:     *in.SalePrice,
		OriginalPrice: in.OriginalPrice,
		ValidUntil:    in.ValidUntil,
		Description:   in.Description,
		ImageURL:      in.ImageURL,
		LastUpdated:   now,
	}
}

func validatePrice(errs *fieldErrors, field string, v decimal.Decimal) {
	switch {
	case v.IsNegative():
		errs.add(field, "must not be negative")
	case !v.Equal(v.Round(2)):
		errs.add(field, "must have at most 2 decimal places")
	case v.GreaterThan(maxPrice):
		errs.add(field, "must not exceed "+maxPrice.String())
	}
}
