package dto

import "github.com/shopspring/decimal"

type CreateProductInput struct {
	VendorID           string
	CategoryID         string
	PricingBlueprintID string
	SKU                string
	Name               string
	Description        string
	BasePrice          decimal.Decimal
	CostPrice          *decimal.Decimal
	StrainType         string
	THCPercent         *float64
	CBDPercent         *float64
	Status             string
	TrackInventory     bool
	ImageURL           string
	WooCommerceID      *int64
}

// UpdateProductInput replaces every editable field.
type UpdateProductInput struct {
	ID string
	CreateProductInput
}
