package dto

import "github.com/shopspring/decimal"

type CreateVendorInput struct {
	Slug    string
	Name    string
	Domain  string
	TaxRate decimal.Decimal
	LogoURL string
}

// UpdateVendorInput leaves nil fields untouched. Empty strings clear the
// optional columns.
type UpdateVendorInput struct {
	ID                string
	Name              *string
	Domain            *string
	TaxRate           *decimal.Decimal
	LogoURL           *string
	WooCommerceURL    *string
	WooCommerceKey    *string
	WooCommerceSecret *string
	AlpineIQUserID    *string
}
