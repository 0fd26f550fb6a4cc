package model

import "github.com/shopspring/decimal"

const (
	VendorStatusActive    = "active"
	VendorStatusSuspended = "suspended"
)

type Vendor struct {
	BaseModel
	Slug              string          `db:"slug" json:"slug"`
	Name              string          `db:"name" json:"name"`
	Domain            *string         `db:"domain" json:"domain"`
	Status            string          `db:"status" json:"status"`
	TaxRate           decimal.Decimal `db:"tax_rate" json:"tax_rate"`
	LogoURL           *string         `db:"logo_url" json:"logo_url"`
	WooCommerceURL    *string         `db:"woocommerce_url" json:"-"`
	WooCommerceKey    *string         `db:"woocommerce_consumer_key" json:"-"`
	WooCommerceSecret *string         `db:"woocommerce_consumer_secret" json:"-"`
	AlpineIQUserID    *string         `db:"alpineiq_user_id" json:"-"`
}

func (v *Vendor) IsActive() bool {
	return v.Status == VendorStatusActive
}

func (v *Vendor) HasWooCommerce() bool {
	return v.WooCommerceURL != nil && *v.WooCommerceURL != "" &&
		v.WooCommerceKey != nil && v.WooCommerceSecret != nil
}
