package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ProductStatusDraft     = "draft"
	ProductStatusPublished = "published"
	ProductStatusArchived  = "archived"
)

type Product struct {
	BaseModel
	VendorID           string              `db:"vendor_id" json:"vendor_id"`
	CategoryID         *string             `db:"category_id" json:"category_id"`
	PricingBlueprintID *string             `db:"pricing_blueprint_id" json:"pricing_blueprint_id"`
	SKU                string              `db:"sku" json:"sku"`
	Name               string              `db:"name" json:"name"`
	Description        *string             `db:"description" json:"description"`
	BasePrice          decimal.Decimal     `db:"base_price" json:"base_price"`
	CostPrice          decimal.NullDecimal `db:"cost_price" json:"cost_price"`
	StrainType         *string             `db:"strain_type" json:"strain_type"`
	THCPercent         *float64            `db:"thc_percent" json:"thc_percent"`
	CBDPercent         *float64            `db:"cbd_percent" json:"cbd_percent"`
	Status             string              `db:"status" json:"status"`
	TrackInventory     bool                `db:"track_inventory" json:"track_inventory"`
	ImageURL           *string             `db:"image_url" json:"image_url"`
	WooCommerceID      *int64              `db:"woocommerce_id" json:"woocommerce_id"`
	DeletedAt          *time.Time          `db:"deleted_at" json:"-"`
}

func (p *Product) IsPublished() bool {
	return p.Status == ProductStatusPublished && p.DeletedAt == nil
}
