package dto

import "github.com/shopspring/decimal"

type PriceBreakInput struct {
	BreakID  string          `json:"break_id"`
	Label    string          `json:"label"`
	Quantity float64         `json:"qty"`
	Unit     string          `json:"unit"`
	Price    decimal.Decimal `json:"price"`
}

type BlueprintInput struct {
	VendorID    string            `json:"-"`
	Name        string            `json:"name"`
	Description *string           `json:"description"`
	PriceBreaks []PriceBreakInput `json:"price_breaks"`
	IsActive    *bool             `json:"is_active"`
}

type UpdateBlueprintInput struct {
	ID string `json:"-"`
	BlueprintInput
}

// AssignInput targets exactly one of ProductID or CategoryID.
type AssignInput struct {
	VendorID    string  `json:"-"`
	BlueprintID string  `json:"blueprint_id"`
	ProductID   *string `json:"product_id"`
	CategoryID  *string `json:"category_id"`
}
