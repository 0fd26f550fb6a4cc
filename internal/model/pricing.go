package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

// PriceBreak is one tier of a blueprint: at Quantity units (or more) each
// unit costs Price.
type PriceBreak struct {
	BreakID  string          `json:"break_id"`
	Label    string          `json:"label"`
	Quantity float64         `json:"qty"`
	Unit     string          `json:"unit"`
	Price    decimal.Decimal `json:"price"`
}

type PriceBreaks []PriceBreak

func (p PriceBreaks) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *PriceBreaks) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*p = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("model.PriceBreaks: unsupported scan type")
	}
	return json.Unmarshal(raw, p)
}

type PricingBlueprint struct {
	BaseModel
	VendorID    string      `db:"vendor_id" json:"vendor_id"`
	Name        string      `db:"name" json:"name"`
	Description *string     `db:"description" json:"description"`
	PriceBreaks PriceBreaks `db:"price_breaks" json:"price_breaks"`
	IsActive    bool        `db:"is_active" json:"is_active"`
}

type PricingAssignment struct {
	BaseModel
	VendorID    string  `db:"vendor_id" json:"vendor_id"`
	BlueprintID string  `db:"blueprint_id" json:"blueprint_id"`
	ProductID   *string `db:"product_id" json:"product_id"`
	CategoryID  *string `db:"category_id" json:"category_id"`
}
