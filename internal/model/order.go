package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusRefunded  = "refunded"
	OrderStatusVoided    = "voided"
	OrderStatusCancelled = "cancelled"
)

type Order struct {
	BaseModel
	VendorID      string          `db:"vendor_id" json:"vendor_id"`
	OrderNumber   string          `db:"order_number" json:"order_number"`
	CustomerID    *string         `db:"customer_id" json:"customer_id"`
	LocationID    *string         `db:"location_id" json:"location_id"`
	RegisterID    *string         `db:"register_id" json:"register_id"`
	Status        string          `db:"status" json:"status"`
	Subtotal      decimal.Decimal `db:"subtotal" json:"subtotal"`
	TaxAmount     decimal.Decimal `db:"tax_amount" json:"tax_amount"`
	Total         decimal.Decimal `db:"total" json:"total"`
	RefundedTotal decimal.Decimal `db:"refunded_total" json:"refunded_total"`
	Currency      string          `db:"currency" json:"currency"`
	TransactionID *string         `db:"transaction_id" json:"transaction_id"`
	PaidAt        *time.Time      `db:"paid_at" json:"paid_at"`
	CreatedBy     *string         `db:"created_by" json:"created_by"`
	Items         []OrderItem     `db:"-" json:"items"`
}

type OrderItem struct {
	ID           string          `db:"id" json:"id"`
	OrderID      string          `db:"order_id" json:"order_id"`
	ProductID    string          `db:"product_id" json:"product_id"`
	ProductName  string          `db:"product_name" json:"product_name"`
	Quantity     float64         `db:"quantity" json:"quantity"`
	UnitPrice    decimal.Decimal `db:"unit_price" json:"unit_price"`
	LineTotal    decimal.Decimal `db:"line_total" json:"line_total"`
	PriceBreakID *string         `db:"price_break_id" json:"price_break_id"`
	// TrackInventory is copied from the product when the order is placed.
	TrackInventory bool `db:"track_inventory" json:"track_inventory"`
	// RestockedQuantity is how much of the line refunds have put back.
	RestockedQuantity float64 `db:"restocked_quantity" json:"restocked_quantity"`
}
