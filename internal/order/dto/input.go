package dto

import "github.com/shopspring/decimal"

type OrderItemInput struct {
	ProductID string  `json:"product_id"`
	Quantity  float64 `json:"quantity"`
}

type CreateOrderInput struct {
	VendorID   string
	CustomerID *string
	LocationID *string
	RegisterID *string
	Currency   string
	Items      []OrderItemInput
	UserID     string
}

type PayOrderInput struct {
	VendorID       string
	OrderID        string
	TokenOrCardRef string
	UserID         string
}

// RefundOrderInput refunds the unrefunded balance when Amount is zero.
// RestockItems lists what goes back on the shelf; a full refund without
// items restocks the whole order.
type RefundOrderInput struct {
	VendorID     string
	OrderID      string
	Amount       decimal.Decimal
	RestockItems []OrderItemInput
	UserID       string
}

type VoidOrderInput struct {
	VendorID string
	OrderID  string
	UserID   string
}
