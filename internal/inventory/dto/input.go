package dto

type AdjustInventoryInput struct {
	VendorID       string
	LocationID     *string
	ProductID      string
	QuantityChange float64
	Reason         string
	UserID         string
}

type ReceiveItem struct {
	ProductID string
	Quantity  float64
}

// ReceiveInventoryInput books one delivery against a purchase reference.
type ReceiveInventoryInput struct {
	VendorID    string
	LocationID  *string
	ReferenceID string
	Items       []ReceiveItem
	Notes       string
	UserID      string
}

type ReorderPointInput struct {
	VendorID     string
	LocationID   *string
	ProductID    string
	ReorderPoint float64
}

type StockMovementInput struct {
	VendorID    string
	LocationID  *string
	OrderID     string
	ReferenceID string
	Items       []ReceiveItem
}
