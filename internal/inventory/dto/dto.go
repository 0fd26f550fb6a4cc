package dto

import "time"

type InventoryFilters struct {
	VendorID   string
	LocationID *string // nil ignores location, "" selects the vendor-wide stock
	ProductID  string
	LowStock   bool // quantity <= reorder_point
	Page       int
	PageSize   int
}

type MovementFilters struct {
	VendorID     string
	ProductID    string
	MovementType string
	StartDate    *time.Time
	EndDate      *time.Time
	Page         int
	PageSize     int
}
