package dto

import "time"

type OrderFilters struct {
	VendorID   string
	Status     string
	LocationID string
	StartDate  *time.Time
	EndDate    *time.Time
	Page       int
	PageSize   int
}
