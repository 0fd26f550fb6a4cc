package dto

type ProductFilters struct {
	VendorID    string `json:"vendor_id"`
	CategoryID  string `json:"category_id,omitempty"`
	Status      string `json:"status,omitempty"`
	SearchQuery string `json:"q,omitempty"` // name, sku, strain
	SortBy      string `json:"sort_by,omitempty"`
	SortOrder   string `json:"sort_order,omitempty"`
	Page        int    `json:"page"`
	PageSize    int    `json:"page_size"`
}

func (f *ProductFilters) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}
