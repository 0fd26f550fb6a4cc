package dto

type CategoryFilters struct {
	VendorID string
	ParentID *string // nil ignores the parent, "" selects root categories
	IsActive *bool
	// IncludeChildren nests each category's direct children.
	IncludeChildren bool
	Page            int
	PageSize        int
}
