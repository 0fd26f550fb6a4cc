package dto

type CreateCategoryInput struct {
	VendorID    string
	ParentID    string
	Name        string
	Slug        string
	Description string
	ImageURL    string
	SortOrder   int
}

type UpdateCategoryInput struct {
	ID string
	CreateCategoryInput
	IsActive bool
}
