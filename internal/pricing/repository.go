package pricing

import (
	"context"

	"github.com/fekuna/omnipos-marketplace-service/internal/model"
)

type Repository interface {
	CreateBlueprint(ctx context.Context, bp *model.PricingBlueprint) error
	FindBlueprint(ctx context.Context, vendorID, id string) (*model.PricingBlueprint, error)
	ListBlueprints(ctx context.Context, vendorID string, activeOnly bool) ([]model.PricingBlueprint, error)
	UpdateBlueprint(ctx context.Context, bp *model.PricingBlueprint) error
	DeleteBlueprint(ctx context.Context, vendorID, id string) error

	// UpsertAssignment replaces any existing assignment for the same target.
	UpsertAssignment(ctx context.Context, a *model.PricingAssignment) error
	DeleteAssignment(ctx context.Context, vendorID, id string) error
	ListAssignments(ctx context.Context, vendorID, blueprintID string) ([]model.PricingAssignment, error)
	FindProductAssignment(ctx context.Context, vendorID, productID string) (*model.PricingAssignment, error)
	FindCategoryAssignment(ctx context.Context, vendorID, categoryID string) (*model.PricingAssignment, error)
}

// ProductReader is the slice of the product store quoting needs.
type ProductReader interface {
	FindByID(ctx context.Context, vendorID, id string) (*model.Product, error)
}
