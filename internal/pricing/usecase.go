package pricing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/pricing/dto"
)

// Quote is the price of one order line.
type Quote struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	BlueprintID *string `json:"blueprint_id"`
	Quantity    float64 `json:"quantity"`
	// TrackInventory reports whether selling this product moves stock.
	TrackInventory bool              `json:"track_inventory"`
	UnitPrice      decimal.Decimal   `json:"unit_price"`
	LineTotal      decimal.Decimal   `json:"line_total"`
	Break          *model.PriceBreak `json:"break"`
}

type UseCase interface {
	CreateBlueprint(ctx context.Context, input *dto.BlueprintInput) (*model.PricingBlueprint, error)
	GetBlueprint(ctx context.Context, vendorID, id string) (*model.PricingBlueprint, error)
	ListBlueprints(ctx context.Context, vendorID string, activeOnly bool) ([]model.PricingBlueprint, error)
	UpdateBlueprint(ctx context.Context, input *dto.UpdateBlueprintInput) (*model.PricingBlueprint, error)
	DeleteBlueprint(ctx context.Context, vendorID, id string) error

	Assign(ctx context.Context, input *dto.AssignInput) (*model.PricingAssignment, error)
	Unassign(ctx context.Context, vendorID, id string) error
	ListAssignments(ctx context.Context, vendorID, blueprintID string) ([]model.PricingAssignment, error)

	Quote(ctx context.Context, vendorID, productID string, quantity float64) (*Quote, error)
}
