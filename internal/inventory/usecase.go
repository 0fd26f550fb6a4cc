package inventory

import (
	"context"

	"github.com/fekuna/omnipos-marketplace-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-marketplace-service/internal/model"
)

type UseCase interface {
	GetProductInventory(ctx context.Context, vendorID, productID string, locationID *string) (*model.Inventory, error)
	ListInventory(ctx context.Context, filters *dto.InventoryFilters) ([]model.Inventory, int, error)
	ListLowStock(ctx context.Context, vendorID string, locationID *string, page, pageSize int) ([]model.Inventory, int, error)
	AdjustInventory(ctx context.Context, input *dto.AdjustInventoryInput) (*model.Inventory, error)
	ReceiveInventory(ctx context.Context, input *dto.ReceiveInventoryInput) ([]model.Inventory, error)
	SetReorderPoint(ctx context.Context, input *dto.ReorderPointInput) (*model.Inventory, error)
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.InventoryMovement, int, error)

	// DeductForSale and RestockForReturn are idempotent per reference.
	DeductForSale(ctx context.Context, input *dto.StockMovementInput) error
	RestockForReturn(ctx context.Context, input *dto.StockMovementInput) error
}
