package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-marketplace-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-marketplace-service/internal/model"
)

var (
	ErrInsufficientStock = errors.New("insufficient inventory")
	ErrUnknownProduct    = errors.New("unknown product")
)

// StockError names the product that would have gone negative.
type StockError struct {
	ProductID string
	Available float64
	Requested float64
}

func (e *StockError) Error() string {
	if e.Requested == 0 {
		return "insufficient inventory for product " + e.ProductID
	}
	return fmt.Sprintf("insufficient inventory for product %s: have %g, need %g", e.ProductID, e.Available, e.Requested)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

type StockChange struct {
	ProductID string
	Delta     float64
}

// Batch is applied in a single transaction: either every change and its
// movement row is written or none is.
type Batch struct {
	VendorID      string
	LocationID    *string
	MovementType  string
	ReferenceType string
	ReferenceID   string
	Notes         string
	CreatedBy     string
	Changes       []StockChange
	At            time.Time
}

type Repository interface {
	GetByProduct(ctx context.Context, vendorID, productID string, locationID *string) (*model.Inventory, error)
	FindAll(ctx context.Context, filters *dto.InventoryFilters) ([]model.Inventory, int, error)
	ApplyBatch(ctx context.Context, batch *Batch) ([]model.Inventory, error)
	SetReorderPoint(ctx context.Context, vendorID, productID string, locationID *string, point float64, at time.Time) (*model.Inventory, error)
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.InventoryMovement, int, error)
	HasMovement(ctx context.Context, vendorID, referenceType, referenceID string) (bool, error)
}
