package order

import (
	"context"

	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/order/dto"
	"github.com/fekuna/omnipos-marketplace-service/internal/pricing"
)

type Repository interface {
	// Create stores the order and its items in one transaction.
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, vendorID, id string) (*model.Order, error)
	FindAll(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, int, error)
	// UpdateStatus persists the payment fields and each item's restocked
	// quantity only while the stored status still equals from; otherwise it
	// returns sql.ErrNoRows.
	UpdateStatus(ctx context.Context, order *model.Order, from string) error
}

type Quoter interface {
	Quote(ctx context.Context, vendorID, productID string, quantity float64) (*pricing.Quote, error)
}

type VendorReader interface {
	GetVendor(ctx context.Context, id string) (*model.Vendor, error)
}
