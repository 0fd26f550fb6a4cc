package product

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/product/dto"
)

// Repository never returns soft-deleted products.
type Repository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, vendorID, id string) (*model.Product, error)
	FindAll(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)
	FindWithWooCommerceID(ctx context.Context, vendorID string) ([]model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	SoftDelete(ctx context.Context, vendorID, id string, at time.Time) error
}

// SearchIndex mirrors products into a full-text index.
type SearchIndex interface {
	Index(ctx context.Context, p *model.Product) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)
}
