package tenant

import (
	"context"

	"github.com/fekuna/omnipos-marketplace-service/internal/model"
)

type Repository interface {
	Create(ctx context.Context, v *model.Vendor) error
	FindByID(ctx context.Context, id string) (*model.Vendor, error)
	FindBySlug(ctx context.Context, slug string) (*model.Vendor, error)
	FindByDomain(ctx context.Context, domain string) (*model.Vendor, error)
	Update(ctx context.Context, v *model.Vendor) error
	UpdateStatus(ctx context.Context, id, status string) error
}
