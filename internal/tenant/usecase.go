package tenant

import (
	"context"

	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/tenant/dto"
)

type UseCase interface {
	CreateVendor(ctx context.Context, input *dto.CreateVendorInput) (*model.Vendor, error)
	GetVendor(ctx context.Context, id string) (*model.Vendor, error)
	UpdateVendor(ctx context.Context, input *dto.UpdateVendorInput) (*model.Vendor, error)
	SetStatus(ctx context.Context, id, status string) error

	// ResolveByHost and ResolveBySlug only return active vendors.
	ResolveByHost(ctx context.Context, host string) (*model.Vendor, error)
	ResolveBySlug(ctx context.Context, slug string) (*model.Vendor, error)
}
