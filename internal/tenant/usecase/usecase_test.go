package usecase

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/apperror"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/cache"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-marketplace-service/internal/tenant/dto"
)

type fakeRepo struct {
	vendors     map[string]*model.Vendor
	domainCalls int
}

func (f *fakeRepo) Create(_ context.Context, v *model.Vendor) error {
	f.vendors[v.ID] = v
	return nil
}

func (f *fakeRepo) FindByID(_ context.Context, id string) (*model.Vendor, error) {
	if v, ok := f.vendors[id]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeRepo) FindBySlug(_ context.Context, slug string) (*model.Vendor, error) {
	for _, v := range f.vendors {
		if v.Slug == slug {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) FindByDomain(_ context.Context, domain string) (*model.Vendor, error) {
	f.domainCalls++
	for _, v := range f.vendors {
		if v.Domain != nil && *v.Domain == domain {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) Update(_ context.Context, v *model.Vendor) error {
	f.vendors[v.ID] = v
	return nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id, status string) error {
	f.vendors[id].Status = status
	return nil
}

func strPtr(s string) *string { return &s }

func newFixture() (*fakeRepo, *vendorUseCase) {
	repo := &fakeRepo{vendors: map[string]*model.Vendor{
		"v-1": {BaseModel: model.BaseModel{ID: "v-1"}, Slug: "greenleaf", Name: "Green Leaf", Status: model.VendorStatusActive, Domain: strPtr("shop.greenleaf.com")},
		"v-2": {BaseModel: model.BaseModel{ID: "v-2"}, Slug: "closed", Name: "Closed", Status: model.VendorStatusSuspended},
	}}
	uc := NewVendorUseCase(repo, cache.NewMemory(), "market.test", logger.NewNop()).(*vendorUseCase)
	return repo, uc
}

func TestResolveByHost(t *testing.T) {
	_, uc := newFixture()
	ctx := context.Background()

	cases := []struct {
		host string
		want string
	}{
		{"shop.greenleaf.com", "v-1"},
		{"WWW.Shop.GreenLeaf.com:443", "v-1"},
		{"greenleaf.market.test", "v-1"},
		{"greenleaf.market.test:3000", "v-1"},
	}
	for _, tc := range cases {
		v, err := uc.ResolveByHost(ctx, tc.host)
		if err != nil {
			t.Fatalf("ResolveByHost(%q): %v", tc.host, err)
		}
		if v.ID != tc.want {
			t.Fatalf("ResolveByHost(%q) = %s, want %s", tc.host, v.ID, tc.want)
		}
	}
}

func TestResolveByHostNotFound(t *testing.T) {
	_, uc := newFixture()
	for _, host := range []string{"", "unknown.example.com", "a.b.market.test", "closed.market.test"} {
		_, err := uc.ResolveByHost(context.Background(), host)
		if apperror.KindOf(err) != apperror.KindNotFound {
			t.Fatalf("ResolveByHost(%q) err = %v, want not found", host, err)
		}
	}
}

func TestResolveByHostUsesCacheButRechecksStatus(t *testing.T) {
	repo, uc := newFixture()
	ctx := context.Background()

	if _, err := uc.ResolveByHost(ctx, "shop.greenleaf.com"); err != nil {
		t.Fatal(err)
	}
	if _, err := uc.ResolveByHost(ctx, "shop.greenleaf.com"); err != nil {
		t.Fatal(err)
	}
	if repo.domainCalls != 1 {
		t.Fatalf("domain lookups = %d, want 1", repo.domainCalls)
	}

	repo.vendors["v-1"].Status = model.VendorStatusSuspended
	_, err := uc.ResolveByHost(ctx, "shop.greenleaf.com")
	if apperror.KindOf(err) != apperror.KindNotFound {
		t.Fatalf("suspended vendor resolved from cache: %v", err)
	}
}

func TestResolveBySlugSuspended(t *testing.T) {
	_, uc := newFixture()
	if _, err := uc.ResolveBySlug(context.Background(), "closed"); apperror.KindOf(err) != apperror.KindNotFound {
		t.Fatalf("err = %v", err)
	}
	v, err := uc.ResolveBySlug(context.Background(), " GreenLeaf ")
	if err != nil || v.ID != "v-1" {
		t.Fatalf("ResolveBySlug = %v, %v", v, err)
	}
}

func TestCreateVendorValidation(t *testing.T) {
	_, uc := newFixture()
	ctx := context.Background()

	bad := []dto.CreateVendorInput{
		{Slug: "Bad Slug", Name: "x"},
		{Slug: "ok", Name: " "},
		{Slug: "ok", Name: "x", TaxRate: decimal.NewFromInt(-1)},
	}
	for _, in := range bad {
		if _, err := uc.CreateVendor(ctx, &in); apperror.KindOf(err) != apperror.KindInvalidInput {
			t.Fatalf("CreateVendor(%+v) err = %v", in, err)
		}
	}

	v, err := uc.CreateVendor(ctx, &dto.CreateVendorInput{Slug: "new-shop", Name: "New Shop", Domain: "WWW.NewShop.com"})
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsActive() || v.Domain == nil || *v.Domain != "newshop.com" {
		t.Fatalf("unexpected vendor %+v", v)
	}
}

func TestUpdateVendorClearsHostCache(t *testing.T) {
	repo, uc := newFixture()
	ctx := context.Background()

	if _, err := uc.ResolveByHost(ctx, "shop.greenleaf.com"); err != nil {
		t.Fatal(err)
	}
	if _, err := uc.UpdateVendor(ctx, &dto.UpdateVendorInput{ID: "v-1", Domain: strPtr("greenleaf.shop")}); err != nil {
		t.Fatal(err)
	}
	if _, err := uc.ResolveByHost(ctx, "shop.greenleaf.com"); apperror.KindOf(err) != apperror.KindNotFound {
		t.Fatalf("old domain still resolves: %v", err)
	}
	if repo.domainCalls != 2 {
		t.Fatalf("domain lookups = %d, want 2", repo.domainCalls)
	}
}
