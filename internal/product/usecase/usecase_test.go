package usecase

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/apperror"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/cache"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-marketplace-service/internal/product"
	"github.com/fekuna/omnipos-marketplace-service/internal/product/dto"
)

type fakeRepo struct {
	CreateFunc     func(ctx context.Context, p *model.Product) error
	FindByIDFunc   func(ctx context.Context, vendorID, id string) (*model.Product, error)
	FindAllFunc    func(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error)
	UpdateFunc     func(ctx context.Context, p *model.Product) error
	SoftDeleteFunc func(ctx context.Context, vendorID, id string, at time.Time) error
	findAllCalls   int
}

func (f *fakeRepo) Create(ctx context.Context, p *model.Product) error {
	if f.CreateFunc != nil {
		return f.CreateFunc(ctx, p)
	}
	return nil
}

func (f *fakeRepo) FindByID(ctx context.Context, vendorID, id string) (*model.Product, error) {
	return f.FindByIDFunc(ctx, vendorID, id)
}

func (f *fakeRepo) FindAll(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	f.findAllCalls++
	return f.FindAllFunc(ctx, filters)
}

func (f *fakeRepo) FindWithWooCommerceID(ctx context.Context, vendorID string) ([]model.Product, error) {
	return nil, nil
}

func (f *fakeRepo) Update(ctx context.Context, p *model.Product) error {
	if f.UpdateFunc != nil {
		return f.UpdateFunc(ctx, p)
	}
	return nil
}

func (f *fakeRepo) SoftDelete(ctx context.Context, vendorID, id string, at time.Time) error {
	return f.SoftDeleteFunc(ctx, vendorID, id, at)
}

type fakeIndex struct {
	indexed   []string
	deleted   []string
	searchErr error
	hits      []model.Product
}

func (f *fakeIndex) Index(_ context.Context, p *model.Product) error {
	f.indexed = append(f.indexed, p.ID)
	return nil
}

func (f *fakeIndex) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ *dto.ProductFilters) ([]model.Product, int, error) {
	if f.searchErr != nil {
		return nil, 0, f.searchErr
	}
	return f.hits, len(f.hits), nil
}

func newUseCase(repo *fakeRepo, idx product.SearchIndex) *productUseCase {
	uc := NewProductUseCase(repo, cache.NewMemory(), idx, logger.NewNop()).(*productUseCase)
	uc.async = func(f func()) { f() }
	return uc
}

func validInput() dto.CreateProductInput {
	thc := 22.5
	return dto.CreateProductInput{
		VendorID:   "vendor-1",
		SKU:        " BD-1G ",
		Name:       "Blue Dream 1g",
		BasePrice:  decimal.RequireFromString("12.999"),
		StrainType: "Hybrid",
		THCPercent: &thc,
	}
}

func TestCreateProductDefaults(t *testing.T) {
	idx := &fakeIndex{}
	uc := newUseCase(&fakeRepo{}, idx)

	in := validInput()
	p, err := uc.CreateProduct(context.Background(), &in)
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if p.SKU != "BD-1G" || p.Status != model.ProductStatusDraft || *p.StrainType != "hybrid" {
		t.Fatalf("unexpected product %+v", p)
	}
	if !p.BasePrice.Equal(decimal.RequireFromString("13")) {
		t.Fatalf("base price = %s", p.BasePrice)
	}
	if len(idx.indexed) != 1 || idx.indexed[0] != p.ID {
		t.Fatalf("indexed = %v", idx.indexed)
	}
}

func TestCreateProductValidation(t *testing.T) {
	uc := newUseCase(&fakeRepo{}, nil)
	over := 101.0

	cases := map[string]func(in *dto.CreateProductInput){
		"missing sku":    func(in *dto.CreateProductInput) { in.SKU = "" },
		"missing name":   func(in *dto.CreateProductInput) { in.Name = " " },
		"negative price": func(in *dto.CreateProductInput) { in.BasePrice = decimal.NewFromInt(-1) },
		"bad status":     func(in *dto.CreateProductInput) { in.Status = "live" },
		"bad strain":     func(in *dto.CreateProductInput) { in.StrainType = "ruderalis" },
		"thc over 100":   func(in *dto.CreateProductInput) { in.THCPercent = &over },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			if _, err := uc.CreateProduct(context.Background(), &in); apperror.KindOf(err) != apperror.KindInvalidInput {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	repo := &fakeRepo{CreateFunc: func(ctx context.Context, p *model.Product) error {
		return &pgconn.PgError{Code: "23505", ConstraintName: "idx_products_vendor_sku"}
	}}
	uc := newUseCase(repo, nil)

	in := validInput()
	_, err := uc.CreateProduct(context.Background(), &in)
	if apperror.KindOf(err) != apperror.KindConflict {
		t.Fatalf("err = %v", err)
	}
}

func TestListProductsCachesAndInvalidates(t *testing.T) {
	repo := &fakeRepo{FindAllFunc: func(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
		return []model.Product{{BaseModel: model.BaseModel{ID: "p-1"}, VendorID: f.VendorID}}, 1, nil
	}}
	uc := newUseCase(repo, nil)
	ctx := context.Background()
	filters := &dto.ProductFilters{VendorID: "vendor-1", Page: 1, PageSize: 20}

	for i := 0; i < 2; i++ {
		items, total, err := uc.ListProducts(ctx, filters)
		if err != nil || total != 1 || items[0].ID != "p-1" {
			t.Fatalf("ListProducts = %v %d %v", items, total, err)
		}
	}
	if repo.findAllCalls != 1 {
		t.Fatalf("repo calls = %d, want 1", repo.findAllCalls)
	}

	in := validInput()
	if _, err := uc.CreateProduct(ctx, &in); err != nil {
		t.Fatal(err)
	}
	if _, _, err := uc.ListProducts(ctx, filters); err != nil {
		t.Fatal(err)
	}
	if repo.findAllCalls != 2 {
		t.Fatalf("cache not invalidated, repo calls = %d", repo.findAllCalls)
	}
}

func TestListProductsSearchFallsBackToPostgres(t *testing.T) {
	repo := &fakeRepo{FindAllFunc: func(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
		return []model.Product{{BaseModel: model.BaseModel{ID: "from-db"}}}, 1, nil
	}}
	idx := &fakeIndex{hits: []model.Product{{BaseModel: model.BaseModel{ID: "from-es"}}}}
	uc := newUseCase(repo, idx)
	ctx := context.Background()

	items, _, err := uc.ListProducts(ctx, &dto.ProductFilters{VendorID: "vendor-1", SearchQuery: "dream"})
	if err != nil || items[0].ID != "from-es" {
		t.Fatalf("search = %v %v", items, err)
	}

	idx.searchErr = errors.New("cluster red")
	items, _, err = uc.ListProducts(ctx, &dto.ProductFilters{VendorID: "vendor-1", SearchQuery: "kush"})
	if err != nil || items[0].ID != "from-db" {
		t.Fatalf("fallback = %v %v", items, err)
	}
}

func TestListPublishedForcesStatus(t *testing.T) {
	var seen string
	repo := &fakeRepo{FindAllFunc: func(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
		seen = f.Status
		return nil, 0, nil
	}}
	uc := newUseCase(repo, nil)

	filters := &dto.ProductFilters{VendorID: "vendor-1", Status: model.ProductStatusDraft}
	if _, _, err := uc.ListPublished(context.Background(), filters); err != nil {
		t.Fatal(err)
	}
	if seen != model.ProductStatusPublished {
		t.Fatalf("status = %q", seen)
	}
	if filters.Status != model.ProductStatusDraft {
		t.Fatal("caller filters mutated")
	}
}

func TestGetPublishedHidesDrafts(t *testing.T) {
	repo := &fakeRepo{FindByIDFunc: func(ctx context.Context, vendorID, id string) (*model.Product, error) {
		return &model.Product{BaseModel: model.BaseModel{ID: id}, Status: model.ProductStatusDraft}, nil
	}}
	uc := newUseCase(repo, nil)

	if _, err := uc.GetPublished(context.Background(), "vendor-1", "p-1"); apperror.KindOf(err) != apperror.KindNotFound {
		t.Fatalf("err = %v", err)
	}
	if _, err := uc.GetProduct(context.Background(), "vendor-1", "p-1"); err != nil {
		t.Fatalf("vendor view: %v", err)
	}
}

func TestDeleteProduct(t *testing.T) {
	idx := &fakeIndex{}
	repo := &fakeRepo{SoftDeleteFunc: func(ctx context.Context, vendorID, id string, at time.Time) error {
		if id == "missing" {
			return sql.ErrNoRows
		}
		return nil
	}}
	uc := newUseCase(repo, idx)

	if err := uc.DeleteProduct(context.Background(), "vendor-1", "p-1"); err != nil {
		t.Fatal(err)
	}
	if len(idx.deleted) != 1 || idx.deleted[0] != "p-1" {
		t.Fatalf("deleted = %v", idx.deleted)
	}
	if err := uc.DeleteProduct(context.Background(), "vendor-1", "missing"); apperror.KindOf(err) != apperror.KindNotFound {
		t.Fatalf("err = %v", err)
	}
}
