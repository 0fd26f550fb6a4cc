package usecase

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/apperror"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/cache"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/postgres"
	"github.com/fekuna/omnipos-marketplace-service/internal/product"
	"github.com/fekuna/omnipos-marketplace-service/internal/product/dto"
)

const listCacheTTL = 5 * time.Minute

var strainTypes = map[string]bool{"indica": true, "sativa": true, "hybrid": true, "cbd": true}

type productUseCase struct {
	repo   product.Repository
	cache  cache.Cache
	index  product.SearchIndex
	logger logger.ZapLogger
	now    func() time.Time
	async  func(func())
}

// NewProductUseCase accepts a nil cache or index; the matching feature is
// then skipped.
func NewProductUseCase(repo product.Repository, c cache.Cache, index product.SearchIndex, log logger.ZapLogger) product.UseCase {
	return &productUseCase{
		repo:   repo,
		cache:  c,
		index:  index,
		logger: log,
		now:    time.Now,
		async:  func(f func()) { go f() },
	}
}

func (uc *productUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	now := uc.now()
	p := &model.Product{
		BaseModel: model.BaseModel{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now},
		VendorID:  input.VendorID,
	}
	if err := apply(p, input); err != nil {
		return nil, err
	}

	if err := uc.repo.Create(ctx, p); err != nil {
		return nil, mapWriteError(err, p.SKU)
	}

	uc.afterWrite(ctx, p)
	uc.logger.Info("product created", zap.String("vendor_id", p.VendorID), zap.String("product_id", p.ID), zap.String("sku", p.SKU))
	return p, nil
}

func (uc *productUseCase) GetProduct(ctx context.Context, vendorID, id string) (*model.Product, error) {
	p, err := uc.repo.FindByID(ctx, vendorID, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperror.NotFound("product %s not found", id)
	}
	return p, nil
}

func (uc *productUseCase) ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	if filters.Status != "" && !validStatus(filters.Status) {
		return nil, 0, apperror.InvalidInput("unknown status %q", filters.Status)
	}

	cacheKey := listCacheKey(filters)
	if cached, ok := uc.cachedList(ctx, cacheKey); ok {
		return cached.Products, cached.Count, nil
	}

	if filters.SearchQuery != "" && uc.index != nil {
		products, count, err := uc.index.Search(ctx, filters)
		if err == nil {
			return products, count, nil
		}
		uc.logger.Warn("product search failed, falling back to postgres", zap.String("vendor_id", filters.VendorID), zap.Error(err))
	}

	products, count, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, 0, err
	}
	uc.storeList(ctx, cacheKey, products, count)
	return products, count, nil
}

func (uc *productUseCase) ListPublished(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	f := *filters
	f.Status = model.ProductStatusPublished
	return uc.ListProducts(ctx, &f)
}

func (uc *productUseCase) GetPublished(ctx context.Context, vendorID, id string) (*model.Product, error) {
	p, err := uc.GetProduct(ctx, vendorID, id)
	if err != nil {
		return nil, err
	}
	if !p.IsPublished() {
		return nil, apperror.NotFound("product %s not found", id)
	}
	return p, nil
}

func (uc *productUseCase) UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error) {
	p, err := uc.GetProduct(ctx, input.VendorID, input.ID)
	if err != nil {
		return nil, err
	}
	if err := apply(p, &input.CreateProductInput); err != nil {
		return nil, err
	}
	p.UpdatedAt = uc.now()

	if err := uc.repo.Update(ctx, p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("product %s not found", input.ID)
		}
		return nil, mapWriteError(err, p.SKU)
	}

	uc.afterWrite(ctx, p)
	return p, nil
}

func (uc *productUseCase) DeleteProduct(ctx context.Context, vendorID, id string) error {
	err := uc.repo.SoftDelete(ctx, vendorID, id, uc.now())
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NotFound("product %s not found", id)
	}
	if err != nil {
		return err
	}

	uc.invalidateLists(ctx, vendorID)
	if uc.index != nil {
		uc.async(func() {
			if err := uc.index.Delete(context.Background(), id); err != nil {
				uc.logger.Error("failed to remove product from index", zap.String("product_id", id), zap.Error(err))
			}
		})
	}
	uc.logger.Info("product deleted", zap.String("vendor_id", vendorID), zap.String("product_id", id))
	return nil
}

// afterWrite drops cached lists before returning and refreshes the search
// document in the background.
func (uc *productUseCase) afterWrite(ctx context.Context, p *model.Product) {
	uc.invalidateLists(ctx, p.VendorID)
	if uc.index == nil {
		return
	}
	doc := *p
	uc.async(func() {
		if err := uc.index.Index(context.Background(), &doc); err != nil {
			uc.logger.Error("failed to index product", zap.String("product_id", doc.ID), zap.Error(err))
		}
	})
}

type cachedList struct {
	Products []model.Product `json:"products"`
	Count    int             `json:"count"`
}

func listCacheKey(f *dto.ProductFilters) string {
	data, _ := json.Marshal(f)
	return fmt.Sprintf("products:list:%s:%x", f.VendorID, md5.Sum(data))
}

func (uc *productUseCase) cachedList(ctx context.Context, key string) (*cachedList, bool) {
	if uc.cache == nil {
		return nil, false
	}
	raw, err := uc.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			uc.logger.Warn("product list cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var out cachedList
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return &out, true
}

func (uc *productUseCase) storeList(ctx context.Context, key string, products []model.Product, count int) {
	if uc.cache == nil {
		return
	}
	data, err := json.Marshal(cachedList{Products: products, Count: count})
	if err != nil {
		return
	}
	if err := uc.cache.Set(ctx, key, data, listCacheTTL); err != nil {
		uc.logger.Warn("product list cache write failed", zap.Error(err))
	}
}

func (uc *productUseCase) invalidateLists(ctx context.Context, vendorID string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.DeletePattern(ctx, fmt.Sprintf("products:list:%s:*", vendorID)); err != nil {
		uc.logger.Warn("product list cache invalidation failed", zap.String("vendor_id", vendorID), zap.Error(err))
	}
}

func apply(p *model.Product, in *dto.CreateProductInput) error {
	sku := strings.TrimSpace(in.SKU)
	name := strings.TrimSpace(in.Name)
	if sku == "" {
		return apperror.InvalidInput("sku is required")
	}
	if name == "" {
		return apperror.InvalidInput("name is required")
	}
	if in.BasePrice.IsNegative() {
		return apperror.InvalidInput("base_price must not be negative")
	}
	if in.CostPrice != nil && in.CostPrice.IsNegative() {
		return apperror.InvalidInput("cost_price must not be negative")
	}
	status := in.Status
	if status == "" {
		status = model.ProductStatusDraft
	}
	if !validStatus(status) {
		return apperror.InvalidInput("unknown status %q", in.Status)
	}
	strain := strings.ToLower(strings.TrimSpace(in.StrainType))
	if strain != "" && !strainTypes[strain] {
		return apperror.InvalidInput("unknown strain_type %q", in.StrainType)
	}
	if err := validPercent("thc_percent", in.THCPercent); err != nil {
		return err
	}
	if err := validPercent("cbd_percent", in.CBDPercent); err != nil {
		return err
	}

	p.SKU = sku
	p.Name = name
	p.CategoryID = optional(in.CategoryID)
	p.PricingBlueprintID = optional(in.PricingBlueprintID)
	p.Description = optional(in.Description)
	p.BasePrice = in.BasePrice.Round(2)
	p.CostPrice = decimal.NullDecimal{}
	if in.CostPrice != nil {
		p.CostPrice = decimal.NewNullDecimal(in.CostPrice.Round(2))
	}
	p.StrainType = optional(strain)
	p.THCPercent = in.THCPercent
	p.CBDPercent = in.CBDPercent
	p.Status = status
	p.TrackInventory = in.TrackInventory
	p.ImageURL = optional(in.ImageURL)
	p.WooCommerceID = in.WooCommerceID
	return nil
}

func validStatus(s string) bool {
	switch s {
	case model.ProductStatusDraft, model.ProductStatusPublished, model.ProductStatusArchived:
		return true
	}
	return false
}

func validPercent(field string, v *float64) error {
	if v != nil && (*v < 0 || *v > 100) {
		return apperror.InvalidInput("%s must be between 0 and 100", field)
	}
	return nil
}

func mapWriteError(err error, sku string) error {
	switch {
	case postgres.IsUniqueViolation(err):
		return apperror.Conflict("sku %s already exists", sku)
	case postgres.IsForeignKeyViolation(err):
		return apperror.Wrap(apperror.KindInvalidInput, "unknown category or pricing blueprint", err)
	}
	return err
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
