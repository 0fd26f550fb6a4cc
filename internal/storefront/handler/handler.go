// Package handler serves a vendor's public catalog. The vendor comes from the
// request host, or from X-Vendor-Slug when the storefront is proxied.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fekuna/omnipos-marketplace-service/internal/category"
	categoryhandler "github.com/fekuna/omnipos-marketplace-service/internal/category/handler"
	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/apperror"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/httpx"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-marketplace-service/internal/product"
	producthandler "github.com/fekuna/omnipos-marketplace-service/internal/product/handler"
	"github.com/fekuna/omnipos-marketplace-service/internal/tenant"
)

const (
	vendorKey  = "storefront.vendor"
	slugHeader = "X-Vendor-Slug"
)

type StorefrontHandler struct {
	vendors    tenant.UseCase
	products   product.UseCase
	categories category.UseCase
	logger     logger.ZapLogger
}

func NewStorefrontHandler(vendors tenant.UseCase, products product.UseCase, categories category.UseCase, log logger.ZapLogger) *StorefrontHandler {
	return &StorefrontHandler{
		vendors:    vendors,
		products:   products,
		categories: categories,
		logger:     log,
	}
}

func (h *StorefrontHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sf := rg.Group("/storefront", h.ResolveVendor)
	sf.GET("/vendor", h.GetVendor)
	sf.GET("/categories", h.ListCategories)
	sf.GET("/products", h.ListProducts)
	sf.GET("/products/:id", h.GetProduct)
}

// ResolveVendor aborts with 404 unless an active vendor matches the request.
func (h *StorefrontHandler) ResolveVendor(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		v   *model.Vendor
		err error
	)
	if slug := c.GetHeader(slugHeader); slug != "" {
		v, err = h.vendors.ResolveBySlug(ctx, slug)
	} else {
		v, err = h.vendors.ResolveByHost(ctx, c.Request.Host)
	}
	if err != nil {
		if apperror.KindOf(err) != apperror.KindNotFound {
			h.logger.Error("storefront vendor resolution failed", zap.String("host", c.Request.Host), zap.Error(err))
		}
		httpx.Error(c, err)
		return
	}
	c.Set(vendorKey, v)
	c.Next()
}

func currentVendor(c *gin.Context) *model.Vendor {
	v, _ := c.MustGet(vendorKey).(*model.Vendor)
	return v
}

type publicVendor struct {
	ID      string  `json:"id"`
	Slug    string  `json:"slug"`
	Name    string  `json:"name"`
	LogoURL *string `json:"logo_url"`
}

// publicProduct leaves out cost and integration fields.
type publicProduct struct {
	ID          string          `json:"id"`
	CategoryID  *string         `json:"category_id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `json:"price"`
	StrainType  *string         `json:"strain_type"`
	THCPercent  *float64        `json:"thc_percent"`
	CBDPercent  *float64        `json:"cbd_percent"`
	ImageURL    *string         `json:"image_url"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func toPublic(p *model.Product) publicProduct {
	return publicProduct{
		ID:          p.ID,
		CategoryID:  p.CategoryID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.BasePrice,
		StrainType:  p.StrainType,
		THCPercent:  p.THCPercent,
		CBDPercent:  p.CBDPercent,
		ImageURL:    p.ImageURL,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (h *StorefrontHandler) GetVendor(c *gin.Context) {
	v := currentVendor(c)
	httpx.OK(c, http.StatusOK, publicVendor{ID: v.ID, Slug: v.Slug, Name: v.Name, LogoURL: v.LogoURL})
}

func (h *StorefrontHandler) ListCategories(c *gin.Context) {
	f := categoryhandler.Filters(c, currentVendor(c).ID)
	active := true
	f.IsActive = &active

	list, total, err := h.categories.ListCategories(c.Request.Context(), f)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, httpx.Page{Items: list, Total: total, Page: f.Page, PageSize: f.PageSize})
}

func (h *StorefrontHandler) ListProducts(c *gin.Context) {
	f := producthandler.Filters(c, currentVendor(c).ID)
	products, total, err := h.products.ListPublished(c.Request.Context(), f)
	if err != nil {
		httpx.Error(c, err)
		return
	}

	items := make([]publicProduct, 0, len(products))
	for i := range products {
		items = append(items, toPublic(&products[i]))
	}
	httpx.OK(c, http.StatusOK, httpx.Page{Items: items, Total: total, Page: f.Page, PageSize: f.PageSize})
}

func (h *StorefrontHandler) GetProduct(c *gin.Context) {
	p, err := h.products.GetPublished(c.Request.Context(), currentVendor(c).ID, c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, toPublic(p))
}
