package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/httpx"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-marketplace-service/internal/product"
	"github.com/fekuna/omnipos-marketplace-service/internal/product/dto"
)

type ProductHandler struct {
	uc     product.UseCase
	logger logger.ZapLogger
}

func NewProductHandler(uc product.UseCase, log logger.ZapLogger) *ProductHandler {
	return &ProductHandler{uc: uc, logger: log}
}

func (h *ProductHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/products", h.ListProducts)
	rg.POST("/products", h.CreateProduct)
	rg.GET("/products/:id", h.GetProduct)
	rg.PUT("/products/:id", h.UpdateProduct)
	rg.DELETE("/products/:id", h.DeleteProduct)
}

type productRequest struct {
	CategoryID         string           `json:"category_id"`
	PricingBlueprintID string           `json:"pricing_blueprint_id"`
	SKU                string           `json:"sku"`
	Name               string           `json:"name"`
	Description        string           `json:"description"`
	BasePrice          decimal.Decimal  `json:"base_price"`
	CostPrice          *decimal.Decimal `json:"cost_price"`
	StrainType         string           `json:"strain_type"`
	THCPercent         *float64         `json:"thc_percent"`
	CBDPercent         *float64         `json:"cbd_percent"`
	Status             string           `json:"status"`
	TrackInventory     *bool            `json:"track_inventory"`
	ImageURL           string           `json:"image_url"`
	WooCommerceID      *int64           `json:"woocommerce_id"`
}

func (r *productRequest) toInput(vendorID string) dto.CreateProductInput {
	track := true
	if r.TrackInventory != nil {
		track = *r.TrackInventory
	}
	return dto.CreateProductInput{
		VendorID:           vendorID,
		CategoryID:         r.CategoryID,
		PricingBlueprintID: r.PricingBlueprintID,
		SKU:                r.SKU,
		Name:               r.Name,
		Description:        r.Description,
		BasePrice:          r.BasePrice,
		CostPrice:          r.CostPrice,
		StrainType:         r.StrainType,
		THCPercent:         r.THCPercent,
		CBDPercent:         r.CBDPercent,
		Status:             r.Status,
		TrackInventory:     track,
		ImageURL:           r.ImageURL,
		WooCommerceID:      r.WooCommerceID,
	}
}

// Filters reads the list query string shared by vendor and storefront
// listings.
func Filters(c *gin.Context, vendorID string) *dto.ProductFilters {
	page, pageSize := httpx.Paging(c)
	return &dto.ProductFilters{
		VendorID:    vendorID,
		CategoryID:  c.Query("category_id"),
		Status:      c.Query("status"),
		SearchQuery: c.Query("q"),
		SortBy:      c.Query("sort_by"),
		SortOrder:   c.Query("sort_order"),
		Page:        page,
		PageSize:    pageSize,
	}
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	var req productRequest
	if err := httpx.Bind(c, &req); err != nil {
		httpx.Error(c, err)
		return
	}

	in := req.toInput(vid)
	p, err := h.uc.CreateProduct(c.Request.Context(), &in)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusCreated, p)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	p, err := h.uc.GetProduct(c.Request.Context(), vid, c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, p)
}

func (h *ProductHandler) ListProducts(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	filters := Filters(c, vid)
	items, total, err := h.uc.ListProducts(c.Request.Context(), filters)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, httpx.Page{Items: items, Total: total, Page: filters.Page, PageSize: filters.PageSize})
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	var req productRequest
	if err := httpx.Bind(c, &req); err != nil {
		httpx.Error(c, err)
		return
	}

	p, err := h.uc.UpdateProduct(c.Request.Context(), &dto.UpdateProductInput{
		ID:                 c.Param("id"),
		CreateProductInput: req.toInput(vid),
	})
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, p)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	if err := h.uc.DeleteProduct(c.Request.Context(), vid, c.Param("id")); err != nil {
		httpx.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
