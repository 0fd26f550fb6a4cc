package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/httpx"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-marketplace-service/internal/tenant"
	"github.com/fekuna/omnipos-marketplace-service/internal/tenant/dto"
)

type VendorHandler struct {
	uc     tenant.UseCase
	logger logger.ZapLogger
}

func NewVendorHandler(uc tenant.UseCase, log logger.ZapLogger) *VendorHandler {
	return &VendorHandler{uc: uc, logger: log}
}

func (h *VendorHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.GetCurrent)
	rg.PUT("/me", h.UpdateCurrent)
}

// RegisterAdminRoutes mounts platform operations; the group must be
// restricted to admins.
func (h *VendorHandler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/vendors", h.Create)
	rg.GET("/vendors/:id", h.Get)
	rg.PUT("/vendors/:id/status", h.SetStatus)
}

type createRequest struct {
	Slug    string          `json:"slug"`
	Name    string          `json:"name"`
	Domain  string          `json:"domain"`
	TaxRate decimal.Decimal `json:"tax_rate"`
	LogoURL string          `json:"logo_url"`
}

type updateRequest struct {
	Name              *string          `json:"name"`
	Domain            *string          `json:"domain"`
	TaxRate           *decimal.Decimal `json:"tax_rate"`
	LogoURL           *string          `json:"logo_url"`
	WooCommerceURL    *string          `json:"woocommerce_url"`
	WooCommerceKey    *string          `json:"woocommerce_consumer_key"`
	WooCommerceSecret *string          `json:"woocommerce_consumer_secret"`
	AlpineIQUserID    *string          `json:"alpineiq_user_id"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *VendorHandler) GetCurrent(c *gin.Context) {
	id, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	v, err := h.uc.GetVendor(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, v)
}

func (h *VendorHandler) UpdateCurrent(c *gin.Context) {
	id, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	var req updateRequest
	if err := httpx.Bind(c, &req); err != nil {
		httpx.Error(c, err)
		return
	}
	v, err := h.uc.UpdateVendor(c.Request.Context(), &dto.UpdateVendorInput{
		ID:                id,
		Name:              req.Name,
		Domain:            req.Domain,
		TaxRate:           req.TaxRate,
		LogoURL:           req.LogoURL,
		WooCommerceURL:    req.WooCommerceURL,
		WooCommerceKey:    req.WooCommerceKey,
		WooCommerceSecret: req.WooCommerceSecret,
		AlpineIQUserID:    req.AlpineIQUserID,
	})
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, v)
}

func (h *VendorHandler) Create(c *gin.Context) {
	var req createRequest
	if err := httpx.Bind(c, &req); err != nil {
		httpx.Error(c, err)
		return
	}
	v, err := h.uc.CreateVendor(c.Request.Context(), &dto.CreateVendorInput{
		Slug:    req.Slug,
		Name:    req.Name,
		Domain:  req.Domain,
		TaxRate: req.TaxRate,
		LogoURL: req.LogoURL,
	})
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusCreated, v)
}

func (h *VendorHandler) Get(c *gin.Context) {
	v, err := h.uc.GetVendor(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, v)
}

func (h *VendorHandler) SetStatus(c *gin.Context) {
	var req statusRequest
	if err := httpx.Bind(c, &req); err != nil {
		httpx.Error(c, err)
		return
	}
	if err := h.uc.SetStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		httpx.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
