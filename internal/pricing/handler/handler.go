package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/apperror"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/httpx"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-marketplace-service/internal/pricing"
	"github.com/fekuna/omnipos-marketplace-service/internal/pricing/dto"
)

type PricingHandler struct {
	uc     pricing.UseCase
	logger logger.ZapLogger
}

func NewPricingHandler(uc pricing.UseCase, log logger.ZapLogger) *PricingHandler {
	return &PricingHandler{uc: uc, logger: log}
}

func (h *PricingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	bp := rg.Group("/pricing/blueprints")
	bp.GET("", h.ListBlueprints)
	bp.POST("", h.CreateBlueprint)
	bp.GET("/:id", h.GetBlueprint)
	bp.PUT("/:id", h.UpdateBlueprint)
	bp.DELETE("/:id", h.DeleteBlueprint)

	as := rg.Group("/pricing/assignments")
	as.GET("", h.ListAssignments)
	as.POST("", h.Assign)
	as.DELETE("/:id", h.Unassign)

	rg.GET("/pricing/quote", h.Quote)
}

func (h *PricingHandler) CreateBlueprint(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	var req dto.BlueprintInput
	if err := httpx.Bind(c, &req); err != nil {
		httpx.Error(c, err)
		return
	}
	req.VendorID = vid

	bp, err := h.uc.CreateBlueprint(c.Request.Context(), &req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusCreated, bp)
}

func (h *PricingHandler) GetBlueprint(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	bp, err := h.uc.GetBlueprint(c.Request.Context(), vid, c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, bp)
}

func (h *PricingHandler) ListBlueprints(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	activeOnly, _ := strconv.ParseBool(c.Query("active"))
	list, err := h.uc.ListBlueprints(c.Request.Context(), vid, activeOnly)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, list)
}

func (h *PricingHandler) UpdateBlueprint(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	var req dto.UpdateBlueprintInput
	if err := httpx.Bind(c, &req); err != nil {
		httpx.Error(c, err)
		return
	}
	req.ID = c.Param("id")
	req.VendorID = vid

	bp, err := h.uc.UpdateBlueprint(c.Request.Context(), &req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, bp)
}

func (h *PricingHandler) DeleteBlueprint(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	if err := h.uc.DeleteBlueprint(c.Request.Context(), vid, c.Param("id")); err != nil {
		httpx.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PricingHandler) Assign(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	var req dto.AssignInput
	if err := httpx.Bind(c, &req); err != nil {
		httpx.Error(c, err)
		return
	}
	req.VendorID = vid

	a, err := h.uc.Assign(c.Request.Context(), &req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, a)
}

func (h *PricingHandler) Unassign(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	if err := h.uc.Unassign(c.Request.Context(), vid, c.Param("id")); err != nil {
		httpx.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PricingHandler) ListAssignments(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	list, err := h.uc.ListAssignments(c.Request.Context(), vid, c.Query("blueprint_id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, list)
}

func (h *PricingHandler) Quote(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	qty, err := strconv.ParseFloat(c.Query("quantity"), 64)
	if err != nil {
		httpx.Error(c, apperror.InvalidInput("quantity must be a number"))
		return
	}
	q, err := h.uc.Quote(c.Request.Context(), vid, c.Query("product_id"), qty)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, q)
}
