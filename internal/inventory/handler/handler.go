package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fekuna/omnipos-marketplace-service/internal/auth"
	"github.com/fekuna/omnipos-marketplace-service/internal/inventory"
	"github.com/fekuna/omnipos-marketplace-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/apperror"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/httpx"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
)

type InventoryHandler struct {
	uc     inventory.UseCase
	logger logger.ZapLogger
}

func NewInventoryHandler(uc inventory.UseCase, log logger.ZapLogger) *InventoryHandler {
	return &InventoryHandler{uc: uc, logger: log}
}

func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	inv := rg.Group("/inventory")
	inv.GET("", h.ListInventory)
	inv.GET("/low-stock", h.ListLowStock)
	inv.GET("/movements", h.ListMovements)
	inv.GET("/products/:product_id", h.GetProductInventory)
	inv.PUT("/products/:product_id/reorder-point", h.SetReorderPoint)
	inv.POST("/adjust", h.AdjustInventory)
	inv.POST("/receive", h.ReceiveInventory)
}

type adjustRequest struct {
	LocationID     string  `json:"location_id"`
	ProductID      string  `json:"product_id"`
	QuantityChange float64 `json:"quantity_change"`
	Reason         string  `json:"reason"`
}

type receiveItem struct {
	ProductID string  `json:"product_id"`
	Quantity  float64 `json:"quantity"`
}

type receiveRequest struct {
	LocationID  string        `json:"location_id"`
	ReferenceID string        `json:"reference_id"`
	Notes       string        `json:"notes"`
	Items       []receiveItem `json:"items"`
}

type reorderRequest struct {
	LocationID   string  `json:"location_id"`
	ReorderPoint float64 `json:"reorder_point"`
}

func locationQuery(c *gin.Context) *string {
	return httpx.OptionalString(c.Query("location_id"))
}

func (h *InventoryHandler) GetProductInventory(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	inv, err := h.uc.GetProductInventory(c.Request.Context(), vid, c.Param("product_id"), locationQuery(c))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, inv)
}

func (h *InventoryHandler) ListInventory(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	page, pageSize := httpx.Paging(c)
	low, _ := strconv.ParseBool(c.Query("low_stock"))
	items, total, err := h.uc.ListInventory(c.Request.Context(), &dto.InventoryFilters{
		VendorID:   vid,
		LocationID: locationQuery(c),
		ProductID:  c.Query("product_id"),
		LowStock:   low,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, httpx.Page{Items: items, Total: total, Page: page, PageSize: pageSize})
}

func (h *InventoryHandler) ListLowStock(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	page, pageSize := httpx.Paging(c)
	items, total, err := h.uc.ListLowStock(c.Request.Context(), vid, locationQuery(c), page, pageSize)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, httpx.Page{Items: items, Total: total, Page: page, PageSize: pageSize})
}

func (h *InventoryHandler) ListMovements(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	page, pageSize := httpx.Paging(c)
	f := &dto.MovementFilters{
		VendorID:     vid,
		ProductID:    c.Query("product_id"),
		MovementType: c.Query("movement_type"),
		Page:         page,
		PageSize:     pageSize,
	}
	for key, dst := range map[string]**time.Time{"start_date": &f.StartDate, "end_date": &f.EndDate} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Error(c, apperror.InvalidInput("%s must be RFC3339", key))
			return
		}
		*dst = &ts
	}

	items, total, err := h.uc.ListMovements(c.Request.Context(), f)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, httpx.Page{Items: items, Total: total, Page: page, PageSize: pageSize})
}

func (h *InventoryHandler) AdjustInventory(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	var req adjustRequest
	if err := httpx.Bind(c, &req); err != nil {
		httpx.Error(c, err)
		return
	}
	inv, err := h.uc.AdjustInventory(c.Request.Context(), &dto.AdjustInventoryInput{
		VendorID:       vid,
		LocationID:     httpx.OptionalString(req.LocationID),
		ProductID:      req.ProductID,
		QuantityChange: req.QuantityChange,
		Reason:         req.Reason,
		UserID:         auth.GetUserID(c.Request.Context()),
	})
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, inv)
}

func (h *InventoryHandler) ReceiveInventory(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	var req receiveRequest
	if err := httpx.Bind(c, &req); err != nil {
		httpx.Error(c, err)
		return
	}
	items := make([]dto.ReceiveItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, dto.ReceiveItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	out, err := h.uc.ReceiveInventory(c.Request.Context(), &dto.ReceiveInventoryInput{
		VendorID:    vid,
		LocationID:  httpx.OptionalString(req.LocationID),
		ReferenceID: req.ReferenceID,
		Items:       items,
		Notes:       req.Notes,
		UserID:      auth.GetUserID(c.Request.Context()),
	})
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, out)
}

func (h *InventoryHandler) SetReorderPoint(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	var req reorderRequest
	if err := httpx.Bind(c, &req); err != nil {
		httpx.Error(c, err)
		return
	}
	inv, err := h.uc.SetReorderPoint(c.Request.Context(), &dto.ReorderPointInput{
		VendorID:     vid,
		LocationID:   httpx.OptionalString(req.LocationID),
		ProductID:    c.Param("product_id"),
		ReorderPoint: req.ReorderPoint,
	})
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, inv)
}
