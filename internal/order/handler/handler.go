package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/fekuna/omnipos-marketplace-service/internal/auth"
	"github.com/fekuna/omnipos-marketplace-service/internal/order"
	"github.com/fekuna/omnipos-marketplace-service/internal/order/dto"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/apperror"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/httpx"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
)

type OrderHandler struct {
	uc     order.UseCase
	logger logger.ZapLogger
}

func NewOrderHandler(uc order.UseCase, log logger.ZapLogger) *OrderHandler {
	return &OrderHandler{uc: uc, logger: log}
}

func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	orders.GET("", h.ListOrders)
	orders.POST("", h.CreateOrder)
	orders.GET("/:id", h.GetOrder)
	orders.POST("/:id/pay", h.PayOrder)
	orders.POST("/:id/refund", h.RefundOrder)
	orders.POST("/:id/void", h.VoidOrder)
	orders.POST("/:id/cancel", h.CancelOrder)
}

type createOrderRequest struct {
	CustomerID string               `json:"customer_id"`
	LocationID string               `json:"location_id"`
	RegisterID string               `json:"register_id"`
	Currency   string               `json:"currency"`
	Items      []dto.OrderItemInput `json:"items"`
}

type payRequest struct {
	TokenOrCardRef string `json:"token_or_card_ref"`
}

type refundRequest struct {
	Amount       decimal.Decimal      `json:"amount"`
	RestockItems []dto.OrderItemInput `json:"restock_items"`
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	var req createOrderRequest
	if err := httpx.Bind(c, &req); err != nil {
		httpx.Error(c, err)
		return
	}

	o, err := h.uc.CreateOrder(c.Request.Context(), &dto.CreateOrderInput{
		VendorID:   vid,
		CustomerID: httpx.OptionalString(req.CustomerID),
		LocationID: httpx.OptionalString(req.LocationID),
		RegisterID: httpx.OptionalString(req.RegisterID),
		Currency:   req.Currency,
		Items:      req.Items,
		UserID:     auth.GetUserID(c.Request.Context()),
	})
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusCreated, o)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	o, err := h.uc.GetOrder(c.Request.Context(), vid, c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, o)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	page, pageSize := httpx.Paging(c)
	f := &dto.OrderFilters{
		VendorID:   vid,
		Status:     c.Query("status"),
		LocationID: c.Query("location_id"),
		Page:       page,
		PageSize:   pageSize,
	}
	if raw := c.Query("start_date"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Error(c, apperror.InvalidInput("start_date must be RFC3339"))
			return
		}
		f.StartDate = &ts
	}
	if raw := c.Query("end_date"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Error(c, apperror.InvalidInput("end_date must be RFC3339"))
			return
		}
		f.EndDate = &ts
	}

	orders, total, err := h.uc.ListOrders(c.Request.Context(), f)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, httpx.Page{Items: orders, Total: total, Page: page, PageSize: pageSize})
}

func (h *OrderHandler) PayOrder(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	var req payRequest
	if err := httpx.Bind(c, &req); err != nil {
		httpx.Error(c, err)
		return
	}
	out, err := h.uc.PayOrder(c.Request.Context(), &dto.PayOrderInput{
		VendorID:       vid,
		OrderID:        c.Param("id"),
		TokenOrCardRef: req.TokenOrCardRef,
		UserID:         auth.GetUserID(c.Request.Context()),
	})
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, out)
}

func (h *OrderHandler) RefundOrder(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	var req refundRequest
	if err := httpx.Bind(c, &req); err != nil {
		httpx.Error(c, err)
		return
	}
	out, err := h.uc.RefundOrder(c.Request.Context(), &dto.RefundOrderInput{
		VendorID:     vid,
		OrderID:      c.Param("id"),
		Amount:       req.Amount,
		RestockItems: req.RestockItems,
		UserID:       auth.GetUserID(c.Request.Context()),
	})
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, out)
}

func (h *OrderHandler) VoidOrder(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	out, err := h.uc.VoidOrder(c.Request.Context(), &dto.VoidOrderInput{
		VendorID: vid,
		OrderID:  c.Param("id"),
		UserID:   auth.GetUserID(c.Request.Context()),
	})
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, out)
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	o, err := h.uc.CancelOrder(c.Request.Context(), vid, c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, o)
}
