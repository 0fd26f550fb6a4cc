package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fekuna/omnipos-marketplace-service/internal/auth"
	"github.com/fekuna/omnipos-marketplace-service/internal/payment"
	"github.com/fekuna/omnipos-marketplace-service/internal/payment/dto"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/httpx"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
)

type PaymentHandler struct {
	uc     payment.UseCase
	logger logger.ZapLogger
}

func NewPaymentHandler(uc payment.UseCase, log logger.ZapLogger) *PaymentHandler {
	return &PaymentHandler{uc: uc, logger: log}
}

// RegisterProcessorRoutes mounts processor configuration under the vendor API.
func (h *PaymentHandler) RegisterProcessorRoutes(rg *gin.RouterGroup) {
	rg.GET("/payment-processors", h.ListProcessors)
	rg.POST("/payment-processors", h.UpsertProcessor)
	rg.PUT("/payment-processors/:id", h.UpsertProcessor)
	rg.DELETE("/payment-processors/:id", h.DeactivateProcessor)
}

// RegisterPOSRoutes mounts the register-facing payment calls.
func (h *PaymentHandler) RegisterPOSRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/process", h.ProcessPayment)
	rg.POST("/payments/refund", h.RefundTransaction)
	rg.POST("/payments/void", h.VoidTransaction)
}

type processPaymentRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	TokenOrCardRef string          `json:"token_or_card_ref"`
	OrderID        string          `json:"order_id"`
	LocationID     string          `json:"location_id"`
}

type refundRequest struct {
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
}

type voidRequest struct {
	TransactionID string `json:"transaction_id"`
}

type upsertProcessorRequest struct {
	LocationID        string `json:"location_id"`
	Name              string `json:"name"`
	ProcessorType     string `json:"processor_type"`
	Environment       string `json:"environment"`
	DejavooTPN        string `json:"dejavoo_tpn"`
	DejavooAuthKey    string `json:"dejavoo_authkey"`
	DejavooRegisterID string `json:"dejavoo_register_id"`
	IsActive          *bool  `json:"is_active"`
	IsDefault         bool   `json:"is_default"`
}

type resultResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
	AuthCode      string `json:"auth_code,omitempty"`
	Message       string `json:"message,omitempty"`
	Raw           any    `json:"raw,omitempty"`
}

func toResponse(res *payment.Result) resultResponse {
	out := resultResponse{
		Success:       res.Success,
		TransactionID: res.TransactionID,
		AuthCode:      res.AuthCode,
		Message:       res.Message,
	}
	if len(res.Raw) > 0 {
		out.Raw = res.Raw
	}
	return out
}

func (h *PaymentHandler) ProcessPayment(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	var req processPaymentRequest
	if err := httpx.Bind(c, &req); err != nil {
		httpx.Error(c, err)
		return
	}

	res, err := h.uc.ProcessPayment(c.Request.Context(), &dto.ProcessPaymentInput{
		VendorID:       vid,
		LocationID:     httpx.OptionalString(req.LocationID),
		Amount:         req.Amount,
		Currency:       req.Currency,
		TokenOrCardRef: req.TokenOrCardRef,
		OrderID:        req.OrderID,
		UserID:         auth.GetUserID(c.Request.Context()),
	})
	if err != nil {
		h.logger.Warn("process payment failed", zap.String("vendor_id", vid), zap.Error(err))
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, toResponse(res))
}

func (h *PaymentHandler) RefundTransaction(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	var req refundRequest
	if err := httpx.Bind(c, &req); err != nil {
		httpx.Error(c, err)
		return
	}

	res, err := h.uc.RefundTransaction(c.Request.Context(), &dto.RefundInput{
		VendorID:      vid,
		TransactionID: req.TransactionID,
		Amount:        req.Amount,
		UserID:        auth.GetUserID(c.Request.Context()),
	})
	if err != nil {
		h.logger.Warn("refund failed", zap.String("vendor_id", vid), zap.Error(err))
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, toResponse(res))
}

func (h *PaymentHandler) VoidTransaction(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	var req voidRequest
	if err := httpx.Bind(c, &req); err != nil {
		httpx.Error(c, err)
		return
	}

	res, err := h.uc.VoidTransaction(c.Request.Context(), &dto.VoidInput{
		VendorID:      vid,
		TransactionID: req.TransactionID,
		UserID:        auth.GetUserID(c.Request.Context()),
	})
	if err != nil {
		h.logger.Warn("void failed", zap.String("vendor_id", vid), zap.Error(err))
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, toResponse(res))
}

func (h *PaymentHandler) ListProcessors(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	items, err := h.uc.ListProcessors(c.Request.Context(), vid)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, items)
}

func (h *PaymentHandler) UpsertProcessor(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	var req upsertProcessorRequest
	if err := httpx.Bind(c, &req); err != nil {
		httpx.Error(c, err)
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	p, err := h.uc.UpsertProcessor(c.Request.Context(), &dto.UpsertProcessorInput{
		ID:                c.Param("id"),
		VendorID:          vid,
		LocationID:        httpx.OptionalString(req.LocationID),
		Name:              req.Name,
		ProcessorType:     req.ProcessorType,
		Environment:       req.Environment,
		DejavooTPN:        req.DejavooTPN,
		DejavooAuthKey:    req.DejavooAuthKey,
		DejavooRegisterID: req.DejavooRegisterID,
		IsActive:          active,
		IsDefault:         req.IsDefault,
	})
	if err != nil {
		httpx.Error(c, err)
		return
	}

	status := http.StatusOK
	if c.Param("id") == "" {
		status = http.StatusCreated
	}
	httpx.OK(c, status, p)
}

func (h *PaymentHandler) DeactivateProcessor(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	if err := h.uc.DeactivateProcessor(c.Request.Context(), vid, c.Param("id")); err != nil {
		httpx.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
