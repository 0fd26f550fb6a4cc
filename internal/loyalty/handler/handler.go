package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fekuna/omnipos-marketplace-service/internal/loyalty"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/httpx"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
)

type LoyaltyHandler struct {
	uc     loyalty.UseCase
	logger logger.ZapLogger
}

func NewLoyaltyHandler(uc loyalty.UseCase, log logger.ZapLogger) *LoyaltyHandler {
	return &LoyaltyHandler{uc: uc, logger: log}
}

func (h *LoyaltyHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/loyalty/members", h.LookupMember)
	rg.POST("/loyalty/members/:contact_id/wallet-pass", h.TriggerWalletPass)
}

func (h *LoyaltyHandler) LookupMember(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	m, err := h.uc.LookupMember(c.Request.Context(), vid, c.Query("phone"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, m)
}

func (h *LoyaltyHandler) TriggerWalletPass(c *gin.Context) {
	vid, ok := httpx.VendorID(c)
	if !ok {
		return
	}
	if err := h.uc.TriggerWalletPass(c.Request.Context(), vid, c.Param("contact_id")); err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, http.StatusAccepted, gin.H{"contact_id": c.Param("contact_id")})
}
