package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fekuna/omnipos-marketplace-service/internal/loyalty"
	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/apperror"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/cache"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
)

const memberTTL = time.Minute

type VendorReader interface {
	GetVendor(ctx context.Context, id string) (*model.Vendor, error)
}

type loyaltyUseCase struct {
	client  loyalty.Client
	vendors VendorReader
	cache   cache.Cache
	logger  logger.ZapLogger
}

func NewLoyaltyUseCase(client loyalty.Client, vendors VendorReader, c cache.Cache, log logger.ZapLogger) loyalty.UseCase {
	return &loyaltyUseCase{
		client:  client,
		vendors: vendors,
		cache:   c,
		logger:  log,
	}
}

func (uc *loyaltyUseCase) LookupMember(ctx context.Context, vendorID, phone string) (*loyalty.Member, error) {
	normalized, err := normalizePhone(phone)
	if err != nil {
		return nil, err
	}
	userID, err := uc.account(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("loyalty:member:%s:%s", vendorID, normalized)
	if uc.cache != nil {
		if b, err := uc.cache.Get(ctx, key); err == nil {
			var m loyalty.Member
			if json.Unmarshal(b, &m) == nil {
				return &m, nil
			}
		} else if !errors.Is(err, cache.ErrMiss) {
			uc.logger.Warn("loyalty cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	m, err := uc.client.LookupMember(ctx, userID, normalized)
	if err != nil {
		return nil, uc.mapError(err, vendorID)
	}

	if uc.cache != nil {
		if b, err := json.Marshal(m); err == nil {
			if err := uc.cache.Set(ctx, key, b, memberTTL); err != nil {
				uc.logger.Warn("loyalty cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return m, nil
}

func (uc *loyaltyUseCase) TriggerWalletPass(ctx context.Context, vendorID, contactID string) error {
	if strings.TrimSpace(contactID) == "" {
		return apperror.InvalidInput("contact_id is required")
	}
	userID, err := uc.account(ctx, vendorID)
	if err != nil {
		return err
	}
	if err := uc.client.TriggerWalletPass(ctx, userID, contactID); err != nil {
		return uc.mapError(err, vendorID)
	}
	uc.logger.Info("wallet pass triggered", zap.String("vendor_id", vendorID), zap.String("contact_id", contactID))
	return nil
}

func (uc *loyaltyUseCase) account(ctx context.Context, vendorID string) (string, error) {
	v, err := uc.vendors.GetVendor(ctx, vendorID)
	if err != nil {
		return "", err
	}
	if v.AlpineIQUserID == nil || *v.AlpineIQUserID == "" {
		return "", apperror.Wrap(apperror.KindInvalidInput, "alpine iq is not configured for this vendor", loyalty.ErrNotConfigured)
	}
	return *v.AlpineIQUserID, nil
}

func (uc *loyaltyUseCase) mapError(err error, vendorID string) error {
	var upErr *loyalty.UpstreamError
	switch {
	case errors.Is(err, loyalty.ErrMemberNotFound):
		return apperror.Wrap(apperror.KindNotFound, "loyalty member not found", err)
	case errors.As(err, &upErr):
		uc.logger.Error("alpine iq call failed", zap.String("vendor_id", vendorID), zap.Error(err))
		return apperror.Wrap(apperror.KindUpstream, "loyalty provider unavailable", err)
	}
	return err
}

// normalizePhone keeps digits and drops a leading US country code.
func normalizePhone(phone string) (string, error) {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return "", apperror.InvalidInput("phone must have 10 digits")
	}
	return digits, nil
}
