package usecase

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/apperror"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/cache"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/postgres"
	"github.com/fekuna/omnipos-marketplace-service/internal/tenant"
	"github.com/fekuna/omnipos-marketplace-service/internal/tenant/dto"
)

const (
	hostCacheTTL    = 5 * time.Minute
	hostCachePrefix = "vendor:host:"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

type vendorUseCase struct {
	repo       tenant.Repository
	cache      cache.Cache
	baseDomain string
	logger     logger.ZapLogger
	now        func() time.Time
}

// NewVendorUseCase resolves storefront hosts of the form <slug>.<baseDomain>
// besides custom domains. cache may be nil.
func NewVendorUseCase(repo tenant.Repository, c cache.Cache, baseDomain string, log logger.ZapLogger) tenant.UseCase {
	return &vendorUseCase{
		repo:       repo,
		cache:      c,
		baseDomain: normalizeHost(baseDomain),
		logger:     log,
		now:        time.Now,
	}
}

func (uc *vendorUseCase) CreateVendor(ctx context.Context, input *dto.CreateVendorInput) (*model.Vendor, error) {
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if !slugPattern.MatchString(slug) {
		return nil, apperror.InvalidInput("invalid slug %q", input.Slug)
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperror.InvalidInput("name is required")
	}
	if input.TaxRate.IsNegative() {
		return nil, apperror.InvalidInput("tax_rate must not be negative")
	}

	now := uc.now()
	v := &model.Vendor{
		BaseModel: model.BaseModel{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now},
		Slug:      slug,
		Name:      strings.TrimSpace(input.Name),
		Domain:    optionalHost(input.Domain),
		Status:    model.VendorStatusActive,
		TaxRate:   input.TaxRate,
		LogoURL:   optional(input.LogoURL),
	}
	if err := uc.repo.Create(ctx, v); err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, apperror.Conflict("vendor slug or domain already in use")
		}
		return nil, err
	}
	uc.logger.Info("vendor created", zap.String("vendor_id", v.ID), zap.String("slug", v.Slug))
	return v, nil
}

func (uc *vendorUseCase) GetVendor(ctx context.Context, id string) (*model.Vendor, error) {
	v, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, apperror.NotFound("vendor %s not found", id)
	}
	return v, nil
}

func (uc *vendorUseCase) UpdateVendor(ctx context.Context, input *dto.UpdateVendorInput) (*model.Vendor, error) {
	v, err := uc.GetVendor(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, apperror.InvalidInput("name must not be empty")
		}
		v.Name = strings.TrimSpace(*input.Name)
	}
	if input.TaxRate != nil {
		if input.TaxRate.IsNegative() {
			return nil, apperror.InvalidInput("tax_rate must not be negative")
		}
		v.TaxRate = *input.TaxRate
	}
	if input.Domain != nil {
		v.Domain = optionalHost(*input.Domain)
	}
	if input.LogoURL != nil {
		v.LogoURL = optional(*input.LogoURL)
	}
	if input.WooCommerceURL != nil {
		v.WooCommerceURL = optional(strings.TrimRight(*input.WooCommerceURL, "/"))
	}
	if input.WooCommerceKey != nil {
		v.WooCommerceKey = optional(*input.WooCommerceKey)
	}
	if input.WooCommerceSecret != nil {
		v.WooCommerceSecret = optional(*input.WooCommerceSecret)
	}
	if input.AlpineIQUserID != nil {
		v.AlpineIQUserID = optional(*input.AlpineIQUserID)
	}
	v.UpdatedAt = uc.now()

	if err := uc.repo.Update(ctx, v); err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, apperror.Conflict("domain already in use")
		}
		return nil, err
	}
	uc.invalidateHosts(ctx)
	return v, nil
}

func (uc *vendorUseCase) SetStatus(ctx context.Context, id, status string) error {
	if status != model.VendorStatusActive && status != model.VendorStatusSuspended {
		return apperror.InvalidInput("unknown vendor status %q", status)
	}
	err := uc.repo.UpdateStatus(ctx, id, status)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NotFound("vendor %s not found", id)
	}
	if err != nil {
		return err
	}
	uc.logger.Info("vendor status changed", zap.String("vendor_id", id), zap.String("status", status))
	return nil
}

func (uc *vendorUseCase) ResolveBySlug(ctx context.Context, slug string) (*model.Vendor, error) {
	v, err := uc.repo.FindBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return nil, err
	}
	return active(v, slug)
}

func (uc *vendorUseCase) ResolveByHost(ctx context.Context, host string) (*model.Vendor, error) {
	host = normalizeHost(host)
	if host == "" {
		return nil, apperror.NotFound("no vendor for empty host")
	}

	// The cache holds only the vendor id; status is re-read on every call.
	if id := uc.cachedHost(ctx, host); id != "" {
		v, err := uc.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if v != nil {
			return active(v, host)
		}
	}

	v, err := uc.repo.FindByDomain(ctx, host)
	if err != nil {
		return nil, err
	}
	if v == nil {
		if slug, ok := uc.subdomainSlug(host); ok {
			if v, err = uc.repo.FindBySlug(ctx, slug); err != nil {
				return nil, err
			}
		}
	}
	if v == nil {
		return nil, apperror.NotFound("no vendor for host %s", host)
	}

	uc.cacheHost(ctx, host, v.ID)
	return active(v, host)
}

func (uc *vendorUseCase) subdomainSlug(host string) (string, bool) {
	if uc.baseDomain == "" {
		return "", false
	}
	slug, ok := strings.CutSuffix(host, "."+uc.baseDomain)
	if !ok || slug == "" || strings.Contains(slug, ".") {
		return "", false
	}
	return slug, true
}

func (uc *vendorUseCase) cachedHost(ctx context.Context, host string) string {
	if uc.cache == nil {
		return ""
	}
	b, err := uc.cache.Get(ctx, hostCachePrefix+host)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			uc.logger.Warn("vendor host cache read failed", zap.String("host", host), zap.Error(err))
		}
		return ""
	}
	return string(b)
}

func (uc *vendorUseCase) cacheHost(ctx context.Context, host, id string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Set(ctx, hostCachePrefix+host, []byte(id), hostCacheTTL); err != nil {
		uc.logger.Warn("vendor host cache write failed", zap.String("host", host), zap.Error(err))
	}
}

func (uc *vendorUseCase) invalidateHosts(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.DeletePattern(ctx, hostCachePrefix+"*"); err != nil {
		uc.logger.Warn("vendor host cache invalidation failed", zap.Error(err))
	}
}

func active(v *model.Vendor, key string) (*model.Vendor, error) {
	if v == nil || !v.IsActive() {
		return nil, apperror.NotFound("no vendor for %s", key)
	}
	return v, nil
}

// normalizeHost lower-cases the host and strips the port and a leading www.
func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")
	return strings.TrimPrefix(host, "www.")
}

func optionalHost(s string) *string {
	return optional(normalizeHost(s))
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
