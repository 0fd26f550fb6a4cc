package usecase

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/apperror"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/postgres"
	"github.com/fekuna/omnipos-marketplace-service/internal/pricing"
	"github.com/fekuna/omnipos-marketplace-service/internal/pricing/dto"
)

type pricingUseCase struct {
	repo     pricing.Repository
	products pricing.ProductReader
	logger   logger.ZapLogger
	now      func() time.Time
}

func NewPricingUseCase(repo pricing.Repository, products pricing.ProductReader, log logger.ZapLogger) pricing.UseCase {
	return &pricingUseCase{
		repo:     repo,
		products: products,
		logger:   log,
		now:      time.Now,
	}
}

func (uc *pricingUseCase) CreateBlueprint(ctx context.Context, input *dto.BlueprintInput) (*model.PricingBlueprint, error) {
	now := uc.now()
	bp := &model.PricingBlueprint{
		BaseModel: model.BaseModel{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now},
		VendorID:  input.VendorID,
		IsActive:  true,
	}
	if err := apply(bp, input); err != nil {
		return nil, err
	}
	if err := uc.repo.CreateBlueprint(ctx, bp); err != nil {
		return nil, err
	}
	return bp, nil
}

func (uc *pricingUseCase) GetBlueprint(ctx context.Context, vendorID, id string) (*model.PricingBlueprint, error) {
	bp, err := uc.repo.FindBlueprint(ctx, vendorID, id)
	if err != nil {
		return nil, err
	}
	if bp == nil {
		return nil, apperror.NotFound("pricing blueprint %s not found", id)
	}
	return bp, nil
}

func (uc *pricingUseCase) ListBlueprints(ctx context.Context, vendorID string, activeOnly bool) ([]model.PricingBlueprint, error) {
	return uc.repo.ListBlueprints(ctx, vendorID, activeOnly)
}

func (uc *pricingUseCase) UpdateBlueprint(ctx context.Context, input *dto.UpdateBlueprintInput) (*model.PricingBlueprint, error) {
	bp, err := uc.GetBlueprint(ctx, input.VendorID, input.ID)
	if err != nil {
		return nil, err
	}
	if err := apply(bp, &input.BlueprintInput); err != nil {
		return nil, err
	}
	bp.UpdatedAt = uc.now()

	if err := uc.repo.UpdateBlueprint(ctx, bp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("pricing blueprint %s not found", input.ID)
		}
		return nil, err
	}
	return bp, nil
}

func (uc *pricingUseCase) DeleteBlueprint(ctx context.Context, vendorID, id string) error {
	err := uc.repo.DeleteBlueprint(ctx, vendorID, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apperror.NotFound("pricing blueprint %s not found", id)
	case postgres.IsForeignKeyViolation(err):
		return apperror.Conflict("pricing blueprint %s is still referenced by products", id)
	}
	return err
}

func (uc *pricingUseCase) Assign(ctx context.Context, input *dto.AssignInput) (*model.PricingAssignment, error) {
	hasProduct := input.ProductID != nil && *input.ProductID != ""
	hasCategory := input.CategoryID != nil && *input.CategoryID != ""
	if hasProduct == hasCategory {
		return nil, apperror.InvalidInput("exactly one of product_id or category_id is required")
	}
	if _, err := uc.GetBlueprint(ctx, input.VendorID, input.BlueprintID); err != nil {
		return nil, err
	}

	now := uc.now()
	a := &model.PricingAssignment{
		BaseModel:   model.BaseModel{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now},
		VendorID:    input.VendorID,
		BlueprintID: input.BlueprintID,
	}
	if hasProduct {
		a.ProductID = input.ProductID
	} else {
		a.CategoryID = input.CategoryID
	}

	if err := uc.repo.UpsertAssignment(ctx, a); err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return nil, apperror.InvalidInput("assignment target does not exist")
		}
		return nil, err
	}
	return a, nil
}

func (uc *pricingUseCase) Unassign(ctx context.Context, vendorID, id string) error {
	if err := uc.repo.DeleteAssignment(ctx, vendorID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("pricing assignment %s not found", id)
		}
		return err
	}
	return nil
}

func (uc *pricingUseCase) ListAssignments(ctx context.Context, vendorID, blueprintID string) ([]model.PricingAssignment, error) {
	return uc.repo.ListAssignments(ctx, vendorID, blueprintID)
}

func (uc *pricingUseCase) Quote(ctx context.Context, vendorID, productID string, quantity float64) (*pricing.Quote, error) {
	if !validQuantity(quantity) {
		return nil, apperror.InvalidInput("quantity must be a positive number")
	}
	p, err := uc.products.FindByID(ctx, vendorID, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperror.NotFound("product %s not found", productID)
	}

	bp, err := uc.resolve(ctx, p)
	if err != nil {
		return nil, err
	}

	q := &pricing.Quote{
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    quantity,
		UnitPrice:   p.BasePrice,

		TrackInventory: p.TrackInventory,
	}
	if bp != nil {
		q.BlueprintID = &bp.ID
		if br := pickBreak(bp.PriceBreaks, quantity); br != nil {
			q.Break = br
			q.UnitPrice = br.Price
		}
	}
	q.UnitPrice = q.UnitPrice.Round(2)
	q.LineTotal = q.UnitPrice.Mul(decimal.NewFromFloat(quantity)).Round(2)
	return q, nil
}

// resolve finds the active blueprint for a product: its own assignment, then
// the blueprint set on the product, then its category's assignment.
func (uc *pricingUseCase) resolve(ctx context.Context, p *model.Product) (*model.PricingBlueprint, error) {
	var candidates []string

	a, err := uc.repo.FindProductAssignment(ctx, p.VendorID, p.ID)
	if err != nil {
		return nil, err
	}
	if a != nil {
		candidates = append(candidates, a.BlueprintID)
	}
	if p.PricingBlueprintID != nil {
		candidates = append(candidates, *p.PricingBlueprintID)
	}
	if p.CategoryID != nil {
		a, err := uc.repo.FindCategoryAssignment(ctx, p.VendorID, *p.CategoryID)
		if err != nil {
			return nil, err
		}
		if a != nil {
			candidates = append(candidates, a.BlueprintID)
		}
	}

	for _, id := range candidates {
		bp, err := uc.repo.FindBlueprint(ctx, p.VendorID, id)
		if err != nil {
			return nil, err
		}
		if bp != nil && bp.IsActive {
			return bp, nil
		}
		uc.logger.Debug("Skipping inactive pricing blueprint", zap.String("blueprint_id", id), zap.String("product_id", p.ID))
	}
	return nil, nil
}

// pickBreak returns the break with the largest quantity not above qty.
func pickBreak(breaks model.PriceBreaks, qty float64) *model.PriceBreak {
	var best *model.PriceBreak
	for i := range breaks {
		b := breaks[i]
		if b.Quantity > qty {
			continue
		}
		if best == nil || b.Quantity > best.Quantity {
			best = &b
		}
	}
	return best
}

func apply(bp *model.PricingBlueprint, input *dto.BlueprintInput) error {
	if input.Name == "" {
		return apperror.InvalidInput("name is required")
	}
	if len(input.PriceBreaks) == 0 {
		return apperror.InvalidInput("at least one price break is required")
	}

	seen := make(map[float64]bool, len(input.PriceBreaks))
	breaks := make(model.PriceBreaks, 0, len(input.PriceBreaks))
	for _, in := range input.PriceBreaks {
		if !validQuantity(in.Quantity) {
			return apperror.InvalidInput("price break quantity must be positive")
		}
		if seen[in.Quantity] {
			return apperror.InvalidInput("duplicate price break quantity %g", in.Quantity)
		}
		seen[in.Quantity] = true
		if in.Price.IsNegative() {
			return apperror.InvalidInput("price break price must not be negative")
		}

		id := in.BreakID
		if id == "" {
			id = uuid.NewString()
		}
		breaks = append(breaks, model.PriceBreak{
			BreakID:  id,
			Label:    in.Label,
			Quantity: in.Quantity,
			Unit:     in.Unit,
			Price:    in.Price.Round(2),
		})
	}
	sort.Slice(breaks, func(i, j int) bool { return breaks[i].Quantity < breaks[j].Quantity })

	bp.Name = input.Name
	bp.Description = input.Description
	bp.PriceBreaks = breaks
	if input.IsActive != nil {
		bp.IsActive = *input.IsActive
	}
	return nil
}

func validQuantity(q float64) bool {
	return q > 0 && !math.IsInf(q, 0) && !math.IsNaN(q)
}
