package usecase

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fekuna/omnipos-marketplace-service/internal/category"
	"github.com/fekuna/omnipos-marketplace-service/internal/category/dto"
	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/apperror"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/postgres"
)

// maxDepth bounds the ancestor walk used for cycle detection.
const maxDepth = 32

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

type categoryUseCase struct {
	repo   category.Repository
	logger logger.ZapLogger
	now    func() time.Time
}

func NewCategoryUseCase(repo category.Repository, log logger.ZapLogger) category.UseCase {
	return &categoryUseCase{
		repo:   repo,
		logger: log,
		now:    time.Now,
	}
}

func (uc *categoryUseCase) CreateCategory(ctx context.Context, input *dto.CreateCategoryInput) (*model.Category, error) {
	now := uc.now()
	cat := &model.Category{
		BaseModel: model.BaseModel{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now},
		VendorID:  input.VendorID,
		IsActive:  true,
	}
	if err := uc.apply(ctx, cat, input); err != nil {
		return nil, err
	}

	if err := uc.repo.Create(ctx, cat); err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, apperror.Conflict("category slug %s already exists", cat.Slug)
		}
		return nil, err
	}
	return cat, nil
}

func (uc *categoryUseCase) GetCategory(ctx context.Context, vendorID, id string) (*model.Category, error) {
	cat, err := uc.repo.FindByID(ctx, vendorID, id)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, apperror.NotFound("category %s not found", id)
	}
	return cat, nil
}

func (uc *categoryUseCase) ListCategories(ctx context.Context, filters *dto.CategoryFilters) ([]model.Category, int, error) {
	categories, count, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, 0, err
	}
	if !filters.IncludeChildren || len(categories) == 0 {
		return categories, count, nil
	}

	all, _, err := uc.repo.FindAll(ctx, &dto.CategoryFilters{VendorID: filters.VendorID, IsActive: filters.IsActive})
	if err != nil {
		return nil, 0, err
	}
	byParent := make(map[string][]model.Category)
	for _, c := range all {
		if c.ParentID != nil {
			byParent[*c.ParentID] = append(byParent[*c.ParentID], c)
		}
	}
	for i := range categories {
		categories[i].Children = byParent[categories[i].ID]
	}
	return categories, count, nil
}

func (uc *categoryUseCase) UpdateCategory(ctx context.Context, input *dto.UpdateCategoryInput) (*model.Category, error) {
	cat, err := uc.GetCategory(ctx, input.VendorID, input.ID)
	if err != nil {
		return nil, err
	}
	if err := uc.apply(ctx, cat, &input.CreateCategoryInput); err != nil {
		return nil, err
	}
	cat.IsActive = input.IsActive
	cat.UpdatedAt = uc.now()

	if err := uc.repo.Update(ctx, cat); err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, apperror.Conflict("category slug %s already exists", cat.Slug)
		}
		return nil, err
	}
	return cat, nil
}

func (uc *categoryUseCase) DeleteCategory(ctx context.Context, vendorID, id string) error {
	children, err := uc.repo.CountChildren(ctx, vendorID, id)
	if err != nil {
		return err
	}
	if children > 0 {
		return apperror.Conflict("category %s has %d subcategories", id, children)
	}

	err = uc.repo.Delete(ctx, vendorID, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apperror.NotFound("category %s not found", id)
	case postgres.IsForeignKeyViolation(err):
		return apperror.Conflict("category %s is still used by products", id)
	case err != nil:
		return err
	}
	uc.logger.Info("category deleted", zap.String("vendor_id", vendorID), zap.String("category_id", id))
	return nil
}

func (uc *categoryUseCase) apply(ctx context.Context, cat *model.Category, in *dto.CreateCategoryInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return apperror.InvalidInput("name is required")
	}
	slug := slugify(in.Slug)
	if slug == "" {
		slug = slugify(name)
	}
	if slug == "" {
		return apperror.InvalidInput("cannot derive a slug from %q", name)
	}

	parentID := strings.TrimSpace(in.ParentID)
	if parentID != "" {
		if err := uc.checkParent(ctx, cat, parentID); err != nil {
			return err
		}
	}

	cat.Name = name
	cat.Slug = slug
	cat.ParentID = optional(parentID)
	cat.Description = optional(in.Description)
	cat.ImageURL = optional(in.ImageURL)
	cat.SortOrder = in.SortOrder
	return nil
}

// checkParent rejects parents outside the vendor and parents that would
// make cat its own ancestor.
func (uc *categoryUseCase) checkParent(ctx context.Context, cat *model.Category, parentID string) error {
	id := parentID
	for depth := 0; depth < maxDepth; depth++ {
		if id == cat.ID {
			return apperror.InvalidInput("category cannot be its own ancestor")
		}
		parent, err := uc.repo.FindByID(ctx, cat.VendorID, id)
		if err != nil {
			return err
		}
		if parent == nil {
			if id == parentID {
				return apperror.InvalidInput("parent category %s not found", parentID)
			}
			return nil
		}
		if parent.ParentID == nil {
			return nil
		}
		id = *parent.ParentID
	}
	return apperror.InvalidInput("category tree is deeper than %d levels", maxDepth)
}

func slugify(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
