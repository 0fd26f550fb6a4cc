package usecase

import (
	"context"
	"database/sql"
	"testing"

	"github.com/fekuna/omnipos-marketplace-service/internal/category/dto"
	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/apperror"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
)

type memRepo struct {
	items map[string]*model.Category
}

func newMemRepo(cats ...model.Category) *memRepo {
	r := &memRepo{items: map[string]*model.Category{}}
	for i := range cats {
		c := cats[i]
		r.items[c.ID] = &c
	}
	return r
}

func (r *memRepo) Create(_ context.Context, c *model.Category) error {
	r.items[c.ID] = c
	return nil
}

func (r *memRepo) FindByID(_ context.Context, vendorID, id string) (*model.Category, error) {
	c, ok := r.items[id]
	if !ok || c.VendorID != vendorID {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *memRepo) FindAll(_ context.Context, f *dto.CategoryFilters) ([]model.Category, int, error) {
	var out []model.Category
	for _, c := range r.items {
		if c.VendorID != f.VendorID {
			continue
		}
		if f.ParentID != nil {
			if *f.ParentID == "" && c.ParentID != nil {
				continue
			}
			if *f.ParentID != "" && (c.ParentID == nil || *c.ParentID != *f.ParentID) {
				continue
			}
		}
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (r *memRepo) Update(_ context.Context, c *model.Category) error {
	r.items[c.ID] = c
	return nil
}

func (r *memRepo) Delete(_ context.Context, vendorID, id string) error {
	if c, ok := r.items[id]; !ok || c.VendorID != vendorID {
		return sql.ErrNoRows
	}
	delete(r.items, id)
	return nil
}

func (r *memRepo) CountChildren(_ context.Context, vendorID, id string) (int, error) {
	n := 0
	for _, c := range r.items {
		if c.VendorID == vendorID && c.ParentID != nil && *c.ParentID == id {
			n++
		}
	}
	return n, nil
}

func ptr(s string) *string { return &s }

func fixture() *memRepo {
	return newMemRepo(
		model.Category{BaseModel: model.BaseModel{ID: "flower"}, VendorID: "v-1", Name: "Flower", Slug: "flower"},
		model.Category{BaseModel: model.BaseModel{ID: "indica"}, VendorID: "v-1", Name: "Indica", Slug: "indica", ParentID: ptr("flower")},
		model.Category{BaseModel: model.BaseModel{ID: "other"}, VendorID: "v-2", Name: "Other", Slug: "other"},
	)
}

func TestCreateCategoryDerivesSlug(t *testing.T) {
	uc := NewCategoryUseCase(fixture(), logger.NewNop())
	c, err := uc.CreateCategory(context.Background(), &dto.CreateCategoryInput{VendorID: "v-1", Name: "Pre-Rolls & Blunts", ParentID: "flower"})
	if err != nil {
		t.Fatal(err)
	}
	if c.Slug != "pre-rolls-blunts" || *c.ParentID != "flower" || !c.IsActive {
		t.Fatalf("category = %+v", c)
	}
}

func TestCreateCategoryRejectsForeignParent(t *testing.T) {
	uc := NewCategoryUseCase(fixture(), logger.NewNop())
	_, err := uc.CreateCategory(context.Background(), &dto.CreateCategoryInput{VendorID: "v-1", Name: "X", ParentID: "other"})
	if apperror.KindOf(err) != apperror.KindInvalidInput {
		t.Fatalf("err = %v", err)
	}
}

func TestUpdateCategoryRejectsCycle(t *testing.T) {
	uc := NewCategoryUseCase(fixture(), logger.NewNop())
	_, err := uc.UpdateCategory(context.Background(), &dto.UpdateCategoryInput{
		ID:                  "flower",
		CreateCategoryInput: dto.CreateCategoryInput{VendorID: "v-1", Name: "Flower", ParentID: "indica"},
		IsActive:            true,
	})
	if apperror.KindOf(err) != apperror.KindInvalidInput {
		t.Fatalf("err = %v", err)
	}
}

func TestDeleteCategoryWithChildren(t *testing.T) {
	repo := fixture()
	uc := NewCategoryUseCase(repo, logger.NewNop())
	ctx := context.Background()

	if err := uc.DeleteCategory(ctx, "v-1", "flower"); apperror.KindOf(err) != apperror.KindConflict {
		t.Fatalf("err = %v", err)
	}
	if err := uc.DeleteCategory(ctx, "v-1", "indica"); err != nil {
		t.Fatal(err)
	}
	if err := uc.DeleteCategory(ctx, "v-1", "other"); apperror.KindOf(err) != apperror.KindNotFound {
		t.Fatalf("cross-vendor delete err = %v", err)
	}
}

func TestListCategoriesWithChildren(t *testing.T) {
	uc := NewCategoryUseCase(fixture(), logger.NewNop())
	root := ""
	cats, total, err := uc.ListCategories(context.Background(), &dto.CategoryFilters{VendorID: "v-1", ParentID: &root, IncludeChildren: true})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || cats[0].ID != "flower" || len(cats[0].Children) != 1 || cats[0].Children[0].ID != "indica" {
		t.Fatalf("cats = %+v", cats)
	}
}
