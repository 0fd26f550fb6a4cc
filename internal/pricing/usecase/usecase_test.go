package usecase

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/apperror"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-marketplace-service/internal/pricing/dto"
)

type memRepo struct {
	blueprints  map[string]*model.PricingBlueprint
	assignments map[string]*model.PricingAssignment
}

func newMemRepo() *memRepo {
	return &memRepo{
		blueprints:  map[string]*model.PricingBlueprint{},
		assignments: map[string]*model.PricingAssignment{},
	}
}

func (m *memRepo) CreateBlueprint(_ context.Context, bp *model.PricingBlueprint) error {
	cp := *bp
	m.blueprints[bp.ID] = &cp
	return nil
}

func (m *memRepo) FindBlueprint(_ context.Context, vendorID, id string) (*model.PricingBlueprint, error) {
	bp, ok := m.blueprints[id]
	if !ok || bp.VendorID != vendorID {
		return nil, nil
	}
	cp := *bp
	return &cp, nil
}

func (m *memRepo) ListBlueprints(_ context.Context, vendorID string, activeOnly bool) ([]model.PricingBlueprint, error) {
	var out []model.PricingBlueprint
	for _, bp := range m.blueprints {
		if bp.VendorID == vendorID && (!activeOnly || bp.IsActive) {
			out = append(out, *bp)
		}
	}
	return out, nil
}

func (m *memRepo) UpdateBlueprint(_ context.Context, bp *model.PricingBlueprint) error {
	if _, ok := m.blueprints[bp.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *bp
	m.blueprints[bp.ID] = &cp
	return nil
}

func (m *memRepo) DeleteBlueprint(_ context.Context, vendorID, id string) error {
	bp, ok := m.blueprints[id]
	if !ok || bp.VendorID != vendorID {
		return sql.ErrNoRows
	}
	delete(m.blueprints, id)
	return nil
}

func (m *memRepo) UpsertAssignment(_ context.Context, a *model.PricingAssignment) error {
	for id, cur := range m.assignments {
		sameProduct := a.ProductID != nil && cur.ProductID != nil && *a.ProductID == *cur.ProductID
		sameCategory := a.CategoryID != nil && cur.CategoryID != nil && *a.CategoryID == *cur.CategoryID
		if cur.VendorID == a.VendorID && (sameProduct || sameCategory) {
			a.ID = id
		}
	}
	cp := *a
	m.assignments[a.ID] = &cp
	return nil
}

func (m *memRepo) DeleteAssignment(_ context.Context, vendorID, id string) error {
	if a, ok := m.assignments[id]; !ok || a.VendorID != vendorID {
		return sql.ErrNoRows
	}
	delete(m.assignments, id)
	return nil
}

func (m *memRepo) ListAssignments(_ context.Context, vendorID, blueprintID string) ([]model.PricingAssignment, error) {
	var out []model.PricingAssignment
	for _, a := range m.assignments {
		if a.VendorID == vendorID && (blueprintID == "" || a.BlueprintID == blueprintID) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memRepo) FindProductAssignment(_ context.Context, vendorID, productID string) (*model.PricingAssignment, error) {
	for _, a := range m.assignments {
		if a.VendorID == vendorID && a.ProductID != nil && *a.ProductID == productID {
			return a, nil
		}
	}
	return nil, nil
}

func (m *memRepo) FindCategoryAssignment(_ context.Context, vendorID, categoryID string) (*model.PricingAssignment, error) {
	for _, a := range m.assignments {
		if a.VendorID == vendorID && a.CategoryID != nil && *a.CategoryID == categoryID {
			return a, nil
		}
	}
	return nil, nil
}

type fakeProducts map[string]*model.Product

func (f fakeProducts) FindByID(_ context.Context, vendorID, id string) (*model.Product, error) {
	p, ok := f[id]
	if !ok || p.VendorID != vendorID {
		return nil, nil
	}
	return p, nil
}

func ptr[T any](v T) *T { return &v }

func setup(t *testing.T) (*pricingUseCase, *memRepo, fakeProducts) {
	t.Helper()
	repo := newMemRepo()
	products := fakeProducts{
		"flower": {
			BaseModel:  model.BaseModel{ID: "flower"},
			VendorID:   "vendor-1",
			CategoryID: ptr("cat-flower"),
			Name:       "Blue Dream",
			BasePrice:  decimal.RequireFromString("12.00"),
		},
	}
	uc := NewPricingUseCase(repo, products, logger.NewNop()).(*pricingUseCase)
	uc.now = func() time.Time { return time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC) }
	return uc, repo, products
}

func tiers() []dto.PriceBreakInput {
	return []dto.PriceBreakInput{
		{Label: "1/8 oz", Quantity: 3.5, Unit: "g", Price: decimal.RequireFromString("10")},
		{Label: "1 g", Quantity: 1, Unit: "g", Price: decimal.RequireFromString("12")},
		{Label: "1/4 oz", Quantity: 7, Unit: "g", Price: decimal.RequireFromString("9.333")},
	}
}

func TestCreateBlueprintValidation(t *testing.T) {
	uc, _, _ := setup(t)
	ctx := context.Background()

	cases := map[string]*dto.BlueprintInput{
		"no name":      {VendorID: "vendor-1", PriceBreaks: tiers()},
		"no breaks":    {VendorID: "vendor-1", Name: "Flower"},
		"zero qty":     {VendorID: "vendor-1", Name: "Flower", PriceBreaks: []dto.PriceBreakInput{{Quantity: 0, Price: decimal.NewFromInt(1)}}},
		"negative":     {VendorID: "vendor-1", Name: "Flower", PriceBreaks: []dto.PriceBreakInput{{Quantity: 1, Price: decimal.NewFromInt(-1)}}},
		"duplicate qt": {VendorID: "vendor-1", Name: "Flower", PriceBreaks: []dto.PriceBreakInput{{Quantity: 1}, {Quantity: 1}}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := uc.CreateBlueprint(ctx, in); apperror.KindOf(err) != apperror.KindInvalidInput {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestCreateBlueprintSortsBreaks(t *testing.T) {
	uc, _, _ := setup(t)
	bp, err := uc.CreateBlueprint(context.Background(), &dto.BlueprintInput{VendorID: "vendor-1", Name: "Flower", PriceBreaks: tiers()})
	if err != nil {
		t.Fatal(err)
	}
	if !bp.IsActive || len(bp.PriceBreaks) != 3 {
		t.Fatalf("bp = %+v", bp)
	}
	for i, want := range []float64{1, 3.5, 7} {
		if bp.PriceBreaks[i].Quantity != want || bp.PriceBreaks[i].BreakID == "" {
			t.Fatalf("break %d = %+v", i, bp.PriceBreaks[i])
		}
	}
	if !bp.PriceBreaks[2].Price.Equal(decimal.RequireFromString("9.33")) {
		t.Fatalf("price = %s", bp.PriceBreaks[2].Price)
	}
}

func TestQuoteUsesLargestBreakNotAboveQuantity(t *testing.T) {
	uc, _, _ := setup(t)
	ctx := context.Background()
	bp, _ := uc.CreateBlueprint(ctx, &dto.BlueprintInput{VendorID: "vendor-1", Name: "Flower", PriceBreaks: tiers()})
	if _, err := uc.Assign(ctx, &dto.AssignInput{VendorID: "vendor-1", BlueprintID: bp.ID, CategoryID: ptr("cat-flower")}); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		qty       float64
		unit      string
		total     string
		breakQty  float64
		baseFalls bool
	}{
		{qty: 0.5, unit: "12", total: "6", baseFalls: true},
		{qty: 1, unit: "12", total: "12", breakQty: 1},
		{qty: 5, unit: "10", total: "50", breakQty: 3.5},
		{qty: 28, unit: "9.33", total: "261.24", breakQty: 7},
	}
	for _, tc := range cases {
		q, err := uc.Quote(ctx, "vendor-1", "flower", tc.qty)
		if err != nil {
			t.Fatal(err)
		}
		if !q.UnitPrice.Equal(decimal.RequireFromString(tc.unit)) || !q.LineTotal.Equal(decimal.RequireFromString(tc.total)) {
			t.Fatalf("qty %g: unit %s total %s", tc.qty, q.UnitPrice, q.LineTotal)
		}
		if tc.baseFalls {
			if q.Break != nil {
				t.Fatalf("qty %g: unexpected break %+v", tc.qty, q.Break)
			}
			continue
		}
		if q.Break == nil || q.Break.Quantity != tc.breakQty {
			t.Fatalf("qty %g: break = %+v", tc.qty, q.Break)
		}
	}
}

func TestQuoteProductAssignmentWins(t *testing.T) {
	uc, _, _ := setup(t)
	ctx := context.Background()
	catBP, _ := uc.CreateBlueprint(ctx, &dto.BlueprintInput{VendorID: "vendor-1", Name: "Category", PriceBreaks: tiers()})
	prodBP, _ := uc.CreateBlueprint(ctx, &dto.BlueprintInput{VendorID: "vendor-1", Name: "Promo",
		PriceBreaks: []dto.PriceBreakInput{{Quantity: 1, Price: decimal.NewFromInt(5)}}})

	_, _ = uc.Assign(ctx, &dto.AssignInput{VendorID: "vendor-1", BlueprintID: catBP.ID, CategoryID: ptr("cat-flower")})
	_, _ = uc.Assign(ctx, &dto.AssignInput{VendorID: "vendor-1", BlueprintID: prodBP.ID, ProductID: ptr("flower")})

	q, err := uc.Quote(ctx, "vendor-1", "flower", 2)
	if err != nil {
		t.Fatal(err)
	}
	if *q.BlueprintID != prodBP.ID || !q.LineTotal.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("quote = %+v", q)
	}
}

func TestQuoteSkipsInactiveBlueprint(t *testing.T) {
	uc, _, _ := setup(t)
	ctx := context.Background()
	bp, _ := uc.CreateBlueprint(ctx, &dto.BlueprintInput{VendorID: "vendor-1", Name: "Old", PriceBreaks: tiers(), IsActive: ptr(false)})
	_, _ = uc.Assign(ctx, &dto.AssignInput{VendorID: "vendor-1", BlueprintID: bp.ID, ProductID: ptr("flower")})

	q, err := uc.Quote(ctx, "vendor-1", "flower", 7)
	if err != nil {
		t.Fatal(err)
	}
	if q.BlueprintID != nil || !q.LineTotal.Equal(decimal.NewFromInt(84)) {
		t.Fatalf("quote = %+v", q)
	}
}

func TestQuoteErrors(t *testing.T) {
	uc, _, _ := setup(t)
	ctx := context.Background()

	for _, qty := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := uc.Quote(ctx, "vendor-1", "flower", qty); apperror.KindOf(err) != apperror.KindInvalidInput {
			t.Fatalf("qty %g err = %v", qty, err)
		}
	}
	if _, err := uc.Quote(ctx, "vendor-2", "flower", 1); apperror.KindOf(err) != apperror.KindNotFound {
		t.Fatalf("other vendor err = %v", err)
	}
}

func TestAssignRequiresOneTarget(t *testing.T) {
	uc, _, _ := setup(t)
	ctx := context.Background()
	bp, _ := uc.CreateBlueprint(ctx, &dto.BlueprintInput{VendorID: "vendor-1", Name: "Flower", PriceBreaks: tiers()})

	_, err := uc.Assign(ctx, &dto.AssignInput{VendorID: "vendor-1", BlueprintID: bp.ID, ProductID: ptr("flower"), CategoryID: ptr("cat-flower")})
	if apperror.KindOf(err) != apperror.KindInvalidInput {
		t.Fatalf("both err = %v", err)
	}
	_, err = uc.Assign(ctx, &dto.AssignInput{VendorID: "vendor-1", BlueprintID: bp.ID})
	if apperror.KindOf(err) != apperror.KindInvalidInput {
		t.Fatalf("neither err = %v", err)
	}
	_, err = uc.Assign(ctx, &dto.AssignInput{VendorID: "vendor-1", BlueprintID: "missing", ProductID: ptr("flower")})
	if apperror.KindOf(err) != apperror.KindNotFound {
		t.Fatalf("missing blueprint err = %v", err)
	}
}

func TestReassignReplacesTarget(t *testing.T) {
	uc, repo, _ := setup(t)
	ctx := context.Background()
	a, _ := uc.CreateBlueprint(ctx, &dto.BlueprintInput{VendorID: "vendor-1", Name: "A", PriceBreaks: tiers()})
	b, _ := uc.CreateBlueprint(ctx, &dto.BlueprintInput{VendorID: "vendor-1", Name: "B", PriceBreaks: tiers()})

	first, _ := uc.Assign(ctx, &dto.AssignInput{VendorID: "vendor-1", BlueprintID: a.ID, ProductID: ptr("flower")})
	second, _ := uc.Assign(ctx, &dto.AssignInput{VendorID: "vendor-1", BlueprintID: b.ID, ProductID: ptr("flower")})

	if first.ID != second.ID || len(repo.assignments) != 1 || repo.assignments[first.ID].BlueprintID != b.ID {
		t.Fatalf("assignments = %+v", repo.assignments)
	}
}

func TestDeleteBlueprintNotFound(t *testing.T) {
	uc, _, _ := setup(t)
	err := uc.DeleteBlueprint(context.Background(), "vendor-1", "nope")
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Kind != apperror.KindNotFound {
		t.Fatalf("err = %v", err)
	}
}
