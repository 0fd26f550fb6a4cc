package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/fekuna/omnipos-marketplace-service/internal/model"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) CreateBlueprint(ctx context.Context, bp *model.PricingBlueprint) error {
	query := `
        INSERT INTO pricing_blueprints (id, vendor_id, name, description, price_breaks, is_active, created_at, updated_at)
        VALUES (:id, :vendor_id, :name, :description, :price_breaks, :is_active, :created_at, :updated_at)
    `
	_, err := r.DB.NamedExecContext(ctx, query, bp)
	return err
}

func (r *PGRepository) FindBlueprint(ctx context.Context, vendorID, id string) (*model.PricingBlueprint, error) {
	var bp model.PricingBlueprint
	err := r.DB.GetContext(ctx, &bp, `SELECT * FROM pricing_blueprints WHERE id = $1 AND vendor_id = $2`, id, vendorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &bp, nil
}

func (r *PGRepository) ListBlueprints(ctx context.Context, vendorID string, activeOnly bool) ([]model.PricingBlueprint, error) {
	query := `SELECT * FROM pricing_blueprints WHERE vendor_id = $1`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY name ASC`

	blueprints := []model.PricingBlueprint{}
	if err := r.DB.SelectContext(ctx, &blueprints, query, vendorID); err != nil {
		return nil, err
	}
	return blueprints, nil
}

func (r *PGRepository) UpdateBlueprint(ctx context.Context, bp *model.PricingBlueprint) error {
	query := `
        UPDATE pricing_blueprints SET
            name = :name,
            description = :description,
            price_breaks = :price_breaks,
            is_active = :is_active,
            updated_at = :updated_at
        WHERE id = :id AND vendor_id = :vendor_id
    `
	res, err := r.DB.NamedExecContext(ctx, query, bp)
	return expectRow(res, err)
}

func (r *PGRepository) DeleteBlueprint(ctx context.Context, vendorID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM pricing_blueprints WHERE id = $1 AND vendor_id = $2`, id, vendorID)
	return expectRow(res, err)
}

func (r *PGRepository) UpsertAssignment(ctx context.Context, a *model.PricingAssignment) error {
	conflict := `(vendor_id, category_id) WHERE category_id IS NOT NULL`
	if a.ProductID != nil {
		conflict = `(vendor_id, product_id) WHERE product_id IS NOT NULL`
	}
	query := `
        INSERT INTO pricing_assignments (id, vendor_id, blueprint_id, product_id, category_id, created_at, updated_at)
        VALUES (:id, :vendor_id, :blueprint_id, :product_id, :category_id, :created_at, :updated_at)
        ON CONFLICT ` + conflict + ` DO UPDATE SET
            blueprint_id = EXCLUDED.blueprint_id,
            updated_at = EXCLUDED.updated_at
        RETURNING id, created_at
    `
	rows, err := r.DB.NamedQueryContext(ctx, query, a)
	if err != nil {
		return err
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&a.ID, &a.CreatedAt); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *PGRepository) DeleteAssignment(ctx context.Context, vendorID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM pricing_assignments WHERE id = $1 AND vendor_id = $2`, id, vendorID)
	return expectRow(res, err)
}

func (r *PGRepository) ListAssignments(ctx context.Context, vendorID, blueprintID string) ([]model.PricingAssignment, error) {
	query := `SELECT * FROM pricing_assignments WHERE vendor_id = $1`
	args := []any{vendorID}
	if blueprintID != "" {
		query += ` AND blueprint_id = $2`
		args = append(args, blueprintID)
	}
	query += ` ORDER BY created_at ASC`

	assignments := []model.PricingAssignment{}
	if err := r.DB.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *PGRepository) FindProductAssignment(ctx context.Context, vendorID, productID string) (*model.PricingAssignment, error) {
	return r.findAssignment(ctx, `SELECT * FROM pricing_assignments WHERE vendor_id = $1 AND product_id = $2`, vendorID, productID)
}

func (r *PGRepository) FindCategoryAssignment(ctx context.Context, vendorID, categoryID string) (*model.PricingAssignment, error) {
	return r.findAssignment(ctx, `SELECT * FROM pricing_assignments WHERE vendor_id = $1 AND category_id = $2`, vendorID, categoryID)
}

func (r *PGRepository) findAssignment(ctx context.Context, query string, args ...any) (*model.PricingAssignment, error) {
	var a model.PricingAssignment
	if err := r.DB.GetContext(ctx, &a, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func expectRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
