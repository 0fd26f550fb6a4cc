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

func (r *PGRepository) Create(ctx context.Context, v *model.Vendor) error {
	query := `
        INSERT INTO vendors (id, slug, name, domain, status, tax_rate, logo_url, created_at, updated_at)
        VALUES (:id, :slug, :name, :domain, :status, :tax_rate, :logo_url, :created_at, :updated_at)
    `
	_, err := r.DB.NamedExecContext(ctx, query, v)
	return err
}

func (r *PGRepository) findOne(ctx context.Context, query string, arg any) (*model.Vendor, error) {
	var v model.Vendor
	if err := r.DB.GetContext(ctx, &v, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Vendor, error) {
	return r.findOne(ctx, `SELECT * FROM vendors WHERE id = $1`, id)
}

func (r *PGRepository) FindBySlug(ctx context.Context, slug string) (*model.Vendor, error) {
	return r.findOne(ctx, `SELECT * FROM vendors WHERE slug = $1`, slug)
}

func (r *PGRepository) FindByDomain(ctx context.Context, domain string) (*model.Vendor, error) {
	return r.findOne(ctx, `SELECT * FROM vendors WHERE lower(domain) = lower($1)`, domain)
}

func (r *PGRepository) Update(ctx context.Context, v *model.Vendor) error {
	query := `
        UPDATE vendors
        SET name = :name,
            domain = :domain,
            tax_rate = :tax_rate,
            logo_url = :logo_url,
            woocommerce_url = :woocommerce_url,
            woocommerce_consumer_key = :woocommerce_consumer_key,
            woocommerce_consumer_secret = :woocommerce_consumer_secret,
            alpineiq_user_id = :alpineiq_user_id,
            updated_at = :updated_at
        WHERE id = :id
    `
	res, err := r.DB.NamedExecContext(ctx, query, v)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (r *PGRepository) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE vendors SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
