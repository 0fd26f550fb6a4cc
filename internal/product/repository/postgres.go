package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/product/dto"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, p *model.Product) error {
	query := `
        INSERT INTO products (
            id, vendor_id, category_id, pricing_blueprint_id, sku, name, description,
            base_price, cost_price, strain_type, thc_percent, cbd_percent, status,
            track_inventory, image_url, woocommerce_id, created_at, updated_at
        )
        VALUES (
            :id, :vendor_id, :category_id, :pricing_blueprint_id, :sku, :name, :description,
            :base_price, :cost_price, :strain_type, :thc_percent, :cbd_percent, :status,
            :track_inventory, :image_url, :woocommerce_id, :created_at, :updated_at
        )
    `
	_, err := r.DB.NamedExecContext(ctx, query, p)
	return err
}

func (r *PGRepository) FindByID(ctx context.Context, vendorID, id string) (*model.Product, error) {
	var product model.Product
	query := `SELECT * FROM products WHERE id = $1 AND vendor_id = $2 AND deleted_at IS NULL LIMIT 1`
	err := r.DB.GetContext(ctx, &product, query, id, vendorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
	conditions := []string{"vendor_id = :vendor_id", "deleted_at IS NULL"}
	args := map[string]any{"vendor_id": f.VendorID}

	if f.CategoryID != "" {
		conditions = append(conditions, "category_id = :category_id")
		args["category_id"] = f.CategoryID
	}
	if f.Status != "" {
		conditions = append(conditions, "status = :status")
		args["status"] = f.Status
	}
	if f.SearchQuery != "" {
		conditions = append(conditions, "(name ILIKE :search OR sku ILIKE :search OR strain_type ILIKE :search)")
		args["search"] = "%" + f.SearchQuery + "%"
	}
	whereClause := " WHERE " + strings.Join(conditions, " AND ")

	var count int
	countQuery, countArgs, err := sqlx.Named("SELECT count(*) FROM products"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT * FROM products%s ORDER BY %s", whereClause, orderBy(f))
	if f.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, f.Offset())
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	products := []model.Product{}
	if err := nstmt.SelectContext(ctx, &products, args); err != nil {
		return nil, 0, err
	}
	return products, count, nil
}

// orderBy only emits whitelisted columns.
func orderBy(f *dto.ProductFilters) string {
	column := "created_at"
	switch f.SortBy {
	case "name":
		column = "name"
	case "price":
		column = "base_price"
	case "thc":
		column = "thc_percent"
	case "sku":
		column = "sku"
	}
	dir := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		dir = "ASC"
	}
	return column + " " + dir + ", id"
}

func (r *PGRepository) FindWithWooCommerceID(ctx context.Context, vendorID string) ([]model.Product, error) {
	var products []model.Product
	query := `
        SELECT * FROM products
        WHERE vendor_id = $1 AND woocommerce_id IS NOT NULL AND deleted_at IS NULL
        ORDER BY woocommerce_id
    `
	if err := r.DB.SelectContext(ctx, &products, query, vendorID); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *PGRepository) Update(ctx context.Context, p *model.Product) error {
	query := `
        UPDATE products
        SET category_id = :category_id,
            pricing_blueprint_id = :pricing_blueprint_id,
            sku = :sku,
            name = :name,
            description = :description,
            base_price = :base_price,
            cost_price = :cost_price,
            strain_type = :strain_type,
            thc_percent = :thc_percent,
            cbd_percent = :cbd_percent,
            status = :status,
            track_inventory = :track_inventory,
            image_url = :image_url,
            woocommerce_id = :woocommerce_id,
            updated_at = :updated_at
        WHERE id = :id AND vendor_id = :vendor_id AND deleted_at IS NULL
    `
	res, err := r.DB.NamedExecContext(ctx, query, p)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (r *PGRepository) SoftDelete(ctx context.Context, vendorID, id string, at time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE products SET deleted_at = $3, updated_at = $3 WHERE id = $1 AND vendor_id = $2 AND deleted_at IS NULL`,
		id, vendorID, at)
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
