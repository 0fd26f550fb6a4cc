package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/order/dto"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/postgres"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, o *model.Order) error {
	return postgres.WithTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		query := `
            INSERT INTO orders (id, vendor_id, order_number, customer_id, location_id, register_id, status,
                subtotal, tax_amount, total, refunded_total, currency, created_by, created_at, updated_at)
            VALUES (:id, :vendor_id, :order_number, :customer_id, :location_id, :register_id, :status,
                :subtotal, :tax_amount, :total, :refunded_total, :currency, :created_by, :created_at, :updated_at)
        `
		if _, err := tx.NamedExecContext(ctx, query, o); err != nil {
			return err
		}

		itemQuery := `
            INSERT INTO order_items (id, order_id, product_id, product_name, quantity, unit_price, line_total, price_break_id, track_inventory)
            VALUES (:id, :order_id, :product_id, :product_name, :quantity, :unit_price, :line_total, :price_break_id, :track_inventory)
        `
		for i := range o.Items {
			if _, err := tx.NamedExecContext(ctx, itemQuery, &o.Items[i]); err != nil {
				return fmt.Errorf("insert order item %d: %w", i, err)
			}
		}
		return nil
	})
}

func (r *PGRepository) FindByID(ctx context.Context, vendorID, id string) (*model.Order, error) {
	var o model.Order
	if err := r.DB.GetContext(ctx, &o, `SELECT * FROM orders WHERE id = $1 AND vendor_id = $2`, id, vendorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	o.Items = []model.OrderItem{}
	if err := r.DB.SelectContext(ctx, &o.Items, `SELECT * FROM order_items WHERE order_id = $1 ORDER BY product_name ASC`, o.ID); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.OrderFilters) ([]model.Order, int, error) {
	conditions := []string{"vendor_id = :vendor_id"}
	args := map[string]any{"vendor_id": f.VendorID}

	if f.Status != "" {
		conditions = append(conditions, "status = :status")
		args["status"] = f.Status
	}
	if f.LocationID != "" {
		conditions = append(conditions, "location_id = :location_id")
		args["location_id"] = f.LocationID
	}
	if f.StartDate != nil {
		conditions = append(conditions, "created_at >= :start_date")
		args["start_date"] = *f.StartDate
	}
	if f.EndDate != nil {
		conditions = append(conditions, "created_at <= :end_date")
		args["end_date"] = *f.EndDate
	}
	whereClause := " WHERE " + strings.Join(conditions, " AND ")

	var count int
	countQuery, countArgs, err := sqlx.Named("SELECT count(*) FROM orders"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM orders" + whereClause + " ORDER BY created_at DESC"
	if f.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (f.Page-1)*f.PageSize)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	orders := []model.Order{}
	if err := nstmt.SelectContext(ctx, &orders, args); err != nil {
		return nil, 0, err
	}
	return orders, count, nil
}

func (r *PGRepository) UpdateStatus(ctx context.Context, o *model.Order, from string) error {
	return postgres.WithTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		query := `
            UPDATE orders SET
                status = :status,
                transaction_id = :transaction_id,
                paid_at = :paid_at,
                refunded_total = :refunded_total,
                updated_at = :updated_at
            WHERE id = :id AND vendor_id = :vendor_id AND status = :from_status
        `
		args := map[string]any{
			"status":         o.Status,
			"transaction_id": o.TransactionID,
			"paid_at":        o.PaidAt,
			"refunded_total": o.RefundedTotal,
			"updated_at":     o.UpdatedAt,
			"id":             o.ID,
			"vendor_id":      o.VendorID,
			"from_status":    from,
		}
		res, err := tx.NamedExecContext(ctx, query, args)
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

		for _, it := range o.Items {
			if _, err := tx.ExecContext(ctx,
				`UPDATE order_items SET restocked_quantity = $1 WHERE id = $2 AND order_id = $3`,
				it.RestockedQuantity, it.ID, o.ID); err != nil {
				return fmt.Errorf("update order item %s: %w", it.ID, err)
			}
		}
		return nil
	})
}
