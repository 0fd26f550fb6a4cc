package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fekuna/omnipos-marketplace-service/internal/inventory"
	"github.com/fekuna/omnipos-marketplace-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/postgres"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetByProduct(ctx context.Context, vendorID, productID string, locationID *string) (*model.Inventory, error) {
	var inv model.Inventory
	query := `
        SELECT * FROM inventory
        WHERE vendor_id = $1 AND product_id = $2 AND location_id IS NOT DISTINCT FROM $3
    `
	err := r.DB.GetContext(ctx, &inv, query, vendorID, productID, locationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.InventoryFilters) ([]model.Inventory, int, error) {
	conditions := []string{"vendor_id = :vendor_id"}
	args := map[string]any{"vendor_id": f.VendorID}

	if f.ProductID != "" {
		conditions = append(conditions, "product_id = :product_id")
		args["product_id"] = f.ProductID
	}
	if f.LocationID != nil {
		if *f.LocationID == "" {
			conditions = append(conditions, "location_id IS NULL")
		} else {
			conditions = append(conditions, "location_id = :location_id")
			args["location_id"] = *f.LocationID
		}
	}
	if f.LowStock {
		conditions = append(conditions, "reorder_point > 0 AND quantity <= reorder_point")
	}
	whereClause := " WHERE " + strings.Join(conditions, " AND ")

	var count int
	countQuery, countArgs, err := sqlx.Named("SELECT count(*) FROM inventory"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, err
	}

	order := "updated_at DESC"
	if f.LowStock {
		order = "quantity - reorder_point ASC"
	}
	query := "SELECT * FROM inventory" + whereClause + " ORDER BY " + order
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	items := []model.Inventory{}
	err = nstmt.SelectContext(ctx, &items, args)
	return items, count, err
}

// ApplyBatch locks the affected rows in product order, so concurrent batches
// touching the same products cannot deadlock.
func (r *PGRepository) ApplyBatch(ctx context.Context, b *inventory.Batch) ([]model.Inventory, error) {
	changes := append([]inventory.StockChange(nil), b.Changes...)
	sort.SliceStable(changes, func(i, j int) bool { return changes[i].ProductID < changes[j].ProductID })

	var out []model.Inventory
	err := postgres.WithTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		out = out[:0]
		for _, ch := range changes {
			inv, err := lockRow(ctx, tx, b, ch.ProductID)
			if err != nil {
				return err
			}

			before := inv.Quantity
			after := before + ch.Delta
			if after < 0 {
				return &inventory.StockError{ProductID: ch.ProductID, Available: before, Requested: -ch.Delta}
			}
			inv.Quantity = after
			inv.UpdatedAt = b.At
			if b.MovementType == model.MovementReceive || b.MovementType == model.MovementAdjustment {
				at := b.At
				inv.LastCountedAt = &at
			}

			if _, err := tx.NamedExecContext(ctx, `
                UPDATE inventory
                SET quantity = :quantity, last_counted_at = :last_counted_at, updated_at = :updated_at
                WHERE id = :id
            `, inv); err != nil {
				return mapStockError(err, ch.ProductID)
			}

			m := &model.InventoryMovement{
				ID:             uuid.NewString(),
				VendorID:       b.VendorID,
				LocationID:     b.LocationID,
				ProductID:      ch.ProductID,
				MovementType:   b.MovementType,
				QuantityChange: ch.Delta,
				QuantityBefore: before,
				QuantityAfter:  after,
				ReferenceType:  optional(b.ReferenceType),
				ReferenceID:    optional(b.ReferenceID),
				Notes:          b.Notes,
				CreatedBy:      optional(b.CreatedBy),
				CreatedAt:      b.At,
			}
			if _, err := tx.NamedExecContext(ctx, `
                INSERT INTO inventory_movements (
                    id, vendor_id, location_id, product_id, movement_type,
                    quantity_change, quantity_before, quantity_after,
                    reference_type, reference_id, notes, created_by, created_at
                )
                VALUES (
                    :id, :vendor_id, :location_id, :product_id, :movement_type,
                    :quantity_change, :quantity_before, :quantity_after,
                    :reference_type, :reference_id, :notes, :created_by, :created_at
                )
            `, m); err != nil {
				return fmt.Errorf("log movement: %w", err)
			}
			out = append(out, *inv)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// lockRow creates the stock row when missing and returns it locked.
func lockRow(ctx context.Context, tx *sqlx.Tx, b *inventory.Batch, productID string) (*model.Inventory, error) {
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO inventory (id, vendor_id, location_id, product_id, quantity, reorder_point, updated_at)
        VALUES ($1, $2, $3, $4, 0, 0, $5)
        ON CONFLICT (vendor_id, location_id, product_id) DO NOTHING
    `, uuid.NewString(), b.VendorID, b.LocationID, productID, b.At); err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w %s", inventory.ErrUnknownProduct, productID)
		}
		return nil, err
	}

	var inv model.Inventory
	err := tx.GetContext(ctx, &inv, `
        SELECT * FROM inventory
        WHERE vendor_id = $1 AND product_id = $2 AND location_id IS NOT DISTINCT FROM $3
        FOR UPDATE
    `, b.VendorID, productID, b.LocationID)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func mapStockError(err error, productID string) error {
	if postgres.IsCheckViolation(err) {
		return &inventory.StockError{ProductID: productID}
	}
	return err
}

func (r *PGRepository) SetReorderPoint(ctx context.Context, vendorID, productID string, locationID *string, point float64, at time.Time) (*model.Inventory, error) {
	var inv model.Inventory
	err := r.DB.GetContext(ctx, &inv, `
        INSERT INTO inventory (id, vendor_id, location_id, product_id, quantity, reorder_point, updated_at)
        VALUES ($1, $2, $3, $4, 0, $5, $6)
        ON CONFLICT (vendor_id, location_id, product_id)
        DO UPDATE SET reorder_point = EXCLUDED.reorder_point, updated_at = EXCLUDED.updated_at
        RETURNING *
    `, uuid.NewString(), vendorID, locationID, productID, point, at)
	if postgres.IsForeignKeyViolation(err) {
		return nil, fmt.Errorf("%w %s", inventory.ErrUnknownProduct, productID)
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *PGRepository) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.InventoryMovement, int, error) {
	conditions := []string{"vendor_id = :vendor_id"}
	args := map[string]any{"vendor_id": f.VendorID}

	if f.ProductID != "" {
		conditions = append(conditions, "product_id = :product_id")
		args["product_id"] = f.ProductID
	}
	if f.MovementType != "" {
		conditions = append(conditions, "movement_type = :movement_type")
		args["movement_type"] = f.MovementType
	}
	if f.StartDate != nil {
		conditions = append(conditions, "created_at >= :start_date")
		args["start_date"] = *f.StartDate
	}
	if f.EndDate != nil {
		conditions = append(conditions, "created_at < :end_date")
		args["end_date"] = *f.EndDate
	}
	whereClause := " WHERE " + strings.Join(conditions, " AND ")

	var count int
	countQuery, countArgs, err := sqlx.Named("SELECT count(*) FROM inventory_movements"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM inventory_movements" + whereClause + " ORDER BY created_at DESC"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	items := []model.InventoryMovement{}
	err = nstmt.SelectContext(ctx, &items, args)
	return items, count, err
}

func (r *PGRepository) HasMovement(ctx context.Context, vendorID, referenceType, referenceID string) (bool, error) {
	var exists bool
	err := r.DB.GetContext(ctx, &exists, `
        SELECT EXISTS (
            SELECT 1 FROM inventory_movements
            WHERE vendor_id = $1 AND reference_type = $2 AND reference_id = $3
        )
    `, vendorID, referenceType, referenceID)
	return exists, err
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
