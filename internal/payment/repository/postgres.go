package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/fekuna/omnipos-marketplace-service/internal/model"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

// FindActiveProcessor prefers a processor bound to the location, then the
// vendor default, then the most recently updated one.
func (r *PGRepository) FindActiveProcessor(ctx context.Context, vendorID string, locationID *string) (*model.PaymentProcessor, error) {
	var p model.PaymentProcessor
	query := `
        SELECT * FROM payment_processors
        WHERE vendor_id = $1 AND is_active = TRUE
          AND (location_id IS NULL OR location_id = $2)
        ORDER BY (location_id IS NOT NULL AND location_id = $2) DESC, is_default DESC, updated_at DESC
        LIMIT 1
    `
	var loc any
	if locationID != nil && *locationID != "" {
		loc = *locationID
	}
	err := r.DB.GetContext(ctx, &p, query, vendorID, loc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGRepository) FindProcessorByID(ctx context.Context, vendorID, id string) (*model.PaymentProcessor, error) {
	var p model.PaymentProcessor
	err := r.DB.GetContext(ctx, &p, `SELECT * FROM payment_processors WHERE vendor_id = $1 AND id = $2`, vendorID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGRepository) ListProcessors(ctx context.Context, vendorID string) ([]model.PaymentProcessor, error) {
	items := []model.PaymentProcessor{}
	err := r.DB.SelectContext(ctx, &items,
		`SELECT * FROM payment_processors WHERE vendor_id = $1 ORDER BY is_default DESC, name`, vendorID)
	return items, err
}

// UpsertProcessor also clears is_default on the vendor's other processors
// when p is the default.
func (r *PGRepository) UpsertProcessor(ctx context.Context, p *model.PaymentProcessor) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if p.IsDefault {
		if _, err := tx.ExecContext(ctx,
			`UPDATE payment_processors SET is_default = FALSE WHERE vendor_id = $1 AND id <> $2`, p.VendorID, p.ID); err != nil {
			return err
		}
	}

	query := `
        INSERT INTO payment_processors (
            id, vendor_id, location_id, name, processor_type, environment,
            dejavoo_tpn, dejavoo_authkey, dejavoo_register_id, is_active, is_default,
            created_at, updated_at
        )
        VALUES (
            :id, :vendor_id, :location_id, :name, :processor_type, :environment,
            :dejavoo_tpn, :dejavoo_authkey, :dejavoo_register_id, :is_active, :is_default,
            :created_at, :updated_at
        )
        ON CONFLICT (id) DO UPDATE SET
            location_id = EXCLUDED.location_id,
            name = EXCLUDED.name,
            processor_type = EXCLUDED.processor_type,
            environment = EXCLUDED.environment,
            dejavoo_tpn = EXCLUDED.dejavoo_tpn,
            dejavoo_authkey = COALESCE(EXCLUDED.dejavoo_authkey, payment_processors.dejavoo_authkey),
            dejavoo_register_id = EXCLUDED.dejavoo_register_id,
            is_active = EXCLUDED.is_active,
            is_default = EXCLUDED.is_default,
            updated_at = EXCLUDED.updated_at
        WHERE payment_processors.vendor_id = EXCLUDED.vendor_id
    `
	if _, err := tx.NamedExecContext(ctx, query, p); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PGRepository) DeactivateProcessor(ctx context.Context, vendorID, id string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE payment_processors SET is_active = FALSE, is_default = FALSE, updated_at = NOW() WHERE vendor_id = $1 AND id = $2`,
		vendorID, id)
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

func (r *PGRepository) CreateTransaction(ctx context.Context, t *model.PaymentTransaction) error {
	query := `
        INSERT INTO payment_transactions (
            id, vendor_id, processor_id, order_id, parent_transaction_id, transaction_type,
            reference_id, amount, currency, status, auth_code, message, raw_response, created_at
        )
        VALUES (
            :id, :vendor_id, :processor_id, :order_id, :parent_transaction_id, :transaction_type,
            :reference_id, :amount, :currency, :status, :auth_code, :message, :raw_response, :created_at
        )
    `
	_, err := r.DB.NamedExecContext(ctx, query, t)
	return err
}

func (r *PGRepository) FindSaleByReference(ctx context.Context, vendorID, referenceID string) (*model.PaymentTransaction, error) {
	var t model.PaymentTransaction
	err := r.DB.GetContext(ctx, &t, `
        SELECT * FROM payment_transactions
        WHERE vendor_id = $1 AND reference_id = $2 AND transaction_type = 'sale'
        ORDER BY created_at DESC LIMIT 1
    `, vendorID, referenceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *PGRepository) SumApprovedRefunds(ctx context.Context, vendorID, saleID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.DB.GetContext(ctx, &total, `
        SELECT COALESCE(SUM(amount), 0) FROM payment_transactions
        WHERE vendor_id = $1 AND parent_transaction_id = $2
          AND transaction_type = 'refund' AND status = 'approved'
    `, vendorID, saleID)
	return total, err
}

func (r *PGRepository) HasApprovedVoid(ctx context.Context, vendorID, saleID string) (bool, error) {
	var exists bool
	err := r.DB.GetContext(ctx, &exists, `
        SELECT EXISTS (
            SELECT 1 FROM payment_transactions
            WHERE vendor_id = $1 AND parent_transaction_id = $2
              AND transaction_type = 'void' AND status = 'approved'
        )
    `, vendorID, saleID)
	return exists, err
}
