package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ProcessorDejavoo = "dejavoo"

	ProcessorEnvProduction = "production"
	ProcessorEnvSandbox    = "sandbox"

	TransactionSale   = "sale"
	TransactionRefund = "refund"
	TransactionVoid   = "void"

	TransactionApproved = "approved"
	TransactionDeclined = "declined"
	TransactionError    = "error"
)

type PaymentProcessor struct {
	BaseModel
	VendorID          string  `db:"vendor_id" json:"vendor_id"`
	LocationID        *string `db:"location_id" json:"location_id"`
	Name              string  `db:"name" json:"name"`
	ProcessorType     string  `db:"processor_type" json:"processor_type"`
	Environment       string  `db:"environment" json:"environment"`
	DejavooTPN        *string `db:"dejavoo_tpn" json:"dejavoo_tpn"`
	DejavooAuthKey    *string `db:"dejavoo_authkey" json:"-"`
	DejavooRegisterID *string `db:"dejavoo_register_id" json:"dejavoo_register_id"`
	IsActive          bool    `db:"is_active" json:"is_active"`
	IsDefault         bool    `db:"is_default" json:"is_default"`
}

type PaymentTransaction struct {
	ID                  string          `db:"id" json:"id"`
	VendorID            string          `db:"vendor_id" json:"vendor_id"`
	ProcessorID         string          `db:"processor_id" json:"processor_id"`
	OrderID             *string         `db:"order_id" json:"order_id"`
	ParentTransactionID *string         `db:"parent_transaction_id" json:"parent_transaction_id"`
	TransactionType     string          `db:"transaction_type" json:"transaction_type"`
	ReferenceID         string          `db:"reference_id" json:"reference_id"`
	Amount              decimal.Decimal `db:"amount" json:"amount"`
	Currency            string          `db:"currency" json:"currency"`
	Status              string          `db:"status" json:"status"`
	AuthCode            *string         `db:"auth_code" json:"auth_code"`
	Message             string          `db:"message" json:"message"`
	RawResponse         JSON            `db:"raw_response" json:"raw_response"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
}
