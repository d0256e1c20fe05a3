// internal/domain/models/mandate.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Mandate types.
const (
	MandateTypeRecurring = "RECURRING"
	MandateTypeOneOff    = "ONE_OFF"
)

// Mandate statuses.
const (
	MandateStatusActive    = "ACTIVE"
	MandateStatusSuspended = "SUSPENDED"
	MandateStatusCancelled = "CANCELLED"
	MandateStatusPending   = "PENDING"
)

// Mandate is a direct-debit mandate document in the mandates collection.
//
// A mandate is identified by MandateID. The pair (MandateID, LastUpdateDate)
// is unique; an update to a mandate always moves LastUpdateDate forward.
type Mandate struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MandateID      string             `bson:"mandateId" json:"mandate_id"`
	LastUpdateDate time.Time          `bson:"lastUpdateDate" json:"last_update_date"`

	// Creditor
	CreditorID            string `bson:"creditorId,omitempty" json:"creditor_id,omitempty"`
	CreditorName          string `bson:"creditorName,omitempty" json:"creditor_name,omitempty"`
	CreditorAccountNumber string `bson:"creditorAccountNumber,omitempty" json:"creditor_account_number,omitempty"`
	CreditorSortCode      string `bson:"creditorSortCode,omitempty" json:"creditor_sort_code,omitempty"`
	CreditorIBAN          string `bson:"creditorIban,omitempty" json:"creditor_iban,omitempty"`
	CreditorBIC           string `bson:"creditorBic,omitempty" json:"creditor_bic,omitempty"`

	// Debtor
	DebtorName          string `bson:"debtorName,omitempty" json:"debtor_name,omitempty"`
	DebtorAccountNumber string `bson:"debtorAccountNumber,omitempty" json:"debtor_account_number,omitempty"`
	DebtorSortCode      string `bson:"debtorSortCode,omitempty" json:"debtor_sort_code,omitempty"`
	DebtorIBAN          string `bson:"debtorIban,omitempty" json:"debtor_iban,omitempty"`
	DebtorBIC           string `bson:"debtorBic,omitempty" json:"debtor_bic,omitempty"`
	DebtorEmail         string `bson:"debtorEmail,omitempty" json:"debtor_email,omitempty"`
	DebtorPhone         string `bson:"debtorPhone,omitempty" json:"debtor_phone,omitempty"`

	MandateReference string     `bson:"mandateReference,omitempty" json:"mandate_reference,omitempty"`
	MandateType      string     `bson:"mandateType,omitempty" json:"mandate_type,omitempty"`
	Frequency        string     `bson:"frequency,omitempty" json:"frequency,omitempty"` // WEEKLY, MONTHLY, QUARTERLY, ANNUALLY
	Status           string     `bson:"status,omitempty" json:"status,omitempty"`
	SignatureDate    *time.Time `bson:"signatureDate,omitempty" json:"signature_date,omitempty"`
	EffectiveDate    *time.Time `bson:"effectiveDate,omitempty" json:"effective_date,omitempty"`
	ExpiryDate       *time.Time `bson:"expiryDate,omitempty" json:"expiry_date,omitempty"`

	// Limits
	MaxAmountPerTransaction *primitive.Decimal128 `bson:"maxAmountPerTransaction,omitempty" json:"max_amount_per_transaction,omitempty"`
	MaxAmountPerMonth       *primitive.Decimal128 `bson:"maxAmountPerMonth,omitempty" json:"max_amount_per_month,omitempty"`
	MaxTransactionsPerMonth *int                  `bson:"maxTransactionsPerMonth,omitempty" json:"max_transactions_per_month,omitempty"`

	Currency    string `bson:"currency,omitempty" json:"currency,omitempty"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
	SchemeType  string `bson:"schemeType,omitempty" json:"scheme_type,omitempty"` // BACS, SEPA_CORE, SEPA_B2B

	CreatedAt time.Time `bson:"createdAt,omitempty" json:"created_at,omitempty"`
	Version   int       `bson:"version,omitempty" json:"version,omitempty"`
}
