// internal/domain/models/party.go
package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Creditor is reference data for the party collecting payments.
type Creditor struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreditorID    string             `bson:"creditorId" json:"creditor_id"`
	CreditorName  string             `bson:"creditorName" json:"creditor_name"`
	AccountNumber string             `bson:"accountNumber" json:"account_number"`
	SortCode      string             `bson:"sortCode" json:"sort_code"`
	IBAN          string             `bson:"iban,omitempty" json:"iban,omitempty"`
	BIC           string             `bson:"bic,omitempty" json:"bic,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updated_at"`
}

// Debtor is reference data for the paying party.
type Debtor struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DebtorID      string             `bson:"debtorId" json:"debtor_id"`
	Name          string             `bson:"name" json:"name"`
	AccountNumber string             `bson:"accountNumber" json:"account_number"`
	SortCode      string             `bson:"sortCode" json:"sort_code"`
	IBAN          string             `bson:"iban,omitempty" json:"iban,omitempty"`
	BIC           string             `bson:"bic,omitempty" json:"bic,omitempty"`
	Email         string             `bson:"email,omitempty" json:"email,omitempty"`
	Phone         string             `bson:"phone,omitempty" json:"phone,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updated_at"`
}

// DebtorIDFor derives the debtor business id from bank account details,
// e.g. sort code "12-34-56" and account "87654321" give "DBT-123456-87654321".
func DebtorIDFor(sortCode, accountNumber string) string {
	return "DBT-" + strings.ReplaceAll(sortCode, "-", "") + "-" + accountNumber
}
