// internal/domain/models/fields.go
package models

// Collection names in the mandate database.
const (
	MandatesCollection      = "mandates"
	MandateAuditsCollection = "mandate_audits"
	CreditorsCollection     = "creditors"
	DebtorsCollection       = "debtors"
)

// BSON field names referenced by indexes and queries. They must match the
// struct tags below.
const (
	FieldMandateID       = "mandateId"
	FieldLastUpdateDate  = "lastUpdateDate"
	FieldChangeTimestamp = "changeTimestamp"
	FieldCreditorID      = "creditorId"
	FieldDebtorID        = "debtorId"
)
