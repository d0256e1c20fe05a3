package indexes

import "github.com/dalemusser/mandateidx/internal/domain/models"

// Index names. Other tooling references these, so they must stay stable.
const (
	MandateLookupIndex    = "idx_mandate_lookup"
	AuditMandateIndex     = "idx_audit_mandateId"
	AuditTimestampIndex   = "idx_audit_timestamp"
	AuditMandateTimeIndex = "idx_audit_mandate_time"
	CreditorIDIndex       = "idx_creditor_id"
	DebtorIDIndex         = "idx_debtor_id"
)

// Core returns the mandate and audit indexes.
func Core() []Spec {
	return []Spec{
		{
			// batch lookups of the current lastUpdateDate per mandate
			Collection: models.MandatesCollection,
			Name:       MandateLookupIndex,
			Keys:       []Key{Asc(models.FieldMandateID), Asc(models.FieldLastUpdateDate)},
			Unique:     true,
		},
		{
			Collection: models.MandateAuditsCollection,
			Name:       AuditMandateIndex,
			Keys:       []Key{Asc(models.FieldMandateID)},
		},
		{
			Collection: models.MandateAuditsCollection,
			Name:       AuditTimestampIndex,
			Keys:       []Key{Desc(models.FieldChangeTimestamp)},
		},
		{
			Collection: models.MandateAuditsCollection,
			Name:       AuditMandateTimeIndex,
			Keys:       []Key{Asc(models.FieldMandateID), Desc(models.FieldChangeTimestamp)},
		},
	}
}

// Reference returns the unique indexes on the creditor and debtor reference
// collections.
func Reference() []Spec {
	return []Spec{
		{
			Collection: models.CreditorsCollection,
			Name:       CreditorIDIndex,
			Keys:       []Key{Asc(models.FieldCreditorID)},
			Unique:     true,
		},
		{
			Collection: models.DebtorsCollection,
			Name:       DebtorIDIndex,
			Keys:       []Key{Asc(models.FieldDebtorID)},
			Unique:     true,
		},
	}
}

// Catalog returns the core indexes, plus the reference indexes when asked.
func Catalog(withReference bool) []Spec {
	specs := Core()
	if withReference {
		specs = append(specs, Reference()...)
	}
	return specs
}

// Collections returns the distinct collections of specs in first-seen order.
func Collections(specs []Spec) []string {
	seen := make(map[string]bool, len(specs))
	var out []string
	for _, s := range specs {
		if !seen[s.Collection] {
			seen[s.Collection] = true
			out = append(out, s.Collection)
		}
	}
	return out
}
