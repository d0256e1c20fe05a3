// internal/domain/models/audit.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Audit change types.
const (
	ChangeTypeInsert = "INSERT"
	ChangeTypeUpdate = "UPDATE"
)

// MandateAudit records one change applied to a mandate. Many audits may
// reference the same MandateID.
type MandateAudit struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MandateID          string             `bson:"mandateId" json:"mandate_id"`
	ChangeType         string             `bson:"changeType,omitempty" json:"change_type,omitempty"`
	ChangeTimestamp    time.Time          `bson:"changeTimestamp" json:"change_timestamp"`
	SourceFile         string             `bson:"sourceFile,omitempty" json:"source_file,omitempty"`
	PreviousUpdateDate *time.Time         `bson:"previousUpdateDate,omitempty" json:"previous_update_date,omitempty"`
	NewUpdateDate      *time.Time         `bson:"newUpdateDate,omitempty" json:"new_update_date,omitempty"`
	FieldChanges       []FieldChange      `bson:"fieldChanges,omitempty" json:"field_changes,omitempty"`
	ProcessedBy        string             `bson:"processedBy,omitempty" json:"processed_by,omitempty"`
	BatchID            string             `bson:"batchId,omitempty" json:"batch_id,omitempty"`
}

// FieldChange is a single field difference captured in an audit record.
type FieldChange struct {
	FieldName string  `bson:"fieldName" json:"field_name"`
	OldValue  *string `bson:"oldValue" json:"old_value"`
	NewValue  *string `bson:"newValue" json:"new_value"`
}
