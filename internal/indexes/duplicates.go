package indexes

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// maxDuplicateIDs caps the document ids kept per duplicate group.
const maxDuplicateIDs = 5

// KeyValue is one field value of a duplicated key.
type KeyValue struct {
	Field string `json:"field" yaml:"field"`
	Value any    `json:"value" yaml:"value"`
}

// Duplicate is a group of documents sharing the key of a unique index.
type Duplicate struct {
	Key   []KeyValue `json:"key" yaml:"key"`
	Count int        `json:"count" yaml:"count"`
	IDs   []string   `json:"ids,omitempty" yaml:"ids,omitempty"`
}

func (d Duplicate) String() string {
	parts := make([]string, len(d.Key))
	for i, kv := range d.Key {
		parts[i] = kv.Field + "=" + formatValue(kv.Value)
	}
	return fmt.Sprintf("%s (%d docs)", strings.Join(parts, ", "), d.Count)
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339Nano)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case primitive.ObjectID:
		return t.Hex()
	case string:
		return fmt.Sprintf("%q", t)
	default:
		return fmt.Sprint(t)
	}
}

// groupKey is the field name used inside the $group _id; dots are not
// allowed there.
func groupKey(field string) string {
	return strings.ReplaceAll(field, ".", "_")
}

// duplicatePipeline groups a collection on the key fields of s and keeps the
// groups with more than one document, largest first.
func duplicatePipeline(s Spec, limit int) mongo.Pipeline {
	id := make(bson.D, 0, len(s.Keys))
	for _, k := range s.Keys {
		id = append(id, bson.E{Key: groupKey(k.Field), Value: "$" + k.Field})
	}
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: id},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "ids", Value: bson.D{{Key: "$push", Value: "$_id"}}},
		}}},
		{{Key: "$match", Value: bson.D{{Key: "count", Value: bson.D{{Key: "$gt", Value: 1}}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
		{{Key: "$limit", Value: int64(limit)}},
		{{Key: "$project", Value: bson.D{
			{Key: "count", Value: 1},
			{Key: "ids", Value: bson.D{{Key: "$slice", Value: bson.A{"$ids", maxDuplicateIDs}}}},
		}}},
	}
}

type duplicateRow struct {
	ID    bson.M `bson:"_id"`
	Count int    `bson:"count"`
	IDs   []any  `bson:"ids"`
}

// toDuplicate orders the grouped key back into Spec.Keys order.
func (r duplicateRow) toDuplicate(s Spec) Duplicate {
	d := Duplicate{Count: r.Count}
	for _, k := range s.Keys {
		d.Key = append(d.Key, KeyValue{Field: k.Field, Value: r.ID[groupKey(k.Field)]})
	}
	for _, id := range r.IDs {
		d.IDs = append(d.IDs, formatID(id))
	}
	return d
}

func formatID(v any) string {
	if oid, ok := v.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprint(v)
}
