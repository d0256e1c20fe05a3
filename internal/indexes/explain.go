package indexes

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dalemusser/mandateidx/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// QueryShape is a read pattern the indexes exist to serve, with the index
// the query planner is expected to pick for it.
type QueryShape struct {
	Name       string
	Collection string
	Filter     bson.D
	Sort       bson.D
	Projection bson.D
	Expected   string
}

func (q QueryShape) explainCommand() bson.D {
	find := bson.D{
		{Key: "find", Value: q.Collection},
		{Key: "filter", Value: q.Filter},
	}
	if len(q.Sort) > 0 {
		find = append(find, bson.E{Key: "sort", Value: q.Sort})
	}
	if len(q.Projection) > 0 {
		find = append(find, bson.E{Key: "projection", Value: q.Projection})
	}
	return bson.D{
		{Key: "explain", Value: find},
		{Key: "verbosity", Value: "queryPlanner"},
	}
}

// Shapes returns the documented access paths, parameterised with sample
// values so the planner has a concrete query to plan.
func Shapes(mandateID string, since time.Time) []QueryShape {
	return []QueryShape{
		{
			Name:       "audit-trail",
			Collection: models.MandateAuditsCollection,
			Filter:     bson.D{{Key: models.FieldMandateID, Value: mandateID}},
			Sort:       bson.D{{Key: models.FieldChangeTimestamp, Value: -1}},
			Expected:   AuditMandateTimeIndex,
		},
		{
			Name:       "recent-audits",
			Collection: models.MandateAuditsCollection,
			Filter:     bson.D{{Key: models.FieldChangeTimestamp, Value: bson.D{{Key: "$gte", Value: since}}}},
			Sort:       bson.D{{Key: models.FieldChangeTimestamp, Value: -1}},
			Expected:   AuditTimestampIndex,
		},
		{
			Name:       "mandate-lookup",
			Collection: models.MandatesCollection,
			Filter:     bson.D{{Key: models.FieldMandateID, Value: bson.D{{Key: "$in", Value: bson.A{mandateID}}}}},
			Projection: bson.D{
				{Key: models.FieldMandateID, Value: 1},
				{Key: models.FieldLastUpdateDate, Value: 1},
				{Key: "_id", Value: 0},
			},
			Expected: MandateLookupIndex,
		},
	}
}

// PlanCheck is the result of explaining one query shape.
type PlanCheck struct {
	Shape      string   `json:"shape" yaml:"shape"`
	Collection string   `json:"collection" yaml:"collection"`
	Expected   string   `json:"expected" yaml:"expected"`
	Used       []string `json:"used" yaml:"used"`
	OK         bool     `json:"ok" yaml:"ok"`
}

// Explain asks the planner how shape would run and checks that the winning
// plan scans the expected index.
func Explain(ctx context.Context, store Store, shape QueryShape) (PlanCheck, error) {
	check := PlanCheck{Shape: shape.Name, Collection: shape.Collection, Expected: shape.Expected}
	raw, err := store.Explain(ctx, shape)
	if err != nil {
		return check, fmt.Errorf("explain %s: %w", shape.Name, err)
	}
	used, err := winningIndexes(raw)
	if err != nil {
		return check, fmt.Errorf("explain %s: %w", shape.Name, err)
	}
	check.Used = used
	check.OK = slices.Contains(used, shape.Expected)
	return check, nil
}

// winningIndexes returns the index names scanned by the winning plan of an
// explain response. Classic and slot-based plan layouts are both handled by
// walking the whole winningPlan subtree.
func winningIndexes(resp bson.Raw) ([]string, error) {
	qp, err := resp.LookupErr("queryPlanner", "winningPlan")
	if err != nil {
		return nil, fmt.Errorf("no queryPlanner.winningPlan in explain output")
	}
	var out []string
	collectIndexNames(qp, &out)
	return out, nil
}

func collectIndexNames(v bson.RawValue, out *[]string) {
	switch v.Type {
	case bsontype.EmbeddedDocument:
		elems, err := v.Document().Elements()
		if err != nil {
			return
		}
		for _, e := range elems {
			if e.Key() == "indexName" && e.Value().Type == bsontype.String {
				name := e.Value().StringValue()
				if !slices.Contains(*out, name) {
					*out = append(*out, name)
				}
				continue
			}
			collectIndexNames(e.Value(), out)
		}
	case bsontype.Array:
		vals, err := v.Array().Values()
		if err != nil {
			return
		}
		for _, av := range vals {
			collectIndexNames(av, out)
		}
	}
}
