package indexes

import (
	"context"
	"fmt"

	"github.com/dalemusser/mandateidx/toolkit/db/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Store is the database surface the provisioner needs.
type Store interface {
	// Ping checks the database is reachable and the credentials work.
	Ping(ctx context.Context) error

	// ListIndexes returns the indexes on collection. A missing collection
	// has no indexes.
	ListIndexes(ctx context.Context, collection string) ([]IndexInfo, error)

	// CreateIndex creates s and returns the name the server reports.
	CreateIndex(ctx context.Context, s Spec) (string, error)

	// FindDuplicates returns up to limit groups of documents sharing the key of s.
	FindDuplicates(ctx context.Context, s Spec, limit int) ([]Duplicate, error)

	// Explain returns the raw queryPlanner explain output for shape.
	Explain(ctx context.Context, shape QueryShape) (bson.Raw, error)
}

// MongoStore implements Store on a database handle.
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore wraps db, which must already be scoped to the target database.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

func (s *MongoStore) ListIndexes(ctx context.Context, collection string) ([]IndexInfo, error) {
	cur, err := s.db.Collection(collection).Indexes().List(ctx)
	if err != nil {
		if mongodb.IsNamespaceNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []bson.Raw
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]IndexInfo, 0, len(docs))
	for _, d := range docs {
		info, err := infoFromDocument(collection, d)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

func (s *MongoStore) CreateIndex(ctx context.Context, spec Spec) (string, error) {
	return s.db.Collection(spec.Collection).Indexes().CreateOne(ctx, spec.Model())
}

func (s *MongoStore) FindDuplicates(ctx context.Context, spec Spec, limit int) ([]Duplicate, error) {
	if limit <= 0 {
		return nil, nil
	}
	cur, err := s.db.Collection(spec.Collection).Aggregate(ctx, duplicatePipeline(spec, limit),
		options.Aggregate().SetAllowDiskUse(true))
	if err != nil {
		return nil, fmt.Errorf("aggregate duplicates: %w", err)
	}
	defer cur.Close(ctx)

	var rows []duplicateRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode duplicates: %w", err)
	}
	out := make([]Duplicate, len(rows))
	for i, r := range rows {
		out[i] = r.toDuplicate(spec)
	}
	return out, nil
}

func (s *MongoStore) Explain(ctx context.Context, shape QueryShape) (bson.Raw, error) {
	return s.db.RunCommand(ctx, shape.explainCommand()).Raw()
}
