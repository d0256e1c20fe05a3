//go:build integration

package indexes_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dalemusser/mandateidx/internal/domain/models"
	"github.com/dalemusser/mandateidx/internal/indexes"
	"github.com/dalemusser/mandateidx/internal/testutil/containers"
	"github.com/dalemusser/mandateidx/toolkit/db/mongodb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestAgainstMongo(t *testing.T) {
	mc := containers.NewMongoContainer(t)
	ctx := context.Background()
	when := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	t.Run("ensure twice leaves exactly the managed indexes", func(t *testing.T) {
		db := mc.Database(t, "idempotent")
		p := indexes.New(indexes.NewMongoStore(db))

		first, err := p.Ensure(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, first.Count(indexes.StatusCreated))

		second, err := p.Ensure(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, second.Count(indexes.StatusPresent))
		assert.Zero(t, second.Count(indexes.StatusCreated))

		names := map[string][]string{}
		for _, coll := range []string{models.MandatesCollection, models.MandateAuditsCollection} {
			specs, err := db.Collection(coll).Indexes().ListSpecifications(ctx)
			require.NoError(t, err)
			for _, s := range specs {
				names[coll] = append(names[coll], s.Name)
			}
		}
		assert.ElementsMatch(t, []string{"_id_", indexes.MandateLookupIndex}, names[models.MandatesCollection])
		assert.ElementsMatch(t, []string{"_id_", indexes.AuditMandateIndex, indexes.AuditTimestampIndex, indexes.AuditMandateTimeIndex},
			names[models.MandateAuditsCollection])

		_, err = p.Verify(ctx)
		require.NoError(t, err)
	})

	t.Run("unique lookup rejects a second version with the same date", func(t *testing.T) {
		db := mc.Database(t, "unique")
		_, err := indexes.New(indexes.NewMongoStore(db)).Ensure(ctx)
		require.NoError(t, err)

		mandates := db.Collection(models.MandatesCollection)
		doc := bson.D{{Key: "mandateId", Value: "M1"}, {Key: "lastUpdateDate", Value: when}}
		_, err = mandates.InsertOne(ctx, doc)
		require.NoError(t, err)
		_, err = mandates.InsertOne(ctx, doc)
		require.Error(t, err)
		assert.True(t, mongodb.IsDup(err))

		_, err = mandates.InsertOne(ctx, bson.D{{Key: "mandateId", Value: "M1"}, {Key: "lastUpdateDate", Value: when.Add(time.Hour)}})
		assert.NoError(t, err)

		audits := db.Collection(models.MandateAuditsCollection)
		for i := 0; i < 2; i++ {
			_, err := audits.InsertOne(ctx, bson.D{
				{Key: "mandateId", Value: "M1"},
				{Key: "changeTimestamp", Value: when},
				{Key: "changeType", Value: models.ChangeTypeUpdate},
			})
			assert.NoError(t, err)
		}
	})

	t.Run("audit trail query uses the compound index", func(t *testing.T) {
		db := mc.Database(t, "plans")
		p := indexes.New(indexes.NewMongoStore(db))
		_, err := p.Ensure(ctx)
		require.NoError(t, err)

		var docs []any
		for i := 0; i < 20; i++ {
			docs = append(docs, bson.D{
				{Key: "mandateId", Value: fmt.Sprintf("M%d", i%4)},
				{Key: "changeTimestamp", Value: when.Add(time.Duration(i) * time.Minute)},
			})
		}
		_, err = db.Collection(models.MandateAuditsCollection).InsertMany(ctx, docs)
		require.NoError(t, err)

		checks, err := p.CheckPlans(ctx, indexes.Shapes("M1", when)[:1])
		require.NoError(t, err)
		require.Len(t, checks, 1)
		assert.True(t, checks[0].OK, "used %v", checks[0].Used)
	})

	t.Run("existing index with the same name and other keys is a conflict", func(t *testing.T) {
		db := mc.Database(t, "conflict")
		_, err := db.Collection(models.MandateAuditsCollection).Indexes().CreateOne(ctx, indexModel(
			bson.D{{Key: "batchId", Value: 1}}, indexes.AuditMandateIndex))
		require.NoError(t, err)

		rep, err := indexes.New(indexes.NewMongoStore(db)).Ensure(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, indexes.ErrNameConflict)
		assert.Equal(t, 3, rep.Count(indexes.StatusCreated))
		assert.Equal(t, 1, rep.Count(indexes.StatusConflict))
	})

	t.Run("ttl on an audit index is a conflict", func(t *testing.T) {
		db := mc.Database(t, "ttl")
		_, err := db.Collection(models.MandateAuditsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "changeTimestamp", Value: -1}},
			Options: options.Index().SetName(indexes.AuditTimestampIndex).SetExpireAfterSeconds(3600),
		})
		require.NoError(t, err)

		rep, err := indexes.New(indexes.NewMongoStore(db)).Ensure(ctx)
		assert.ErrorIs(t, err, indexes.ErrNameConflict)
		assert.Contains(t, err.Error(), "expireAfterSeconds: 3600")
		assert.Equal(t, 1, rep.Count(indexes.StatusConflict))
	})

	t.Run("duplicates already stored block the unique index", func(t *testing.T) {
		db := mc.Database(t, "violation")
		mandates := db.Collection(models.MandatesCollection)
		for i := 0; i < 2; i++ {
			_, err := mandates.InsertOne(ctx, bson.D{
				{Key: "_id", Value: primitive.NewObjectID()},
				{Key: "mandateId", Value: "M7"},
				{Key: "lastUpdateDate", Value: when},
			})
			require.NoError(t, err)
		}

		p := indexes.New(indexes.NewMongoStore(db))
		_, err := p.Ensure(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, indexes.ErrConstraintViolation)

		dups, err := p.Duplicates(ctx, 10)
		require.NoError(t, err)
		require.Len(t, dups[indexes.MandateLookupIndex], 1)
		assert.Equal(t, 2, dups[indexes.MandateLookupIndex][0].Count)
	})
}

func indexModel(keys bson.D, name string) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
}
