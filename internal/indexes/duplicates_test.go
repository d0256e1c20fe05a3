package indexes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDuplicatePipeline(t *testing.T) {
	p := duplicatePipeline(Core()[0], 7)
	require.Len(t, p, 5)

	group := p[0][0]
	assert.Equal(t, "$group", group.Key)
	id := group.Value.(bson.D)[0]
	assert.Equal(t, bson.D{
		{Key: "mandateId", Value: "$mandateId"},
		{Key: "lastUpdateDate", Value: "$lastUpdateDate"},
	}, id.Value)

	assert.Equal(t, "$limit", p[3][0].Key)
	assert.Equal(t, int64(7), p[3][0].Value)
}

func TestDuplicateRowOrdersKey(t *testing.T) {
	ts := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	oid := primitive.NewObjectID()
	row := duplicateRow{
		ID:    bson.M{"lastUpdateDate": primitive.NewDateTimeFromTime(ts), "mandateId": "M1"},
		Count: 2,
		IDs:   []any{oid, "legacy-id"},
	}

	d := row.toDuplicate(Core()[0])
	require.Len(t, d.Key, 2)
	assert.Equal(t, "mandateId", d.Key[0].Field)
	assert.Equal(t, "lastUpdateDate", d.Key[1].Field)
	assert.Equal(t, []string{oid.Hex(), "legacy-id"}, d.IDs)
	assert.Equal(t, `mandateId="M1", lastUpdateDate=2024-03-01T09:30:00Z (2 docs)`, d.String())
}
