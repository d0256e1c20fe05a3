//go:build integration

package containers

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/mandateidx/toolkit/db/mongodb"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoContainer wraps a testcontainers MongoDB instance.
type MongoContainer struct {
	Container *tcmongo.MongoDBContainer
	URI       string
	Client    *mongo.Client
}

// NewMongoContainer starts a MongoDB container and connects to it.
// The container and client are released when the test finishes.
func NewMongoContainer(t *testing.T) *MongoContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcmongo.Run(ctx, "mongo:7")
	if err != nil {
		t.Fatalf("failed to start mongo container: %v", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get mongo connection string: %v", err)
	}

	pool := mongodb.DefaultPoolConfig()
	pool.ConnectTimeout = 30 * time.Second
	pool.AppName = "mandateidx-test"
	client, err := mongodb.Connect(ctx, uri, pool)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to mongo: %v", err)
	}

	t.Cleanup(func() {
		_ = client.Disconnect(context.Background())
		_ = container.Terminate(context.Background())
	})

	return &MongoContainer{Container: container, URI: uri, Client: client}
}

// Database returns a fresh database for one test.
// Dropped on cleanup.
func (m *MongoContainer) Database(t *testing.T, name string) *mongo.Database {
	t.Helper()
	db := m.Client.Database(name)
	t.Cleanup(func() { _ = db.Drop(context.Background()) })
	return db
}
