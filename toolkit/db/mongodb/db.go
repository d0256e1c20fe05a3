// toolkit/db/mongodb/db.go
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const mongoConnectTimeout = 10 * time.Second

// PoolConfig holds connection pool settings for MongoDB.
// A provisioning run issues a handful of commands, so the defaults are small.
type PoolConfig struct {
	// MaxPoolSize is the maximum number of connections in the pool.
	MaxPoolSize uint64

	// ConnectTimeout bounds connect + ping. Default: 10 seconds.
	ConnectTimeout time.Duration

	// ServerSelectionTimeout fails fast when no server is reachable.
	// Default: ConnectTimeout.
	ServerSelectionTimeout time.Duration

	// AppName is reported to the server and shows up in its logs.
	AppName string
}

// DefaultPoolConfig returns pool settings for short-lived admin tools.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxPoolSize:    8,
		ConnectTimeout: mongoConnectTimeout,
	}
}

// Connect opens a Mongo connection with a bounded timeout derived from the
// provided parent context and pings the primary before returning.
// The returned client must be disconnected by the caller.
func Connect(ctx context.Context, uri string, pool PoolConfig) (*mongo.Client, error) {
	connectTimeout := pool.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = mongoConnectTimeout
	}
	selection := pool.ServerSelectionTimeout
	if selection <= 0 {
		selection = connectTimeout
	}

	// Derive a timeout from the parent context so connection attempts
	// do not hang indefinitely.
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(connectTimeout).
		SetServerSelectionTimeout(selection)
	if pool.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(pool.MaxPoolSize)
	}
	if pool.AppName != "" {
		clientOpts.SetAppName(pool.AppName)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	return client, nil
}
