package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/mandateidx/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{Env: "dev", LogLevel: "info", DBConnectTimeout: time.Second, IndexBootTimeout: time.Minute}
}

func nopLogger(*config.Config) (*zap.Logger, error) { return zap.NewNop(), nil }

func TestRunSequence(t *testing.T) {
	var steps []string
	err := Run(context.Background(), Hooks[string]{
		Name:        "test",
		LoadConfig:  func(*zap.Logger) (*config.Config, error) { steps = append(steps, "config"); return testConfig(), nil },
		BuildLogger: nopLogger,
		ConnectDB: func(context.Context, *config.Config, *zap.Logger) (string, error) {
			steps = append(steps, "connect")
			return "db", nil
		},
		Task: func(ctx context.Context, _ *config.Config, db string, _ *zap.Logger) error {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			assert.Equal(t, "db", db)
			steps = append(steps, "task")
			return nil
		},
		Close: func(context.Context, string) error { steps = append(steps, "close"); return nil },
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"config", "connect", "task", "close"}, steps)
}

func TestRunConfigError(t *testing.T) {
	err := Run(context.Background(), Hooks[int]{
		LoadConfig: func(*zap.Logger) (*config.Config, error) { return nil, errors.New("bad port") },
	})
	assert.ErrorIs(t, err, ErrConfig)
}

func TestRunTaskErrorStillCloses(t *testing.T) {
	boom := errors.New("boom")
	closed := false
	err := Run(context.Background(), Hooks[int]{
		LoadConfig:  func(*zap.Logger) (*config.Config, error) { return testConfig(), nil },
		BuildLogger: nopLogger,
		ConnectDB:   func(context.Context, *config.Config, *zap.Logger) (int, error) { return 1, nil },
		Task:        func(context.Context, *config.Config, int, *zap.Logger) error { return boom },
		Close:       func(context.Context, int) error { closed = true; return nil },
	})
	assert.ErrorIs(t, err, boom)
	assert.True(t, closed)
}
