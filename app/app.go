// app/app.go
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/mandateidx/config"
	"github.com/dalemusser/mandateidx/logging"
	"go.uber.org/zap"
)

// ErrConfig marks failures to load or validate configuration.
var ErrConfig = errors.New("config")

// Hooks defines the integration points of a one-shot database task.
type Hooks[D any] struct {
	// Name is used only for logging/diagnostics.
	Name string

	// LoadConfig returns the validated config. It typically calls
	// config.Load with the command's parsed flag set.
	LoadConfig func(logger *zap.Logger) (*config.Config, error)

	// BuildLogger builds the final logger. Defaults to logging.BuildLogger.
	BuildLogger func(cfg *config.Config) (*zap.Logger, error)

	// ConnectDB connects to the database. It should respect
	// cfg.DBConnectTimeout for its own timeouts.
	ConnectDB func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (D, error)

	// Task does the work. Its context is bounded by cfg.IndexBootTimeout.
	Task func(ctx context.Context, cfg *config.Config, db D, logger *zap.Logger) error

	// Close releases what ConnectDB opened. May be nil.
	Close func(ctx context.Context, db D) error
}

// Run executes the standard startup sequence:
//
//  1. Bootstrap logger
//  2. Load config (Hooks.LoadConfig)
//  3. Build final logger based on config
//  4. Connect DB (Hooks.ConnectDB)
//  5. Run the task under the index boot timeout (Hooks.Task)
//  6. Close the DB (Hooks.Close)
//
// Unlike a long-running service it never exits the process; the caller maps
// the returned error to an exit code.
func Run[D any](ctx context.Context, hooks Hooks[D]) error {
	// 1) Bootstrap logger for early startup
	bootstrap := logging.BootstrapLogger()
	defer bootstrap.Sync()
	bootstrap.Debug("bootstrap logger initialized", zap.String("app", hooks.Name))

	// 2) Load config
	cfg, err := hooks.LoadConfig(bootstrap)
	if err != nil {
		bootstrap.Error("config load failed", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	// 3) Build final logger
	build := hooks.BuildLogger
	if build == nil {
		build = func(c *config.Config) (*zap.Logger, error) { return logging.BuildLogger(c.LogLevel, c.Env) }
	}
	logger, err := build(cfg)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()
	logger.Debug("config loaded", zap.String("app", hooks.Name), zap.String("config", cfg.Dump()))

	// 4) Connect DB
	db, err := hooks.ConnectDB(ctx, cfg, logger)
	if err != nil {
		logger.Error("DB connect failed", zap.Error(err))
		return err
	}
	if hooks.Close != nil {
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), cfg.DBConnectTimeout)
			defer cancel()
			if err := hooks.Close(closeCtx, db); err != nil {
				logger.Warn("DB close failed", zap.Error(err))
			}
		}()
	}

	// 5) Task
	taskCtx, cancel := context.WithTimeout(ctx, cfg.IndexBootTimeout)
	defer cancel()
	if err := hooks.Task(taskCtx, cfg, db, logger); err != nil {
		logger.Error(hooks.Name+" failed", zap.Error(err))
		return err
	}
	return nil
}
