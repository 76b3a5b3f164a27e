package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/benvon/smart-tasks/internal/app"
	"github.com/benvon/smart-tasks/internal/config"
	"github.com/benvon/smart-tasks/internal/database"
	"github.com/benvon/smart-tasks/internal/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// env holds the connections opened for one command run
type env struct {
	cfg    *config.Config
	stores *app.Stores
	redis  *redis.Client
	log    *zap.Logger
}

// openEnv loads configuration and connects to storage, plus Redis when withRedis is set
func openEnv(ctx context.Context, withRedis bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewDevelopmentLogger(cfg.ServerDebugMode)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to storage: %w", err)
	}

	e := &env{cfg: cfg, stores: stores, log: log}
	if withRedis {
		e.redis, err = database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			e.close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
	}
	return e, nil
}

func (e *env) close() {
	if e.redis != nil {
		if err := e.redis.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close Redis: %v\n", err)
		}
	}
	if err := e.stores.Close(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close storage: %v\n", err)
	}
	_ = logger.Sync(e.log)
}

func parseIDFlag(name, value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, fmt.Errorf("--%s is required", name)
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return id, nil
}
