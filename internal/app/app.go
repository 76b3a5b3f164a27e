// Package app wires configuration into the stores, queue and reminder engine
// shared by the server, worker and tasksctl binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/smart-tasks/internal/config"
	"github.com/benvon/smart-tasks/internal/database"
	"github.com/benvon/smart-tasks/internal/mongostore"
	"github.com/benvon/smart-tasks/internal/push"
	"github.com/benvon/smart-tasks/internal/queue"
	"github.com/benvon/smart-tasks/internal/reminders"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// RabbitMQ connection retry policy
const (
	queueConnectAttempts = 10
	queueInitialDelay    = 2 * time.Second
	queueMaxDelay        = 30 * time.Second
)

// Stores bundles the repositories of the configured storage driver
type Stores struct {
	Driver   string
	Tasks    database.TaskStore
	Projects database.ProjectStore
	Users    database.UserStore

	db      *database.DB
	mongo   *mongo.Client
	mongoDB *mongo.Database
}

// OpenStores connects to Postgres or MongoDB according to cfg.StorageDriver
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMongo:
		client, err := mongostore.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.MongoDatabase)
		return &Stores{
			Driver:   cfg.StorageDriver,
			Tasks:    mongostore.NewTaskStore(db),
			Projects: mongostore.NewProjectStore(db),
			Users:    mongostore.NewUserStore(db),
			mongo:    client,
			mongoDB:  db,
		}, nil
	case config.StorageDriverPostgres:
		db, err := database.New(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &Stores{
			Driver:   cfg.StorageDriver,
			Tasks:    database.NewTaskRepository(db),
			Projects: database.NewProjectRepository(db),
			Users:    database.NewUserRepository(db),
			db:       db,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

// Migrate applies pending SQL migrations, or creates the MongoDB indexes.
// It returns the names of the applied steps.
func (s *Stores) Migrate(ctx context.Context) ([]string, error) {
	if s.mongoDB != nil {
		if err := mongostore.EnsureIndexes(ctx, s.mongoDB); err != nil {
			return nil, err
		}
		return []string{"indexes"}, nil
	}
	return s.db.Migrate(ctx)
}

// Ping checks the storage backend
func (s *Stores) Ping(ctx context.Context) error {
	if s.mongo != nil {
		return s.mongo.Ping(ctx, nil)
	}
	return s.db.PingContext(ctx)
}

// Close releases the storage connections
func (s *Stores) Close(ctx context.Context) error {
	if s.mongo != nil {
		return s.mongo.Disconnect(ctx)
	}
	return s.db.Close()
}

// ConnectQueue connects to RabbitMQ, retrying with exponential backoff while the broker starts
func ConnectQueue(ctx context.Context, amqpURL string, log *zap.Logger) (*queue.RabbitMQQueue, error) {
	var lastErr error
	for attempt := 0; attempt < queueConnectAttempts; attempt++ {
		q, err := queue.NewRabbitMQQueue(amqpURL, log)
		if err == nil {
			log.Info("connected_to_rabbitmq")
			return q, nil
		}
		lastErr = err

		delay := queueInitialDelay * time.Duration(1<<uint(attempt))
		if delay > queueMaxDelay {
			delay = queueMaxDelay
		}
		log.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", queueConnectAttempts),
			zap.Duration("retry_delay", delay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", queueConnectAttempts, lastErr)
}

// NewDispatcher returns the OneSignal dispatcher when credentials are configured,
// otherwise a dispatcher that only logs.
func NewDispatcher(cfg *config.Config, log *zap.Logger) reminders.Dispatcher {
	if !cfg.PushEnabled() {
		log.Warn("push_not_configured", zap.String("dispatcher", "log"))
		return reminders.NewLogDispatcher(log)
	}
	return push.NewOneSignalDispatcher(cfg.OneSignalAppID, cfg.OneSignalAPIKey, cfg.OneSignalAPIURL, log)
}

// NewEngine builds the reminder engine on the Redis ledger and feed
func NewEngine(cfg *config.Config, stores *Stores, rdb *redis.Client, dispatcher reminders.Dispatcher, log *zap.Logger) *reminders.Engine {
	return reminders.NewEngine(
		stores.Tasks,
		reminders.NewRedisLedger(rdb),
		reminders.NewRedisFeed(rdb),
		dispatcher,
		log,
		reminders.WithWindow(cfg.ReminderWindow),
		reminders.WithLocation(cfg.ReminderLocation),
	)
}
