package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/smart-tasks/api/openapi"
	"github.com/benvon/smart-tasks/internal/app"
	"github.com/benvon/smart-tasks/internal/config"
	"github.com/benvon/smart-tasks/internal/database"
	"github.com/benvon/smart-tasks/internal/handlers"
	"github.com/benvon/smart-tasks/internal/logger"
	"github.com/benvon/smart-tasks/internal/middleware"
	"github.com/benvon/smart-tasks/internal/reminders"
	"github.com/benvon/smart-tasks/internal/services/identity"
	"github.com/benvon/smart-tasks/internal/services/projects"
	"github.com/benvon/smart-tasks/internal/services/tasks"
	"github.com/benvon/smart-tasks/internal/telemetry"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	migrateFlag := flag.Bool("migrate", true, "Apply pending migrations on startup")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.New(debugMode, cfg.DevelopmentLogging())
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("storage_driver", cfg.StorageDriver),
		zap.String("reminder_timezone", cfg.ReminderTimezone),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTELEnabled, telemetry.ServiceAPI, handlers.Version, cfg.OTELEndpoint, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_initialize_tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			zapLogger.Error("failed_to_shutdown_tracing", zap.Error(err))
		}
	}()

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_storage", zap.Error(err))
	}
	defer func() {
		if err := stores.Close(context.Background()); err != nil {
			zapLogger.Warn("failed_to_close_storage", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_storage", zap.String("driver", stores.Driver))

	if *migrateFlag {
		applied, err := stores.Migrate(ctx)
		if err != nil {
			zapLogger.Fatal("failed_to_migrate", zap.Error(err))
		}
		zapLogger.Info("migrations_applied", zap.Strings("applied", applied))
	}

	rdb, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	jobQueue, err := app.ConnectQueue(ctx, cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	var mailer identity.Mailer = identity.NewLogMailer(zapLogger)
	if cfg.SMTPHost != "" {
		mailer = identity.NewSMTPMailer(identity.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		zapLogger.Warn("smtp_not_configured", zap.String("mailer", "log"))
	}

	tokens := identity.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	identityService := identity.NewService(stores.Users, identity.NewRedisCodeStore(rdb), mailer, tokens, jobQueue, identity.Config{}, zapLogger)
	taskService := tasks.NewService(stores.Tasks, stores.Projects, cfg.ReminderLocation, zapLogger)
	projectService := projects.NewService(stores.Projects, stores.Tasks, zapLogger)

	healthChecker := handlers.NewHealthChecker(map[string]handlers.CheckFunc{
		"database": stores.Ping,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		"queue":    jobQueue.HealthCheck,
	})

	limiterStore, err := middleware.NewRedisLimiterStore(rdb)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limit_store", zap.Error(err))
	}
	authRateLimit, err := middleware.RateLimit(limiterStore, cfg.AuthRateLimit, zapLogger)
	if err != nil {
		zapLogger.Fatal("invalid_auth_rate_limit", zap.String("rate", cfg.AuthRateLimit), zap.Error(err))
	}
	requireUser := middleware.Auth(identityService, zapLogger)

	r := mux.NewRouter()

	// Registered first runs outermost
	if cfg.OTELEnabled {
		r.Use(telemetry.RouterMiddleware(telemetry.ServiceAPI))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS(middleware.ParseOrigins(cfg.FrontendURL), zapLogger))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	healthChecker.RegisterRoutes(r)
	handlers.NewOpenAPIHandler(openapi.Document).RegisterRoutes(r)

	api := r.PathPrefix("/api").Subrouter()

	authRouter := api.PathPrefix("/auth").Subrouter()
	authRouter.Use(authRateLimit)
	handlers.NewAuthHandler(identityService, zapLogger).RegisterRoutes(authRouter)

	protected := []struct {
		prefix   string
		register func(*mux.Router)
	}{
		{"/tasks", handlers.NewTaskHandler(taskService, zapLogger).RegisterRoutes},
		{"/projects", handlers.NewProjectHandler(projectService, zapLogger).RegisterRoutes},
		{"/users", handlers.NewUserHandler(identityService, zapLogger).RegisterRoutes},
		{"/notifications", handlers.NewNotificationHandler(reminders.NewRedisFeed(rdb), zapLogger).RegisterRoutes},
	}
	for _, p := range protected {
		sub := api.PathPrefix(p.prefix).Subrouter()
		sub.Use(requireUser)
		p.register(sub)
	}

	// Preflight requests have no matching route; CORS answers them before this runs
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      middleware.DefaultRequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}
