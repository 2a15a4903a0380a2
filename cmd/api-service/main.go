package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/cuongbtq/orders-service/internal/api/handler"
	"github.com/cuongbtq/orders-service/internal/api/router"
	"github.com/cuongbtq/orders-service/internal/config"
	"github.com/cuongbtq/orders-service/internal/confirm"
	"github.com/cuongbtq/orders-service/internal/storage"
	"github.com/cuongbtq/orders-service/internal/storage/memory"
	"github.com/cuongbtq/orders-service/internal/storage/postgres"
	"github.com/cuongbtq/orders-service/shared/logger"
	"github.com/cuongbtq/orders-service/shared/postgresql"
	"github.com/cuongbtq/orders-service/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("confirm_mode", cfg.Confirm.Mode),
	)

	// Storage backend per configured driver.
	var store storage.Store
	var dbClient *postgresql.Client
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		dbClient, err = initPostgreSQL(&cfg.Database, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		store = postgres.New(dbClient, appLogger.Logger)
		appLogger.Info("Database connection established")
	case config.StorageDriverMemory:
		store = memory.New()
		appLogger.Warn("Using in-memory storage, records will not survive a restart")
	}

	confirmer := confirm.NewSimulatedConfirmer(cfg.Confirm.Delay)
	runner := confirm.NewRunner(store, confirmer, appLogger.Logger, cfg.Confirm.JobTimeout)

	// Dispatcher per configured mode.
	var dispatcher confirm.Dispatcher
	var rabbitClient *rabbitmq.Client
	switch cfg.Confirm.Mode {
	case config.ConfirmModeQueue:
		rabbitClient, err = initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		dispatcher = confirm.NewQueueDispatcher(rabbitClient, appLogger.Logger)
		appLogger.Info("RabbitMQ connection established")
	case config.ConfirmModeLocal:
		dispatcher = confirm.NewLocalDispatcher(runner, cfg.Confirm.PoolSize, appLogger.Logger)
	}

	r := initRouter(cfg.App.Environment, appLogger.Logger, store, dispatcher, dbClient)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("API service is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	shutdownErr := srv.Shutdown(ctx)

	// Let in-flight confirmations finish before closing the backends.
	if err := dispatcher.Close(); err != nil {
		appLogger.Error("Failed to close dispatcher",
			slog.Any("error", err),
		)
	}
	if rabbitClient != nil {
		rabbitClient.Close()
	}
	if dbClient != nil {
		dbClient.Close()
	}

	if shutdownErr != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", shutdownErr),
		)
		return shutdownErr
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, logger *slog.Logger, store storage.Store, dispatcher confirm.Dispatcher, dbClient *postgresql.Client) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	handlerDeps := &handler.Dependencies{
		Logger:     logger,
		Store:      store,
		Dispatcher: dispatcher,
	}
	if dbClient != nil {
		handlerDeps.Health = dbClient.HealthCheck
	}

	return router.SetupRouter(handlerDeps)
}
