// Package cli wires configuration, logging, storage and event publishing for
// the budget subcommands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"budget/internal/amqp"
	"budget/internal/config"
	"budget/internal/events"
	"budget/internal/kafka"
	"budget/internal/log"
	"budget/internal/storage"
)

// ShutdownTimeout bounds graceful shutdown of the HTTP server.
const ShutdownTimeout = 30 * time.Second

// SetupLogger builds the application logger from the configured level and
// format and installs it as the slog default.
func SetupLogger(cfg *config.Config, out io.Writer) *log.Logger {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.DefaultConfig().Level
	}
	logger := log.New(log.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    out,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig reads the environment (after .env) and applies the
// given validation, Validate when nil.
func LoadAndValidateConfig(validate func(*config.Config) error) (*config.Config, error) {
	LoadEnvFile()
	cfg := config.Load()
	if validate == nil {
		validate = (*config.Config).Validate
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bootstrap loads config and logging for a subcommand. Errors are printed to
// stderr since no logger exists yet.
func bootstrap(validate func(*config.Config) error, logOut io.Writer) (*config.Config, *log.Logger, bool) {
	cfg, err := LoadAndValidateConfig(validate)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, false
	}
	return cfg, SetupLogger(cfg, logOut), true
}

// OpenStore connects to the configured database and migrates it.
func OpenStore(ctx context.Context, logger *log.Logger, cfg *config.Config) (*storage.Store, error) {
	store, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.LogError(ctx, "Failed to open database", err, log.OpStartup,
			log.NewFields().WithComponent(log.ComponentStorage))
		return nil, err
	}
	logger.InfoContext(ctx, "Database ready",
		log.FieldComponent, log.ComponentStorage,
		"dialect", store.Dialect())
	return store, nil
}

// NewPublisher returns the event publisher selected by EVENTS_BACKEND.
func NewPublisher(cfg *config.Config) (events.Publisher, error) {
	switch cfg.EventsBackend {
	case config.EventsAMQP:
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			return nil, fmt.Errorf("connect to AMQP broker: %w", err)
		}
		return client, nil
	case config.EventsKafka:
		return kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	default:
		return events.Nop{}, nil
	}
}

// GracefulShutdown calls shutdown once SIGINT or SIGTERM arrives or parent is
// cancelled. The returned channel closes when shutdown has returned.
func GracefulShutdown(parent context.Context, logger *log.Logger, timeout time.Duration, shutdown func(context.Context) error) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown error", log.FieldError, err)
		}
	}()
	return done
}

func ensureDir(target storage.Target) error {
	if target.Path == "" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(target.Path), 0755)
}
