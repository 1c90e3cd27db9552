package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/threatguard/threatguard/internal/api"
	"github.com/threatguard/threatguard/internal/mirror"
	"github.com/threatguard/threatguard/internal/store"
)

func main() {
	_ = godotenv.Load() // .env is optional

	logger := mustBuildLogger(envOrDefault("THREATGUARD_LOG_LEVEL", "info"))
	defer logger.Sync() //nolint:errcheck // best-effort flush

	httpPort := envOrDefault("THREATGUARD_HTTP_PORT", "3001")
	postgresDSN := os.Getenv("POSTGRES_DSN")
	clickhouseDSN := os.Getenv("CLICKHOUSE_DSN")
	shutdownTimeout := envOrDefaultInt("THREATGUARD_SHUTDOWN_TIMEOUT_S", 10)

	logger.Info("starting threatguard server",
		zap.String("http_port", httpPort),
	)

	// Event store: Postgres, or in-memory for local development.
	// The process fails fast if a configured database cannot be reached.
	var eventStore store.Store
	if postgresDSN != "" {
		pg, err := store.NewPostgresStore(postgresDSN)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		eventStore = pg
		logger.Info("postgres connected")
	} else {
		eventStore = store.NewMemStore()
		logger.Warn("no POSTGRES_DSN set, using in-memory store; data will not survive restart")
	}
	defer eventStore.Close()

	// Analytics mirror: ClickHouse or log fallback.
	var eventMirror mirror.EventWriter
	if clickhouseDSN != "" {
		chWriter, err := mirror.NewClickHouseWriter(clickhouseDSN, logger)
		if err != nil {
			logger.Warn("clickhouse connection failed, falling back to log mirror",
				zap.Error(err),
			)
			eventMirror = mirror.NewLogWriter(logger)
		} else {
			eventMirror = chWriter
			logger.Info("clickhouse mirror connected")
		}
	} else {
		eventMirror = mirror.NewLogWriter(logger)
		logger.Info("no CLICKHOUSE_DSN set, using log mirror")
	}
	defer eventMirror.Close()

	deps := &api.Dependencies{
		Store:  eventStore,
		Mirror: eventMirror,
		Logger: logger,
	}
	httpServer := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      api.NewRouter(deps),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Block until shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(shutdownTimeout)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}

	logger.Info("threatguard server stopped")
}

func mustBuildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	return logger
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
