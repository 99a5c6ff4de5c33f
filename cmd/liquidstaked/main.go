package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"liquidstake/config"
	"liquidstake/core"
	"liquidstake/observability/logging"
	telemetry "liquidstake/observability/otel"
	"liquidstake/rpc"
	"liquidstake/storage"
)

const (
	serviceName     = "liquidstaked"
	environmentEnv  = "LIQUIDSTAKE_ENV"
	shutdownTimeout = 10 * time.Second
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	allowMigrateFlag := flag.Bool("allow-migrate", false, "Allow starting with a mismatched state schema (manual migrations only)")
	flag.Parse()

	if err := run(*configFile, *allowMigrateFlag); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run(configFile string, allowMigrate bool) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	env := strings.TrimSpace(os.Getenv(environmentEnv))
	if env == "" {
		env = cfg.Environment
	}
	logger := logging.Setup(serviceName, env, logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: serviceName,
		Environment: env,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Traces:      cfg.Telemetry.Traces,
		Metrics:     cfg.Telemetry.Metrics,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	db, err := storage.Open(cfg.DBBackend, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	opts, err := cfg.NodeOptions()
	if err != nil {
		return fmt.Errorf("node options: %w", err)
	}
	opts.AllowMigrate = opts.AllowMigrate || allowMigrate
	opts.Logger = logger

	node, err := core.NewNode(db, opts)
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}

	token := cfg.RPCAuthToken()
	if token == "" {
		logger.Warn("rpc auth token not set; mutating methods will be rejected",
			slog.String("env", cfg.RPCAuthTokenEnv))
	}
	server := rpc.NewServer(node, rpc.ServerConfig{
		AuthToken:   token,
		MetricsPath: cfg.MetricsPath,
		ReadTimeout: time.Duration(cfg.RPCReadTimeoutSecs) * time.Second,
		RateLimit: rpc.RateLimit{
			RequestsPerMinute: cfg.RPCRateLimit,
			Burst:             cfg.RPCRateLimitBurst,
			TrustProxyHeaders: cfg.RPCTrustProxyHeaders,
		},
		Logger:      logger,
	})

	logger.Info("starting node",
		slog.String("rpc_address", cfg.RPCAddress),
		slog.String("data_dir", cfg.DataDir),
		slog.String("db_backend", cfg.DBBackend),
		slog.Uint64("height", node.Height()),
		logging.MaskField("auth_token", token))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.RPCAddress)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("rpc server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", slog.Uint64("height", node.Height()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("rpc shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("rpc server: %w", err)
	}
	return nil
}
