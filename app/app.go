// app/app.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dalemusser/cinemadb/config"
	"github.com/dalemusser/cinemadb/logging"
	"github.com/dalemusser/cinemadb/metrics"
	"github.com/dalemusser/cinemadb/mongoconn"
	"github.com/dalemusser/cinemadb/pantry/health"
	"github.com/dalemusser/cinemadb/pantry/retry"
	"github.com/dalemusser/cinemadb/pantry/version"
	"github.com/dalemusser/cinemadb/router"
	"github.com/dalemusser/cinemadb/server"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Name is used for logging and as the Mongo application name.
const Name = "cinemadb"

// Run executes the startup sequence:
//
//  1. Bootstrap logger
//  2. Load config
//  3. Build final logger
//  4. Register metrics
//  5. Start the shared Mongo handle (does not wait for it)
//  6. Wire shutdown signals to a context
//  7. Build the ops HTTP handler
//  8. Serve until shutdown, then close the handle
func Run(ctx context.Context, args []string) error {
	bootstrap := logging.BootstrapLogger()
	defer bootstrap.Sync()

	cfg, err := config.Load(bootstrap, args)
	if err != nil {
		bootstrap.Error("config load failed", zap.Error(err))
		return err
	}
	bootstrap.Info("config loaded",
		zap.String("env", cfg.Env),
		zap.String("log_level", cfg.LogLevel),
	)

	logger := logging.MustBuildLogger(cfg.LogLevel, cfg.Env, zap.String("app", Name))
	defer logger.Sync()
	logger.Info("starting", version.Get().Fields()...)
	logger.Debug("effective config", zap.String("config", cfg.Dump()))

	metrics.RegisterDefault(logger)
	mongoMetrics, err := mongoconn.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register mongo metrics: %w", err)
	}

	target, err := cfg.Target()
	if err != nil {
		return err
	}
	h := mongoconn.Init(target, HandleOptions(cfg, logger, mongoMetrics)...)
	logger.Info("mongo connection requested", zap.String("target", target.String()))

	ctx, cancel := server.WithShutdownSignals(ctx, logger)
	defer cancel()

	serveErr := server.ListenAndServeWithContext(ctx, cfg, BuildHandler(h, logger), logger)

	closeCtx, closeCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer closeCancel()
	if err := h.Close(closeCtx); err != nil {
		logger.Warn("mongo close failed", zap.Error(err))
	}

	if serveErr != nil {
		logger.Error("server exited with error", zap.Error(serveErr))
		return serveErr
	}
	logger.Info("server stopped")
	return nil
}

// HandleOptions maps config onto handle options. A single attempt is the
// default; connect_attempts > 1 turns on exponential backoff.
func HandleOptions(cfg *config.CoreConfig, logger *zap.Logger, m *mongoconn.Metrics) []mongoconn.Option {
	opts := []mongoconn.Option{
		mongoconn.WithLogger(logger),
		mongoconn.WithAppName(Name),
		mongoconn.WithConnectTimeout(cfg.Mongo.ConnectTimeout),
		mongoconn.WithMetrics(m),
	}
	if uri := strings.TrimSpace(cfg.Mongo.URI); uri != "" {
		opts = append(opts, mongoconn.WithURI(uri))
	}
	if cfg.Mongo.ConnectAttempts > 1 {
		rc := retry.DefaultConfig()
		rc.MaxAttempts = cfg.Mongo.ConnectAttempts
		rc.InitialDelay = cfg.Mongo.ConnectBackoff
		opts = append(opts, mongoconn.WithRetry(rc))
	}
	return opts
}

// BuildHandler mounts /health (liveness), /ready (Mongo readiness),
// /version and /metrics on the standard router.
func BuildHandler(h *mongoconn.Handle, logger *zap.Logger) http.Handler {
	r := router.New(logger)
	health.MountAt(r, "/health", nil, logger)
	health.MountAt(r, "/ready", map[string]health.Check{
		"mongo": mongoconn.HealthCheck(h),
	}, logger)
	r.Method(http.MethodGet, "/version", version.Handler(logger))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}
