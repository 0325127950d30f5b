package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/buildtrust/govern/internal/app"
	"github.com/buildtrust/govern/internal/observability"
	"github.com/buildtrust/govern/internal/plans"
	"github.com/buildtrust/govern/internal/platform/cache"
	"github.com/buildtrust/govern/internal/rbac"
	"github.com/buildtrust/govern/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	policy, err := rbac.Load(cfg.PolicyFile)
	if err != nil {
		logger.Error("load policy", slog.String("file", cfg.PolicyFile), slog.Any("error", err))
		os.Exit(1)
	}
	engine, err := policy.Build()
	if err != nil {
		logger.Error("build policy", slog.Any("error", err))
		os.Exit(1)
	}
	if report := engine.Audit(); !report.OK() {
		for _, v := range report.Violations {
			logger.Warn("governance violation", slog.String("violation", v.String()))
		}
		if cfg.StrictGovernance {
			logger.Error("strict governance enabled, refusing to start", slog.Int("violations", len(report.Violations)))
			os.Exit(1)
		}
	}

	var (
		reportCache *rbac.ReportCache
		redisReady  bool
	)
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, governance reports will not be cached", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		reportCache = rbac.NewReportCache(redisClient, cfg.ReportCacheTTL)
		redisReady = true
	}

	metrics := observability.NewMetrics()
	service := rbac.NewService(engine, reportCache, logger)
	rbacMiddleware := rbac.Middleware{
		Authorizer: engine.Authorizer,
		Resolver:   rbac.ChainResolvers(rbac.ContextResolver(), rbac.HeaderResolver(cfg.RoleHeader)),
		Logger:     logger,
		Recorder:   metrics,
	}
	rbacHandler := rbac.NewHandler(logger, service, plans.Default(), rbacMiddleware)

	inspector, closeInspector := queueInspector(redisReady, cfg.RedisAddr)
	defer func() {
		if err := closeInspector(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:      logger,
		Config:      cfg,
		RBACHandler: rbacHandler,
		JobHandler:  jobHandler,
		Metrics:     metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("policy_version", engine.Version),
			slog.String("fingerprint", engine.Fingerprint),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// queueInspector returns an asynq inspector when Redis answered at startup.
// Without Redis the job health endpoint reports empty queues.
func queueInspector(redisReady bool, addr string) (jobs.QueueInspector, func() error) {
	if !redisReady {
		return nil, func() error { return nil }
	}
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: addr})
	return inspector, inspector.Close
}
