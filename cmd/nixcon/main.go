package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nixcon/nixcon/internal/acting"
	"github.com/nixcon/nixcon/internal/app"
	"github.com/nixcon/nixcon/internal/audit"
	"github.com/nixcon/nixcon/internal/auth"
	"github.com/nixcon/nixcon/internal/authz"
	"github.com/nixcon/nixcon/internal/clients"
	"github.com/nixcon/nixcon/internal/companies"
	"github.com/nixcon/nixcon/internal/dashboard"
	"github.com/nixcon/nixcon/internal/documents"
	"github.com/nixcon/nixcon/internal/observability"
	"github.com/nixcon/nixcon/internal/platform/cache"
	"github.com/nixcon/nixcon/internal/platform/db"
	"github.com/nixcon/nixcon/internal/shared"
	"github.com/nixcon/nixcon/internal/tasks"
	"github.com/nixcon/nixcon/internal/taxcalc"
	"github.com/nixcon/nixcon/internal/users"
	"github.com/nixcon/nixcon/jobs"
)

const sessionCookie = "nixcon_session"

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
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

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	migrateOnly := len(os.Args) > 1 && os.Args[1] == "migrate"
	if cfg.RunMigrations || migrateOnly {
		if err := db.Migrate(ctx, pool, logger); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
		if migrateOnly {
			return
		}
	}

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("jobs inspector close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	defaults := authz.DefaultMatrix()
	matrix := &defaults
	auditLogger := shared.NewAuditLogger(pool)
	guard := authz.Guard{Matrix: matrix, Logger: logger, Audit: auditLogger, Metrics: metrics}

	sessionManager := shared.NewSessionManager(redisClient, sessionCookie, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)

	usersRepo := users.NewRepository(pool)
	overrideCache := users.NewOverrideCache(redisClient, usersRepo, cfg.OverrideCacheTTL, logger)
	usersService := users.NewService(usersRepo, matrix, overrideCache, auditLogger, logger)

	authService := auth.NewService(auth.NewRepository(pool))
	principals := &auth.PrincipalResolver{
		Service:   authService,
		Tokens:    tokens,
		Overrides: overrideCache,
		Logger:    logger,
	}

	companiesService := companies.NewService(companies.NewRepository(pool))
	clientsService := clients.NewService(clients.NewRepository(pool))
	tasksService := tasks.NewService(tasks.NewRepository(pool))
	documentsService := documents.NewService(documents.NewRepository(pool))
	dashboardService := dashboard.NewService(clientsService, tasksService, documentsService, redisClient, cfg.DashboardCacheTTL, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Principals:     principals,
		Metrics:        metrics,
		Readiness: []app.ReadinessCheck{
			{Name: "postgres", Ping: pool.Ping},
			{Name: "redis", Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		},
		AuthHandler:      auth.NewHandler(logger, authService, sessionManager, csrfManager, tokens, matrix, cfg.LoginLimitPerMin),
		AuthzHandler:     authz.NewHandler(logger, guard),
		ActingHandler:    acting.NewHandler(logger, acting.NewService(companiesService), guard),
		UsersHandler:     users.NewHandler(logger, usersService, guard),
		CompaniesHandler: companies.NewHandler(logger, companiesService, guard),
		ClientsHandler:   clients.NewHandler(logger, clientsService, guard),
		TasksHandler:     tasks.NewHandler(logger, tasksService, guard),
		DocumentsHandler: documents.NewHandler(logger, documentsService, guard),
		DashboardHandler: dashboard.NewHandler(logger, dashboardService, guard),
		TaxHandler:       taxcalc.NewHandler(logger, guard),
		AuditHandler:     audit.NewHandler(logger, audit.NewService(audit.NewRepository(pool)), guard),
		JobHandler:       jobs.NewHandler(inspector, jobClient, guard, logger),
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
