package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/tessera-io/tessera/internal/app"
	"github.com/tessera-io/tessera/internal/authz"
	"github.com/tessera-io/tessera/internal/memberships"
	"github.com/tessera-io/tessera/internal/permissions"
	"github.com/tessera-io/tessera/internal/platform/cache"
	"github.com/tessera-io/tessera/internal/platform/db"
	"github.com/tessera-io/tessera/internal/platformadmin"
	"github.com/tessera-io/tessera/internal/policies"
	"github.com/tessera-io/tessera/internal/roles"
	"github.com/tessera-io/tessera/jobs"
)

// graphInvalidator fans a graph mutation out to the cache and the warmup
// queue. Enqueue failures are logged only: the version bump alone already
// keeps resolution correct.
type graphInvalidator struct {
	cache  *authz.GrantCache
	queue  *jobs.Client
	logger *slog.Logger
}

func (g graphInvalidator) GraphChanged(ctx context.Context) {
	g.cache.GraphChanged(ctx)
	if g.queue == nil {
		return
	}
	if _, err := g.queue.EnqueueGrantsWarmup(ctx); err != nil {
		g.logger.Warn("enqueue grants warmup", slog.Any("error", err))
	}
}

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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	var redisClient *redis.Client
	var jobsClient *jobs.Client
	if cfg.AuthzCacheEnabled {
		redisClient, err = cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, grants cache disabled", slog.Any("error", err))
			redisClient = nil
		} else {
			defer func() {
				if err := redisClient.Close(); err != nil {
					logger.Warn("redis close", slog.Any("error", err))
				}
			}()
			jobsClient = jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
			defer func() {
				if err := jobsClient.Close(); err != nil {
					logger.Warn("jobs client close", slog.Any("error", err))
				}
			}()
		}
	}

	validate := validator.New()

	adminRepo := platformadmin.NewRepository(pool)
	adminService := platformadmin.NewService(adminRepo)
	adminHandler := platformadmin.NewHandler(logger, adminService, validate)

	memberRepo := memberships.NewRepository(pool)

	roleRepo := roles.NewRepository(pool)
	grantCache := authz.NewGrantCache(logger, redisClient, roleRepo, cfg.AuthzCacheTTL)
	invalidator := graphInvalidator{cache: grantCache, queue: jobsClient, logger: logger}

	permRepo := permissions.NewRepository(pool)
	permService := permissions.NewService(permRepo)
	permHandler := permissions.NewHandler(logger, permService, validate)

	policyRepo := policies.NewRepository(pool)
	policyService := policies.NewService(policyRepo, invalidator)
	policyHandler := policies.NewHandler(logger, policyService, validate)

	roleService := roles.NewService(roleRepo, invalidator)
	roleHandler := roles.NewHandler(logger, roleService, validate)

	memberService := memberships.NewService(memberRepo, roleService)
	memberHandler := memberships.NewHandler(logger, memberService, validate)

	resolver := authz.NewResolver(logger, adminService, memberRepo, grantCache)
	authzHandler := authz.NewHandler(logger, resolver, validate)

	var jobsHandler *jobs.Handler
	if cfg.AuthzCacheEnabled {
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobsHandler = jobs.NewHandler(inspector, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Config:             cfg,
		AuthzHandler:       authzHandler,
		PermissionsHandler: permHandler,
		PoliciesHandler:    policyHandler,
		RolesHandler:       roleHandler,
		AdminsHandler:      adminHandler,
		MembershipsHandler: memberHandler,
		JobsHandler:        jobsHandler,
		Guards: authz.Middleware{
			Logger:  logger,
			Admins:  adminService,
			Members: memberRepo,
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
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
