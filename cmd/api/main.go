package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadflow_backend/internal/assignment"
	"leadflow_backend/internal/audit"
	"leadflow_backend/internal/duplicates"
	"leadflow_backend/internal/email"
	"leadflow_backend/internal/events"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/http/router"
	"leadflow_backend/internal/leads"
	leadrepo "leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/merge"
	"leadflow_backend/internal/notification"
	"leadflow_backend/internal/notification/sse"
	"leadflow_backend/internal/scheduler"
	"leadflow_backend/internal/scoring"
	"leadflow_backend/internal/workflow"
	"leadflow_backend/platform/clock"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/db"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if cfg.MigrationsEnabled {
		if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
			return db.RunMigrations(ctx, cfg)
		}); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")
	}

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	val := validator.New()
	clk := clock.System{}
	leadRepo := leadrepo.New(pool)

	// Background tasks run on asynq when Redis is configured; otherwise in-process.
	jobs := &scheduler.Jobs{Log: log.WithComponent("jobs")}
	tasks, closeTasks := initTaskClient(cfg, jobs, log)
	defer closeTasks()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	hub := sse.New(log)
	notifier := notification.NewService(hub, email.NewSender(cfg), log)
	notificationModule := notification.NewModule(hub, notifier, log)
	defer notifier.Wait()

	scoringModule := scoring.NewModule(pool, leadRepo, tasks, clk, log)

	duplicatesModule := duplicates.NewModule(pool, leadRepo, eventBus, val, clk, log)

	jobs.Scores = scoringModule.Service()
	jobs.Duplicates = duplicatesModule.Service()

	assignmentModule := assignment.NewModule(pool, leadRepo, leadRepo, audit.New(pool), eventBus, log)
	mergeModule := merge.NewModule(pool, eventBus, val, clk, log)

	workflowModule := workflow.NewModule(pool, leadRepo, notifier, eventBus, val, clk, cfg.GetExecutionClaimLease(), log)

	leadsModule := leads.NewModule(pool, leadRepo, scoringModule.Service(), assignmentModule.Service(), tasks, eventBus, val, log)

	events.Wire(eventBus, notificationModule, scoringModule, workflowModule)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			scoringModule,
			assignmentModule,
			duplicatesModule,
			mergeModule,
			workflowModule,
			notificationModule,
		},
	}

	engine := router.New(app)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		tasks.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initTaskClient(cfg config.SchedulerConfig, jobs *scheduler.Jobs, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; background tasks run in-process")
		return scheduler.NewInlineClient(jobs, log), func() {}
	}

	client, err := scheduler.NewClient(cfg, log)
	if err != nil {
		log.Error("failed to initialize task client; background tasks run in-process", "error", err)
		return scheduler.NewInlineClient(jobs, log), func() {}
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
