package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadflow_backend/internal/duplicates"
	"leadflow_backend/internal/email"
	"leadflow_backend/internal/events"
	leadrepo "leadflow_backend/internal/leads/repository"
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
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "schedule", cfg.GetSweepSchedule())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	val := validator.New()
	clk := clock.System{}
	leadRepo := leadrepo.New(pool)

	// Notifications raised here reach mail recipients; SSE clients connect to the API process.
	notifier := notification.NewService(sse.New(log), email.NewSender(cfg), log)
	defer notifier.Wait()

	jobs := &scheduler.Jobs{Log: log.WithComponent("jobs")}
	scoringModule := scoring.NewModule(pool, leadRepo, scheduler.NewInlineClient(jobs, log), clk, log)
	events.Wire(eventBus, scoringModule)
	duplicatesModule := duplicates.NewModule(pool, leadRepo, eventBus, val, clk, log)
	jobs.Scores = scoringModule.Service()
	jobs.Duplicates = duplicatesModule.Service()

	workflowModule := workflow.NewModule(pool, leadRepo, notifier, eventBus, val, clk, cfg.GetExecutionClaimLease(), log)

	sweeper := scheduler.NewSweeper(cfg, workflowModule.Service(), scoringModule.Service(), leadRepo, notifier, clk, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sweeper.Run(gctx)
	})

	if cfg.GetRedisURL() != "" {
		worker, err := scheduler.NewWorker(cfg, jobs, log)
		if err != nil {
			log.Error("failed to initialize task worker", "error", err)
			panic("failed to initialize task worker: " + err.Error())
		}
		g.Go(func() error {
			return worker.Run(gctx)
		})
	} else {
		log.Warn("REDIS_URL not configured; task worker disabled")
	}

	if err := g.Wait(); err != nil {
		log.Error("scheduler stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("scheduler stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
