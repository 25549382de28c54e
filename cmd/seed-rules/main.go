// Command seed-rules loads a YAML rule pack for one tenant.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	assignrepo "leadflow_backend/internal/assignment/repository"
	scoringrepo "leadflow_backend/internal/scoring/repository"
	workflowrepo "leadflow_backend/internal/workflow/repository"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/db"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/google/uuid"
)

func main() {
	file := flag.String("file", "", "path to the YAML rule pack")
	tenant := flag.String("tenant", "", "tenant id the rules belong to")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	log := logger.New(cfg.Env)

	if err := run(context.Background(), cfg, log, *file, *tenant); err != nil {
		log.Error("rule seeding failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, file, tenant string) error {
	tenantID, err := uuid.Parse(tenant)
	if err != nil {
		return fmt.Errorf("invalid -tenant: %w", err)
	}
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	pack, err := LoadPack(f, validator.New())
	if err != nil {
		return err
	}
	workflows, err := pack.workflowRules(tenantID)
	if err != nil {
		return err
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	scoring := scoringrepo.New(pool)
	for _, rule := range pack.scoringRules(tenantID) {
		if err := scoring.CreateRule(ctx, &rule); err != nil {
			return fmt.Errorf("scoring rule %q: %w", rule.Name, err)
		}
	}

	assignment := assignrepo.New(pool)
	for _, rule := range pack.assignmentRules(tenantID) {
		if err := assignment.CreateRule(ctx, &rule); err != nil {
			return fmt.Errorf("assignment rule %q: %w", rule.Name, err)
		}
	}

	wf := workflowrepo.New(pool)
	for _, rule := range workflows {
		if err := wf.CreateRule(ctx, &rule); err != nil {
			return fmt.Errorf("workflow rule %q: %w", rule.Name, err)
		}
	}

	log.Info("rule pack seeded",
		"tenantId", tenantID,
		"scoring", len(pack.Scoring),
		"assignment", len(pack.Assignment),
		"workflows", len(workflows),
	)
	return nil
}
