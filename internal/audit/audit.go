// Package audit appends immutable audit entries for automated changes.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"leadflow_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Action names written by the automation engines.
const (
	ActionAssigned      = "Assigned"
	ActionMerged        = "Merged"
	ActionStatusChanged = "StatusChanged"
	ActionArchived      = "Archived"
)

// Entry is one audit log row.
type Entry struct {
	TenantID   uuid.UUID
	EntityType string
	EntityID   uuid.UUID
	Action     string
	Changes    any
	ActorID    *uuid.UUID
}

// Insert writes the entry through q, which may be a pool or an open transaction.
func Insert(ctx context.Context, q db.DBTX, entry Entry) error {
	changes := []byte("{}")
	if entry.Changes != nil {
		encoded, err := json.Marshal(entry.Changes)
		if err != nil {
			return fmt.Errorf("encode audit changes: %w", err)
		}
		changes = encoded
	}

	_, err := q.Exec(ctx, `
		INSERT INTO audit_logs (tenant_id, entity_type, entity_id, action, changes, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.TenantID, entry.EntityType, entry.EntityID, entry.Action, changes, entry.ActorID)
	return err
}

// Repository is the pool-backed audit sink.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Log appends an entry outside of any caller transaction.
func (r *Repository) Log(ctx context.Context, entry Entry) error {
	return Insert(ctx, r.pool, entry)
}
