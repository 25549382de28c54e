package repository

import (
	"context"
	"errors"

	"leadflow_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrActivityNotFound = errors.New("activity not found")
var ErrOpportunityNotFound = errors.New("opportunity not found")

// CreateActivity inserts an activity and its entity links in one transaction.
func (r *Repository) CreateActivity(ctx context.Context, activity *domain.Activity, links []domain.ActivityLink) error {
	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO activities (id, tenant_id, activity_type, subject, description, status, priority, due_date, assigned_to)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, activity.ID, activity.TenantID, activity.ActivityType, activity.Subject, activity.Description,
		activity.Status, activity.Priority, activity.DueDate, activity.AssignedTo,
	).Scan(&activity.CreatedAt, &activity.UpdatedAt)
	if err != nil {
		return err
	}

	for _, link := range links {
		if _, err := tx.Exec(ctx, `
			INSERT INTO activity_links (tenant_id, activity_id, entity_type, entity_id)
			VALUES ($1, $2, $3, $4)
		`, activity.TenantID, activity.ID, string(link.EntityType), link.EntityID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *Repository) GetActivity(ctx context.Context, tenantID, id uuid.UUID) (domain.Activity, error) {
	var a domain.Activity
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, activity_type, subject, description, status, priority, due_date, assigned_to, created_at, updated_at
		FROM activities
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID).Scan(
		&a.ID, &a.TenantID, &a.ActivityType, &a.Subject, &a.Description, &a.Status, &a.Priority,
		&a.DueDate, &a.AssignedTo, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Activity{}, ErrActivityNotFound
	}
	return a, err
}

func (r *Repository) AssignActivity(ctx context.Context, tenantID, id, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE activities SET assigned_to = $3, updated_at = now()
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrActivityNotFound
	}
	return nil
}

func (r *Repository) GetOpportunity(ctx context.Context, tenantID, id uuid.UUID) (domain.Opportunity, error) {
	var o domain.Opportunity
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, lead_id, name, status, owner_id, created_at, updated_at
		FROM opportunities
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID).Scan(&o.ID, &o.TenantID, &o.LeadID, &o.Name, &o.Status, &o.OwnerID, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Opportunity{}, ErrOpportunityNotFound
	}
	return o, err
}

func (r *Repository) UpdateOpportunityStatus(ctx context.Context, tenantID, id uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE opportunities SET status = $3, updated_at = now()
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOpportunityNotFound
	}
	return nil
}
