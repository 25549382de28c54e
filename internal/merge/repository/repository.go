package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leadflow_backend/internal/audit"
	"leadflow_backend/internal/leads/domain"
	leadrepo "leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/phone"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrLeadNotFound = errors.New("lead not found")

// History is the immutable record written for every merge.
type History struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	SurvivorID     uuid.UUID
	MergedID       uuid.UUID
	Snapshot       map[string]any
	FieldSelection map[string]string
	MergedBy       *uuid.UUID
	CreatedAt      time.Time
}

// Tx is the set of statements a merge runs inside one transaction.
type Tx interface {
	LockLeads(ctx context.Context, tenantID, survivorID, mergedID uuid.UUID) (domain.Lead, domain.Lead, error)
	InsertHistory(ctx context.Context, h History) error
	UpdateLeadFields(ctx context.Context, lead domain.Lead) error
	RepointActivityLinks(ctx context.Context, tenantID, from, to uuid.UUID) (int64, error)
	RepointCommunications(ctx context.Context, tenantID, from, to uuid.UUID) (int64, error)
	MarkPairsMerged(ctx context.Context, tenantID, mergedID uuid.UUID, actorID *uuid.UUID, at time.Time) (int64, error)
	SoftDelete(ctx context.Context, tenantID, id uuid.UUID) error
	Audit(ctx context.Context, entry audit.Entry) error
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithinTx runs fn in a transaction that commits only when fn returns nil.
func (r *Repository) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin merge: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type txStore struct {
	tx pgx.Tx
}

// LockLeads locks both leads in id order so two merges touching the same
// leads cannot deadlock.
func (s *txStore) LockLeads(ctx context.Context, tenantID, survivorID, mergedID uuid.UUID) (domain.Lead, domain.Lead, error) {
	rows, err := s.tx.Query(ctx, `
		SELECT `+leadrepo.LeadColumns()+`
		FROM leads
		WHERE tenant_id = $1 AND id = ANY($2) AND is_deleted = false
		ORDER BY id
		FOR UPDATE
	`, tenantID, []uuid.UUID{survivorID, mergedID})
	if err != nil {
		return domain.Lead{}, domain.Lead{}, err
	}
	defer rows.Close()

	var survivor, merged domain.Lead
	found := 0
	for rows.Next() {
		lead, err := leadrepo.ScanLead(rows)
		if err != nil {
			return domain.Lead{}, domain.Lead{}, err
		}
		switch lead.ID {
		case survivorID:
			survivor = lead
		case mergedID:
			merged = lead
		}
		found++
	}
	if err := rows.Err(); err != nil {
		return domain.Lead{}, domain.Lead{}, err
	}
	if found != 2 {
		return domain.Lead{}, domain.Lead{}, ErrLeadNotFound
	}
	return survivor, merged, nil
}

func (s *txStore) InsertHistory(ctx context.Context, h History) error {
	snapshot, err := json.Marshal(h.Snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	selection, err := json.Marshal(h.FieldSelection)
	if err != nil {
		return fmt.Errorf("encode field selection: %w", err)
	}
	_, err = s.tx.Exec(ctx, `
		INSERT INTO merge_history (id, tenant_id, survivor_id, merged_id, snapshot, field_selection, merged_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, h.ID, h.TenantID, h.SurvivorID, h.MergedID, snapshot, selection, h.MergedBy, h.CreatedAt)
	return err
}

func (s *txStore) UpdateLeadFields(ctx context.Context, lead domain.Lead) error {
	tag, err := s.tx.Exec(ctx, `
		UPDATE leads
		SET first_name = $3, last_name = $4, email = $5, phone = $6, phone_normalized = $7,
			company_name = $8, job_title = $9, city = $10, state = $11, country = $12,
			source = $13, notes = $14, status = $15, score = $16, owner_id = $17, updated_at = now()
		WHERE id = $1 AND tenant_id = $2
	`, lead.ID, lead.TenantID, lead.FirstName, lead.LastName, lead.Email, lead.Phone, phone.MatchKey(lead.Phone),
		lead.CompanyName, lead.JobTitle, lead.City, lead.State, lead.Country,
		lead.Source, lead.Notes, string(lead.Status), lead.Score, lead.OwnerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

func (s *txStore) RepointActivityLinks(ctx context.Context, tenantID, from, to uuid.UUID) (int64, error) {
	tag, err := s.tx.Exec(ctx, `
		UPDATE activity_links SET entity_id = $3
		WHERE tenant_id = $1 AND entity_type = 'Lead' AND entity_id = $2
	`, tenantID, from, to)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *txStore) RepointCommunications(ctx context.Context, tenantID, from, to uuid.UUID) (int64, error) {
	tag, err := s.tx.Exec(ctx, `
		UPDATE communications SET entity_id = $3
		WHERE tenant_id = $1 AND entity_type = 'Lead' AND entity_id = $2
	`, tenantID, from, to)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *txStore) MarkPairsMerged(ctx context.Context, tenantID, mergedID uuid.UUID, actorID *uuid.UUID, at time.Time) (int64, error) {
	tag, err := s.tx.Exec(ctx, `
		UPDATE duplicate_pairs
		SET status = 'Merged', resolved_by = $3, resolved_at = $4
		WHERE tenant_id = $1 AND status = 'Pending' AND (lead_a_id = $2 OR lead_b_id = $2)
	`, tenantID, mergedID, actorID, at)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *txStore) SoftDelete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := s.tx.Exec(ctx, `
		UPDATE leads SET is_active = false, is_deleted = true, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND is_deleted = false
	`, id, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

func (s *txStore) Audit(ctx context.Context, entry audit.Entry) error {
	return audit.Insert(ctx, s.tx, entry)
}
