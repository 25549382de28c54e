package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("duplicate pair not found")

const (
	MatchEmail     = "Email"
	MatchPhone     = "Phone"
	MatchFuzzyName = "FuzzyName"

	StatusPending  = "Pending"
	StatusMerged   = "Merged"
	StatusRejected = "Rejected"
)

// Pair is an unordered pair of leads suspected to describe the same person.
type Pair struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	LeadAID    uuid.UUID
	LeadBID    uuid.UUID
	MatchType  string
	Confidence int
	Status     string
	ResolvedBy *uuid.UUID
	ResolvedAt *time.Time
	CreatedAt  time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const pairColumns = `id, tenant_id, lead_a_id, lead_b_id, match_type, confidence, status, resolved_by, resolved_at, created_at`

func scanPair(row pgx.Row) (Pair, error) {
	var p Pair
	err := row.Scan(&p.ID, &p.TenantID, &p.LeadAID, &p.LeadBID, &p.MatchType, &p.Confidence, &p.Status, &p.ResolvedBy, &p.ResolvedAt, &p.CreatedAt)
	return p, err
}

// CreatePending inserts a Pending pair. When a Pending pair for the same
// unordered leads and match type already exists, that pair is returned instead.
func (r *Repository) CreatePending(ctx context.Context, pair Pair) (Pair, error) {
	if pair.ID == uuid.Nil {
		pair.ID = uuid.New()
	}

	created, err := scanPair(r.pool.QueryRow(ctx, `
		INSERT INTO duplicate_pairs (id, tenant_id, lead_a_id, lead_b_id, match_type, confidence, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'Pending')
		ON CONFLICT DO NOTHING
		RETURNING `+pairColumns,
		pair.ID, pair.TenantID, pair.LeadAID, pair.LeadBID, pair.MatchType, pair.Confidence))
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Pair{}, err
	}

	existing, err := scanPair(r.pool.QueryRow(ctx, `
		SELECT `+pairColumns+`
		FROM duplicate_pairs
		WHERE tenant_id = $1 AND status = 'Pending' AND match_type = $4
			AND LEAST(lead_a_id, lead_b_id) = LEAST($2::uuid, $3::uuid)
			AND GREATEST(lead_a_id, lead_b_id) = GREATEST($2::uuid, $3::uuid)
	`, pair.TenantID, pair.LeadAID, pair.LeadBID, pair.MatchType))
	if errors.Is(err, pgx.ErrNoRows) {
		return Pair{}, ErrNotFound
	}
	return existing, err
}

func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (Pair, error) {
	p, err := scanPair(r.pool.QueryRow(ctx, `
		SELECT `+pairColumns+`
		FROM duplicate_pairs
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Pair{}, ErrNotFound
	}
	return p, err
}

// MarkResolved moves a Pending pair to a terminal status. It reports false
// when the pair was no longer Pending.
func (r *Repository) MarkResolved(ctx context.Context, tenantID, id uuid.UUID, status string, resolvedBy uuid.UUID, at time.Time) (Pair, bool, error) {
	p, err := scanPair(r.pool.QueryRow(ctx, `
		UPDATE duplicate_pairs
		SET status = $3, resolved_by = $4, resolved_at = $5
		WHERE id = $1 AND tenant_id = $2 AND status = 'Pending'
		RETURNING `+pairColumns,
		id, tenantID, status, resolvedBy, at))
	if errors.Is(err, pgx.ErrNoRows) {
		return Pair{}, false, nil
	}
	if err != nil {
		return Pair{}, false, err
	}
	return p, true, nil
}

// List returns the tenant's pairs, newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, status string, limit int) ([]Pair, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+pairColumns+`
		FROM duplicate_pairs
		WHERE tenant_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`, tenantID, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pairs := make([]Pair, 0)
	for rows.Next() {
		p, err := scanPair(rows)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}
