package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/platform/phone"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("lead not found")
	// ErrTerminalStatus is returned when a status change would move a lead
	// out of a terminal status.
	ErrTerminalStatus = errors.New("lead status is terminal")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `
	id, tenant_id, first_name, last_name, email, phone, phone_normalized,
	company_name, job_title, city, state, country, source, notes, status, score,
	owner_id, is_active, is_deleted, created_at, updated_at, converted_at`

// ScanLead reads one row selected with the lead column list.
func ScanLead(row pgx.Row) (domain.Lead, error) {
	var lead domain.Lead
	var status string
	err := row.Scan(
		&lead.ID, &lead.TenantID, &lead.FirstName, &lead.LastName, &lead.Email, &lead.Phone, &lead.PhoneNormalized,
		&lead.CompanyName, &lead.JobTitle, &lead.City, &lead.State, &lead.Country, &lead.Source, &lead.Notes,
		&status, &lead.Score, &lead.OwnerID, &lead.IsActive, &lead.IsDeleted,
		&lead.CreatedAt, &lead.UpdatedAt, &lead.ConvertedAt,
	)
	if err != nil {
		return domain.Lead{}, err
	}
	lead.Status = domain.Status(status)
	return lead, nil
}

// LeadColumns exposes the column list matching ScanLead for repositories
// that select leads inside their own transactions.
func LeadColumns() string {
	return leadColumns
}

func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (domain.Lead, error) {
	lead, err := ScanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE id = $1 AND tenant_id = $2 AND is_deleted = false
	`, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

// GetByEmail returns the non-deleted lead with the given email (case-insensitive).
func (r *Repository) GetByEmail(ctx context.Context, tenantID uuid.UUID, email string) (domain.Lead, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.Lead{}, ErrNotFound
	}
	lead, err := ScanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE tenant_id = $1 AND lower(email) = lower($2) AND is_deleted = false
		ORDER BY created_at ASC
		LIMIT 1
	`, tenantID, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

// Create inserts the lead and fills ID and timestamps.
func (r *Repository) Create(ctx context.Context, lead *domain.Lead) error {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.Status == "" {
		lead.Status = domain.StatusNew
	}
	lead.PhoneNormalized = phone.MatchKey(lead.Phone)
	lead.IsActive = true

	return r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			id, tenant_id, first_name, last_name, email, phone, phone_normalized,
			company_name, job_title, city, state, country, source, notes, status, score, owner_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, updated_at
	`,
		lead.ID, lead.TenantID, lead.FirstName, lead.LastName, lead.Email, lead.Phone, lead.PhoneNormalized,
		lead.CompanyName, lead.JobTitle, lead.City, lead.State, lead.Country, lead.Source, lead.Notes,
		string(lead.Status), lead.Score, lead.OwnerID,
	).Scan(&lead.CreatedAt, &lead.UpdatedAt)
}

func (r *Repository) UpdateScore(ctx context.Context, tenantID, id uuid.UUID, score int) error {
	return r.execOne(ctx, `
		UPDATE leads SET score = $3, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND is_deleted = false
	`, id, tenantID, score)
}

func (r *Repository) UpdateOwner(ctx context.Context, tenantID, id, ownerID uuid.UUID) error {
	return r.execOne(ctx, `
		UPDATE leads SET owner_id = $3, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND is_deleted = false
	`, id, tenantID, ownerID)
}

// UpdateStatus sets the status and returns the previous one. A lead in a
// terminal status keeps it: the row is left untouched and ErrTerminalStatus is
// returned with the current status.
// converted_at is stamped the first time a lead becomes Converted.
func (r *Repository) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status domain.Status) (domain.Status, error) {
	var previous string
	var updated bool
	err := r.pool.QueryRow(ctx, `
		WITH prev AS (
			SELECT id, status FROM leads
			WHERE id = $1 AND tenant_id = $2 AND is_deleted = false
			FOR UPDATE
		), upd AS (
			UPDATE leads l
			SET status = $3,
				converted_at = CASE WHEN $3 = 'Converted' THEN COALESCE(l.converted_at, now()) ELSE l.converted_at END,
				updated_at = now()
			FROM prev
			WHERE l.id = prev.id AND (prev.status <> 'Converted' OR $3 = 'Converted')
			RETURNING l.id
		)
		SELECT prev.status, EXISTS (SELECT 1 FROM upd) FROM prev
	`, id, tenantID, string(status)).Scan(&previous, &updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if !updated {
		return domain.Status(previous), ErrTerminalStatus
	}
	return domain.Status(previous), nil
}

// Archive deactivates a lead without deleting it.
func (r *Repository) Archive(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.execOne(ctx, `
		UPDATE leads SET is_active = false, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND is_deleted = false
	`, id, tenantID)
}

// LastActivityAt returns the creation time of the newest activity linked to the lead.
func (r *Repository) LastActivityAt(ctx context.Context, tenantID, leadID uuid.UUID) (*time.Time, error) {
	var last *time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT max(a.created_at)
		FROM activity_links al
		JOIN activities a ON a.id = al.activity_id
		WHERE al.tenant_id = $1 AND al.entity_type = 'Lead' AND al.entity_id = $2
	`, tenantID, leadID).Scan(&last)
	if err != nil {
		return nil, err
	}
	return last, nil
}

func (r *Repository) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
