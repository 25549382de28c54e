package repository

import (
	"context"
	"strings"
	"time"

	"leadflow_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ListScorable returns the active, non-deleted, non-converted leads of a tenant.
func (r *Repository) ListScorable(ctx context.Context, tenantID uuid.UUID) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE tenant_id = $1 AND is_active = true AND is_deleted = false AND status <> 'Converted'
		ORDER BY created_at ASC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}

// CountOpenByOwner counts leads in capacity-relevant statuses per owner.
// Owners without leads are reported with zero.
func (r *Repository) CountOpenByOwner(ctx context.Context, tenantID uuid.UUID, ownerIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(ownerIDs))
	for _, id := range ownerIDs {
		counts[id] = 0
	}
	if len(ownerIDs) == 0 {
		return counts, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT owner_id, count(*)
		FROM leads
		WHERE tenant_id = $1 AND owner_id = ANY($2)
			AND status = ANY($3)
			AND is_active = true AND is_deleted = false
		GROUP BY owner_id
	`, tenantID, ownerIDs, domain.OpenStatuses())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var owner uuid.UUID
		var count int
		if err := rows.Scan(&owner, &count); err != nil {
			return nil, err
		}
		counts[owner] = count
	}
	return counts, rows.Err()
}

// FindByEmail returns active candidates sharing the email, excluding the subject lead.
func (r *Repository) FindByEmail(ctx context.Context, tenantID uuid.UUID, email string, excludeID uuid.UUID) ([]domain.Lead, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE tenant_id = $1 AND lower(email) = lower($2) AND id <> $3
			AND is_active = true AND is_deleted = false
		ORDER BY created_at ASC
	`, tenantID, email, excludeID)
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}

// FindByPhone returns active candidates with the same normalized phone.
func (r *Repository) FindByPhone(ctx context.Context, tenantID uuid.UUID, normalized string, excludeID uuid.UUID) ([]domain.Lead, error) {
	if normalized == "" {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE tenant_id = $1 AND phone_normalized = $2 AND id <> $3
			AND is_active = true AND is_deleted = false
		ORDER BY created_at ASC
	`, tenantID, normalized, excludeID)
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}

// FindByNamePrefix returns active candidates whose lower-cased first name starts with prefix.
func (r *Repository) FindByNamePrefix(ctx context.Context, tenantID uuid.UUID, prefix string, excludeID uuid.UUID) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE tenant_id = $1 AND lower(left(first_name, 2)) = $2 AND id <> $3
			AND is_active = true AND is_deleted = false
		ORDER BY created_at ASC
	`, tenantID, strings.ToLower(prefix), excludeID)
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}

// ListTenantIDs returns every tenant that owns at least one active lead.
func (r *Repository) ListTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT tenant_id FROM leads
		WHERE is_active = true AND is_deleted = false
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListStale returns open leads (all tenants) whose last update is older than cutoff.
func (r *Repository) ListStale(ctx context.Context, cutoff time.Time) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE is_active = true AND is_deleted = false
			AND status NOT IN ('Converted', 'Unqualified')
			AND COALESCE(updated_at, created_at) < $1
		ORDER BY tenant_id, updated_at ASC
	`, cutoff)
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}

// ArchiveInactive deactivates non-converted leads untouched since cutoff and
// without any linked activity created after it.
func (r *Repository) ArchiveInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads l
		SET is_active = false, updated_at = now()
		WHERE l.is_active = true AND l.is_deleted = false
			AND l.status <> 'Converted'
			AND COALESCE(l.updated_at, l.created_at) < $1
			AND NOT EXISTS (
				SELECT 1
				FROM activity_links al
				JOIN activities a ON a.id = al.activity_id
				WHERE al.entity_type = 'Lead' AND al.entity_id = l.id AND a.created_at >= $1
			)
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func collectLeads(rows pgx.Rows) ([]domain.Lead, error) {
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := ScanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}
