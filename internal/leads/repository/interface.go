package repository

import (
	"context"
	"time"

	"leadflow_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (domain.Lead, error)
	GetByEmail(ctx context.Context, tenantID uuid.UUID, email string) (domain.Lead, error)
	ListScorable(ctx context.Context, tenantID uuid.UUID) ([]domain.Lead, error)
	LastActivityAt(ctx context.Context, tenantID, leadID uuid.UUID) (*time.Time, error)
}

// LeadWriter provides write operations used by the automation engines.
type LeadWriter interface {
	Create(ctx context.Context, lead *domain.Lead) error
	UpdateScore(ctx context.Context, tenantID, id uuid.UUID, score int) error
	UpdateOwner(ctx context.Context, tenantID, id, ownerID uuid.UUID) error
	UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status domain.Status) (domain.Status, error)
	Archive(ctx context.Context, tenantID, id uuid.UUID) error
}

// DuplicateCandidateFinder looks up leads that may duplicate a subject lead.
type DuplicateCandidateFinder interface {
	FindByEmail(ctx context.Context, tenantID uuid.UUID, email string, excludeID uuid.UUID) ([]domain.Lead, error)
	FindByPhone(ctx context.Context, tenantID uuid.UUID, normalized string, excludeID uuid.UUID) ([]domain.Lead, error)
	FindByNamePrefix(ctx context.Context, tenantID uuid.UUID, prefix string, excludeID uuid.UUID) ([]domain.Lead, error)
}

// WorkloadReader reports how many open leads each owner carries.
type WorkloadReader interface {
	CountOpenByOwner(ctx context.Context, tenantID uuid.UUID, ownerIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

// MaintenanceStore serves the recurring SLA and archive sweeps.
type MaintenanceStore interface {
	ListTenantIDs(ctx context.Context) ([]uuid.UUID, error)
	ListStale(ctx context.Context, cutoff time.Time) ([]domain.Lead, error)
	ArchiveInactive(ctx context.Context, cutoff time.Time) (int64, error)
}

// ActivityStore manages activities, their links and opportunities.
type ActivityStore interface {
	CreateActivity(ctx context.Context, activity *domain.Activity, links []domain.ActivityLink) error
	GetActivity(ctx context.Context, tenantID, id uuid.UUID) (domain.Activity, error)
	AssignActivity(ctx context.Context, tenantID, id, userID uuid.UUID) error
	GetOpportunity(ctx context.Context, tenantID, id uuid.UUID) (domain.Opportunity, error)
	UpdateOpportunityStatus(ctx context.Context, tenantID, id uuid.UUID, status string) error
}

var (
	_ LeadReader               = (*Repository)(nil)
	_ LeadWriter               = (*Repository)(nil)
	_ DuplicateCandidateFinder = (*Repository)(nil)
	_ WorkloadReader           = (*Repository)(nil)
	_ MaintenanceStore         = (*Repository)(nil)
	_ ActivityStore            = (*Repository)(nil)
)
