package capture

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrFormNotFound = errors.New("web form not found")

// Form is a public lead capture form owned by one tenant.
type Form struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	Name          string
	DefaultSource string
	IsActive      bool
	Fields        []FormField
}

// FormField maps a submitted label onto a lead attribute. An empty
// MappedField keeps the value as a note line.
type FormField struct {
	Label       string
	MappedField string
	SortOrder   int
}

type FormRepository struct {
	pool *pgxpool.Pool
}

func NewFormRepository(pool *pgxpool.Pool) *FormRepository {
	return &FormRepository{pool: pool}
}

// GetForm loads a form with its fields in display order. The form is looked
// up by id alone because public submissions carry no tenant.
func (r *FormRepository) GetForm(ctx context.Context, formID uuid.UUID) (Form, error) {
	var form Form
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, default_source, is_active
		FROM web_forms
		WHERE id = $1
	`, formID).Scan(&form.ID, &form.TenantID, &form.Name, &form.DefaultSource, &form.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return Form{}, ErrFormNotFound
	}
	if err != nil {
		return Form{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT label, mapped_field, sort_order
		FROM web_form_fields
		WHERE form_id = $1
		ORDER BY sort_order, label
	`, formID)
	if err != nil {
		return Form{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var f FormField
		if err := rows.Scan(&f.Label, &f.MappedField, &f.SortOrder); err != nil {
			return Form{}, err
		}
		form.Fields = append(form.Fields, f)
	}
	return form, rows.Err()
}
