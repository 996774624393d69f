package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-analytics/internal/core/errors"
	"github.com/lorrc/service-desk-analytics/internal/core/ports"
)

// OverrideRepository is the secondary adapter for reviewer SLA decisions.
type OverrideRepository struct {
	pool *pgxpool.Pool
}

var _ ports.OverrideRepository = (*OverrideRepository)(nil)

// NewOverrideRepository creates a new override repository.
func NewOverrideRepository(pool *pgxpool.Pool) *OverrideRepository {
	return &OverrideRepository{pool: pool}
}

// Upsert records or replaces the decision for one ticket.
func (r *OverrideRepository) Upsert(ctx context.Context, override *domain.SLAOverride) (*domain.SLAOverride, error) {
	const query = `
INSERT INTO sla_overrides (dataset_id, ticket_id, breached, updated_by, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (dataset_id, ticket_id) DO UPDATE
SET breached = EXCLUDED.breached,
    updated_by = EXCLUDED.updated_by,
    updated_at = EXCLUDED.updated_at
RETURNING dataset_id, ticket_id, breached, updated_by, updated_at
`
	row := GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		override.DatasetID, override.TicketID, override.Breached, override.UpdatedBy, override.UpdatedAt)
	return scanOverride(row)
}

// Delete removes the decision for one ticket.
func (r *OverrideRepository) Delete(ctx context.Context, datasetID uuid.UUID, ticketID string) error {
	const query = `DELETE FROM sla_overrides WHERE dataset_id = $1 AND ticket_id = $2`

	tag, err := GetDBTX(ctx, r.pool).Exec(ctx, query, datasetID, ticketID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrOverrideNotFound
	}
	return nil
}

// DeleteByDataset removes every decision recorded for a dataset.
func (r *OverrideRepository) DeleteByDataset(ctx context.Context, datasetID uuid.UUID) error {
	_, err := GetDBTX(ctx, r.pool).Exec(ctx, `DELETE FROM sla_overrides WHERE dataset_id = $1`, datasetID)
	return err
}

// ListByDataset returns a dataset's decisions ordered by ticket ID.
func (r *OverrideRepository) ListByDataset(ctx context.Context, datasetID uuid.UUID) ([]*domain.SLAOverride, error) {
	const query = `
SELECT dataset_id, ticket_id, breached, updated_by, updated_at
FROM sla_overrides
WHERE dataset_id = $1
ORDER BY ticket_id
`
	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	overrides := make([]*domain.SLAOverride, 0)
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return overrides, nil
}

func scanOverride(row pgx.Row) (*domain.SLAOverride, error) {
	var o domain.SLAOverride
	if err := row.Scan(&o.DatasetID, &o.TicketID, &o.Breached, &o.UpdatedBy, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.UpdatedAt = o.UpdatedAt.UTC()
	return &o, nil
}
