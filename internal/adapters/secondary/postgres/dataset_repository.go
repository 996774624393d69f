package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-analytics/internal/core/errors"
	"github.com/lorrc/service-desk-analytics/internal/core/ports"
)

const uniqueViolation = "23505"

// ticketColumns is the column order used for COPY and SELECT.
var ticketColumns = []string{
	"dataset_id",
	"position",
	"ticket_id",
	"subject",
	"status",
	"priority",
	"type",
	"company_name",
	"sdm",
	"agent",
	"created_time",
	"resolved_time",
	"due_by_time",
	"resolution_time_hrs",
	"resolution_status",
	"sdm_escalation",
	"number_of_users_affected",
}

// DatasetRepository is the secondary adapter for dataset persistence.
type DatasetRepository struct {
	pool *pgxpool.Pool
}

// Ensure DatasetRepository implements the ports.DatasetRepository interface.
var _ ports.DatasetRepository = (*DatasetRepository)(nil)

// NewDatasetRepository creates a new dataset repository.
func NewDatasetRepository(pool *pgxpool.Pool) *DatasetRepository {
	return &DatasetRepository{pool: pool}
}

// Create inserts the dataset row and bulk-loads its tickets. Run it inside a
// transaction so a failed COPY leaves no partial dataset behind.
func (r *DatasetRepository) Create(ctx context.Context, dataset *domain.Dataset, tickets []domain.TicketRecord) (*domain.Dataset, error) {
	const query = `
INSERT INTO datasets (id, name, uploaded_by, uploaded_at, ticket_count)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, name, uploaded_by, uploaded_at, ticket_count
`
	db := GetDBTX(ctx, r.pool)

	row := db.QueryRow(ctx, query,
		dataset.ID, dataset.Name, dataset.UploadedBy, dataset.UploadedAt, len(tickets))
	created, err := scanDataset(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, apperrors.ErrConflict
		}
		return nil, err
	}

	_, err = db.CopyFrom(ctx,
		pgx.Identifier{"dataset_tickets"},
		ticketColumns,
		pgx.CopyFromSlice(len(tickets), func(i int) ([]any, error) {
			return ticketRow(created.ID, i, tickets[i]), nil
		}),
	)
	if err != nil {
		return nil, err
	}

	return created, nil
}

// GetByID retrieves dataset metadata.
func (r *DatasetRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Dataset, error) {
	const query = `
SELECT id, name, uploaded_by, uploaded_at, ticket_count
FROM datasets
WHERE id = $1
`
	dataset, err := scanDataset(GetDBTX(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrDatasetNotFound
		}
		return nil, err
	}
	return dataset, nil
}

// List retrieves datasets newest first.
func (r *DatasetRepository) List(ctx context.Context, params ports.ListDatasetsRepoParams) ([]*domain.Dataset, error) {
	const query = `
SELECT id, name, uploaded_by, uploaded_at, ticket_count
FROM datasets
ORDER BY uploaded_at DESC, id
LIMIT $1 OFFSET $2
`
	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	datasets := make([]*domain.Dataset, 0)
	for rows.Next() {
		dataset, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, dataset)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return datasets, nil
}

// Delete removes a dataset. Tickets and overrides cascade.
func (r *DatasetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := GetDBTX(ctx, r.pool).Exec(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrDatasetNotFound
	}
	return nil
}

// ListTickets returns a dataset's rows in upload order.
func (r *DatasetRepository) ListTickets(ctx context.Context, id uuid.UUID) ([]domain.TicketRecord, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}

	const query = `
SELECT ticket_id, subject, status, priority, type, company_name, sdm, agent,
       created_time, resolved_time, due_by_time, resolution_time_hrs,
       resolution_status, sdm_escalation, number_of_users_affected
FROM dataset_tickets
WHERE dataset_id = $1
ORDER BY position
`
	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]domain.TicketRecord, 0)
	for rows.Next() {
		var cols [15]pgtype.Text
		dest := make([]any, len(cols))
		for i := range cols {
			dest[i] = &cols[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		tickets = append(tickets, domain.TicketRecord{
			TicketID:              textOrEmpty(cols[0]),
			Subject:               textOrEmpty(cols[1]),
			Status:                textOrEmpty(cols[2]),
			Priority:              textOrEmpty(cols[3]),
			Type:                  textOrEmpty(cols[4]),
			CompanyName:           textOrEmpty(cols[5]),
			SDM:                   textOrEmpty(cols[6]),
			Agent:                 textOrEmpty(cols[7]),
			CreatedTime:           textOrEmpty(cols[8]),
			ResolvedTime:          textOrEmpty(cols[9]),
			DueByTime:             textOrEmpty(cols[10]),
			ResolutionTimeHrs:     textOrEmpty(cols[11]),
			ResolutionStatus:      textOrEmpty(cols[12]),
			SDMEscalation:         textOrEmpty(cols[13]),
			NumberOfUsersAffected: textOrEmpty(cols[14]),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tickets, nil
}

func scanDataset(row pgx.Row) (*domain.Dataset, error) {
	var (
		ds          domain.Dataset
		ticketCount int32
	)
	if err := row.Scan(&ds.ID, &ds.Name, &ds.UploadedBy, &ds.UploadedAt, &ticketCount); err != nil {
		return nil, err
	}
	ds.UploadedAt = ds.UploadedAt.UTC()
	ds.TicketCount = int(ticketCount)
	return &ds, nil
}

func ticketRow(datasetID uuid.UUID, position int, t domain.TicketRecord) []any {
	return []any{
		datasetID,
		int32(position),
		toText(t.TicketID),
		toText(t.Subject),
		toText(t.Status),
		toText(t.Priority),
		toText(t.Type),
		toText(t.CompanyName),
		toText(t.SDM),
		toText(t.Agent),
		toText(t.CreatedTime),
		toText(t.ResolvedTime),
		toText(t.DueByTime),
		toText(t.ResolutionTimeHrs),
		toText(t.ResolutionStatus),
		toText(t.SDMEscalation),
		toText(t.NumberOfUsersAffected),
	}
}
