// Package memory keeps datasets and overrides in process memory. It backs
// single-instance deployments and the ticketstats CLI.
package memory

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-analytics/internal/core/errors"
	"github.com/lorrc/service-desk-analytics/internal/core/ports"
)

// Store holds every dataset, its ticket rows and its reviewer overrides.
type Store struct {
	mu        sync.RWMutex
	datasets  map[uuid.UUID]*domain.Dataset
	tickets   map[uuid.UUID][]domain.TicketRecord
	overrides map[uuid.UUID]map[string]*domain.SLAOverride

	// txMu serializes transactions; data access is guarded by mu.
	txMu sync.Mutex
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		datasets:  make(map[uuid.UUID]*domain.Dataset),
		tickets:   make(map[uuid.UUID][]domain.TicketRecord),
		overrides: make(map[uuid.UUID]map[string]*domain.SLAOverride),
	}
}

// Ping always succeeds; it satisfies the readiness check.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Datasets returns the dataset repository view of the store.
func (s *Store) Datasets() *DatasetRepository {
	return &DatasetRepository{s: s}
}

// Overrides returns the override repository view of the store.
func (s *Store) Overrides() *OverrideRepository {
	return &OverrideRepository{s: s}
}

// TransactionManager returns a transaction manager for the store.
func (s *Store) TransactionManager() *TransactionManager {
	return &TransactionManager{s: s}
}

// --- Datasets ---

// DatasetRepository is the in-memory dataset store.
type DatasetRepository struct {
	s *Store
}

var _ ports.DatasetRepository = (*DatasetRepository)(nil)

// Create stores a dataset together with a private copy of its tickets.
func (r *DatasetRepository) Create(ctx context.Context, dataset *domain.Dataset, tickets []domain.TicketRecord) (*domain.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.datasets[dataset.ID]; exists {
		return nil, apperrors.ErrConflict
	}

	stored := *dataset
	stored.TicketCount = len(tickets)
	r.s.datasets[stored.ID] = &stored
	r.s.tickets[stored.ID] = slices.Clone(tickets)

	out := stored
	return &out, nil
}

// GetByID retrieves dataset metadata.
func (r *DatasetRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ds, ok := r.s.datasets[id]
	if !ok {
		return nil, apperrors.ErrDatasetNotFound
	}
	out := *ds
	return &out, nil
}

// List returns datasets newest first.
func (r *DatasetRepository) List(ctx context.Context, params ports.ListDatasetsRepoParams) ([]*domain.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	all := make([]*domain.Dataset, 0, len(r.s.datasets))
	for _, ds := range r.s.datasets {
		out := *ds
		all = append(all, &out)
	}
	r.s.mu.RUnlock()

	slices.SortFunc(all, func(a, b *domain.Dataset) int {
		if c := b.UploadedAt.Compare(a.UploadedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})

	offset := int(max(params.Offset, 0))
	if offset >= len(all) {
		return []*domain.Dataset{}, nil
	}
	end := len(all)
	if params.Limit > 0 {
		end = min(offset+int(params.Limit), len(all))
	}
	return all[offset:end], nil
}

// Delete removes a dataset and its tickets.
func (r *DatasetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.datasets[id]; !ok {
		return apperrors.ErrDatasetNotFound
	}
	delete(r.s.datasets, id)
	delete(r.s.tickets, id)
	return nil
}

// ListTickets returns a copy of the dataset's rows in upload order.
func (r *DatasetRepository) ListTickets(ctx context.Context, id uuid.UUID) ([]domain.TicketRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	tickets, ok := r.s.tickets[id]
	if !ok {
		return nil, apperrors.ErrDatasetNotFound
	}
	return slices.Clone(tickets), nil
}

// --- Overrides ---

// OverrideRepository is the in-memory override store.
type OverrideRepository struct {
	s *Store
}

var _ ports.OverrideRepository = (*OverrideRepository)(nil)

// Upsert records or replaces the decision for one ticket.
func (r *OverrideRepository) Upsert(ctx context.Context, override *domain.SLAOverride) (*domain.SLAOverride, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	byTicket, ok := r.s.overrides[override.DatasetID]
	if !ok {
		byTicket = make(map[string]*domain.SLAOverride)
		r.s.overrides[override.DatasetID] = byTicket
	}
	stored := *override
	byTicket[stored.TicketID] = &stored

	out := stored
	return &out, nil
}

// Delete removes the decision for one ticket.
func (r *OverrideRepository) Delete(ctx context.Context, datasetID uuid.UUID, ticketID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	byTicket := r.s.overrides[datasetID]
	if _, ok := byTicket[ticketID]; !ok {
		return apperrors.ErrOverrideNotFound
	}
	delete(byTicket, ticketID)
	if len(byTicket) == 0 {
		delete(r.s.overrides, datasetID)
	}
	return nil
}

// DeleteByDataset removes every decision recorded for a dataset.
func (r *OverrideRepository) DeleteByDataset(ctx context.Context, datasetID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.overrides, datasetID)
	return nil
}

// ListByDataset returns a dataset's decisions ordered by ticket ID.
func (r *OverrideRepository) ListByDataset(ctx context.Context, datasetID uuid.UUID) ([]*domain.SLAOverride, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	byTicket := r.s.overrides[datasetID]
	out := make([]*domain.SLAOverride, 0, len(byTicket))
	for _, ticketID := range slices.Sorted(maps.Keys(byTicket)) {
		o := *byTicket[ticketID]
		out = append(out, &o)
	}
	return out, nil
}

// --- Transactions ---

// TransactionManager runs operations one at a time and restores the store's
// previous state when the operation fails.
type TransactionManager struct {
	s *Store
}

var _ ports.TransactionManager = (*TransactionManager)(nil)

// WithTransaction executes fn; on error or panic the store is rolled back to
// its state before fn ran.
func (tm *TransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	tm.s.txMu.Lock()
	defer tm.s.txMu.Unlock()

	snap := tm.s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			tm.s.restore(snap)
			panic(p)
		}
		if err != nil {
			tm.s.restore(snap)
		}
	}()

	return fn(ctx)
}

type snapshot struct {
	datasets  map[uuid.UUID]*domain.Dataset
	tickets   map[uuid.UUID][]domain.TicketRecord
	overrides map[uuid.UUID]map[string]*domain.SLAOverride
}

// snapshot copies the top-level maps. Stored values are never mutated in
// place, so sharing them is safe.
func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	overrides := make(map[uuid.UUID]map[string]*domain.SLAOverride, len(s.overrides))
	for id, byTicket := range s.overrides {
		overrides[id] = maps.Clone(byTicket)
	}
	return snapshot{
		datasets:  maps.Clone(s.datasets),
		tickets:   maps.Clone(s.tickets),
		overrides: overrides,
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.datasets = snap.datasets
	s.tickets = snap.tickets
	s.overrides = snap.overrides
}
