// Package analytics turns a list of ticket records into dashboard metrics,
// chart series and SLA breakdowns. Engines are immutable: Filter returns a new
// engine and no query mutates state, so derived engines may be read concurrently.
package analytics

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
)

// Engine answers aggregation queries over an active ticket list.
type Engine struct {
	tickets   []domain.TicketRecord
	original  []domain.TicketRecord
	overrides domain.SLAOverrides
	now       func() time.Time
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithOverrides sets the SLA override table. The table is copied.
func WithOverrides(overrides domain.SLAOverrides) Option {
	return func(e *Engine) {
		e.overrides = make(domain.SLAOverrides, len(overrides))
		for id, breached := range overrides {
			e.overrides[id] = breached
		}
	}
}

// WithOriginal sets the unfiltered universe used by distinct-value queries and
// the chart lookback decision.
func WithOriginal(original []domain.TicketRecord) Option {
	return func(e *Engine) {
		e.original = slices.Clone(original)
	}
}

// WithClock sets the time source used for SLA inference and chart anchoring.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New builds an engine over tickets. Without options there are no overrides, the
// original universe is tickets itself and the clock is time.Now.
func New(tickets []domain.TicketRecord, opts ...Option) *Engine {
	e := &Engine{
		tickets:   slices.Clone(tickets),
		overrides: domain.SLAOverrides{},
		now:       time.Now,
	}
	if e.tickets == nil {
		e.tickets = []domain.TicketRecord{}
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.original == nil {
		e.original = e.tickets
	}
	return e
}

// Tickets returns a copy of the active ticket list.
func (e *Engine) Tickets() []domain.TicketRecord {
	return slices.Clone(e.tickets)
}

func (e *Engine) Len() int {
	return len(e.tickets)
}

// Now returns the engine's evaluation time.
func (e *Engine) Now() time.Time {
	return e.now()
}

// Evaluate runs the SLA decision procedure for one ticket with this engine's
// overrides and clock.
func (e *Engine) Evaluate(t domain.TicketRecord) domain.SLAEvaluation {
	return domain.EvaluateSLA(t, e.overrides, e.now())
}

// IsOverridden reports whether a reviewer decision exists for the ticket.
func (e *Engine) IsOverridden(ticketID string) bool {
	_, ok := e.overrides.Lookup(ticketID)
	return ok
}

// Metrics computes the headline KPIs for the active list.
func (e *Engine) Metrics() domain.DashboardMetrics {
	closed := lo.Filter(e.tickets, func(t domain.TicketRecord, _ int) bool {
		return t.IsClosed()
	})

	var avg float64
	if len(closed) > 0 {
		sum := lo.SumBy(closed, func(t domain.TicketRecord) float64 {
			return t.ResolutionHours()
		})
		avg = sum / float64(len(closed))
	}

	return domain.DashboardMetrics{
		TotalTickets:  len(e.tickets),
		OpenTickets:   len(e.tickets) - len(closed),
		ClosedTickets: len(closed),
		AvgResolution: round1(avg),
		SLACompliance: round1(e.SLACompliance()),
	}
}

// SLACompliance returns the unrounded percentage of compliant active tickets,
// or 0 for an empty list.
func (e *Engine) SLACompliance() float64 {
	if len(e.tickets) == 0 {
		return 0
	}
	now := e.now()
	compliant := lo.CountBy(e.tickets, func(t domain.TicketRecord) bool {
		return domain.EvaluateSLA(t, e.overrides, now).Compliant
	})
	return float64(compliant) / float64(len(e.tickets)) * 100
}

// EscalatedTickets returns every escalated active ticket, newest first.
func (e *Engine) EscalatedTickets() []domain.EscalatedTicket {
	escalated := lo.Filter(e.tickets, func(t domain.TicketRecord, _ int) bool {
		return t.IsEscalated()
	})
	return lo.Map(newestFirst(escalated), func(t domain.TicketRecord, _ int) domain.EscalatedTicket {
		return domain.EscalatedTicket{
			TicketID:      t.TicketID,
			Subject:       t.Subject,
			Priority:      t.Priority,
			CompanyName:   t.CompanyName,
			CreatedTime:   t.CreatedTime,
			Status:        t.Status,
			UsersAffected: t.UsersAffected(),
		}
	})
}

// MaxRecentPriorityTickets caps RecentPriorityTickets.
const MaxRecentPriorityTickets = 10

// RecentPriorityTickets returns the newest Urgent and High tickets.
func (e *Engine) RecentPriorityTickets() []domain.RecentTicket {
	elevated := lo.Filter(e.tickets, func(t domain.TicketRecord, _ int) bool {
		return t.IsElevatedPriority()
	})
	sorted := newestFirst(elevated)
	if len(sorted) > MaxRecentPriorityTickets {
		sorted = sorted[:MaxRecentPriorityTickets]
	}
	return lo.Map(sorted, func(t domain.TicketRecord, _ int) domain.RecentTicket {
		return domain.RecentTicket{
			TicketID:    t.TicketID,
			Subject:     t.Subject,
			Priority:    t.Priority,
			CompanyName: t.CompanyName,
			CreatedTime: t.CreatedTime,
			Status:      t.Status,
			Agent:       t.Agent,
		}
	})
}

// UniqueSDMs lists the distinct SDM names of the unfiltered universe.
func (e *Engine) UniqueSDMs() []string {
	return distinct(e.original, func(t domain.TicketRecord) string { return t.SDM })
}

// UniqueCompanies lists the distinct company names of the unfiltered universe.
func (e *Engine) UniqueCompanies() []string {
	return distinct(e.original, func(t domain.TicketRecord) string { return t.CompanyName })
}

func distinct(tickets []domain.TicketRecord, field func(domain.TicketRecord) string) []string {
	values := lo.FilterMap(tickets, func(t domain.TicketRecord, _ int) (string, bool) {
		v := strings.TrimSpace(field(t))
		return v, v != ""
	})
	values = lo.Uniq(values)
	slices.Sort(values)
	return values
}

// newestFirst returns a copy sorted by created time descending. Tickets with an
// unparseable created time keep their relative order after all dated tickets.
func newestFirst(tickets []domain.TicketRecord) []domain.TicketRecord {
	sorted := slices.Clone(tickets)
	slices.SortStableFunc(sorted, compareNewest)
	return sorted
}

func compareNewest(a, b domain.TicketRecord) int {
	at, aok := a.Created()
	bt, bok := b.Created()
	switch {
	case aok && bok:
		return bt.Compare(at)
	case aok:
		return -1
	case bok:
		return 1
	default:
		return 0
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
