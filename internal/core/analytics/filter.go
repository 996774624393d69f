package analytics

import (
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
)

// AllValues is the dropdown sentinel meaning "no filter".
const AllValues = "all"

// Criteria narrows an engine. Empty or "all" dimension values and nil dates
// leave that dimension unfiltered. Date bounds are inclusive calendar days (UTC).
type Criteria struct {
	SDM      string
	Company  string
	DateFrom *time.Time
	DateTo   *time.Time
}

// Active reports whether any criterion narrows the list.
func (c Criteria) Active() bool {
	return isSet(c.SDM) || isSet(c.Company) || c.DateFrom != nil || c.DateTo != nil
}

// WithoutDates returns a copy of the criteria with both date bounds cleared.
func (c Criteria) WithoutDates() Criteria {
	c.DateFrom = nil
	c.DateTo = nil
	return c
}

func isSet(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != AllValues
}

// Filter returns a new engine over the tickets matching c. The override table,
// original universe and clock carry over unchanged.
func (e *Engine) Filter(c Criteria) *Engine {
	tickets := e.tickets

	if isSet(c.SDM) {
		want := strings.TrimSpace(c.SDM)
		tickets = lo.Filter(tickets, func(t domain.TicketRecord, _ int) bool {
			return strings.TrimSpace(t.SDM) == want
		})
	}

	if isSet(c.Company) {
		want := strings.TrimSpace(c.Company)
		tickets = lo.Filter(tickets, func(t domain.TicketRecord, _ int) bool {
			return strings.TrimSpace(t.CompanyName) == want
		})
	}

	if c.DateFrom != nil || c.DateTo != nil {
		var from, until time.Time
		if c.DateFrom != nil {
			from = startOfDay(*c.DateFrom)
		}
		if c.DateTo != nil {
			until = startOfDay(*c.DateTo).AddDate(0, 0, 1)
		}
		tickets = lo.Filter(tickets, func(t domain.TicketRecord, _ int) bool {
			created, ok := t.Created()
			if !ok {
				return false
			}
			if c.DateFrom != nil && created.Before(from) {
				return false
			}
			if c.DateTo != nil && !created.Before(until) {
				return false
			}
			return true
		})
	}

	return &Engine{
		tickets:   tickets,
		original:  e.original,
		overrides: e.overrides,
		now:       e.now,
	}
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
