package analytics

import (
	"cmp"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
)

// ChartMonths is the fixed length of the monthly volume series.
const ChartMonths = 7

const monthLayout = "2006-01"

// ChartData builds the monthly volume and open-type breakdown series.
func (e *Engine) ChartData() domain.ChartData {
	return domain.ChartData{
		TicketVolume:    e.volumeSeries(),
		OpenTicketTypes: e.openTypeBreakdown(),
	}
}

// volumeSeries counts created and resolved tickets per calendar month. When the
// original universe reaches back more than a year, only the trailing twelve
// months are bucketed. The result always holds the ChartMonths contiguous months
// ending with the current month, zero-filled.
func (e *Engine) volumeSeries() []domain.VolumePoint {
	now := e.now().UTC()
	cutoff := now.AddDate(-1, 0, 0)
	lookback := lo.SomeBy(e.original, func(t domain.TicketRecord) bool {
		created, ok := t.Created()
		return ok && created.Before(cutoff)
	})

	bucket := func(ts time.Time, ok bool) (string, bool) {
		if !ok || (lookback && ts.Before(cutoff)) {
			return "", false
		}
		return ts.UTC().Format(monthLayout), true
	}

	created := lo.CountValues(lo.FilterMap(e.tickets, func(t domain.TicketRecord, _ int) (string, bool) {
		return bucket(t.Created())
	}))
	resolved := lo.CountValues(lo.FilterMap(e.tickets, func(t domain.TicketRecord, _ int) (string, bool) {
		return bucket(t.Resolved())
	}))

	// Buckets outside the trailing window, including timestamps after now, are dropped.
	return lo.Map(trailingMonths(now, ChartMonths), func(month string, _ int) domain.VolumePoint {
		return domain.VolumePoint{
			Month:    month,
			Created:  created[month],
			Resolved: resolved[month],
		}
	})
}

// openTypeBreakdown counts open tickets per type, largest first. Ties are
// ordered by type name.
func (e *Engine) openTypeBreakdown() []domain.TypeCount {
	open := lo.Filter(e.tickets, func(t domain.TicketRecord, _ int) bool {
		return t.IsOpen()
	})
	counts := lo.CountValuesBy(open, func(t domain.TicketRecord) string {
		return t.TypeOrUnknown()
	})

	out := lo.MapToSlice(counts, func(typ string, n int) domain.TypeCount {
		return domain.TypeCount{Type: typ, Count: n}
	})
	slices.SortFunc(out, func(a, b domain.TypeCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Type, b.Type)
	})
	return out
}

// trailingMonths returns the n month keys ending with the month of now, oldest first.
func trailingMonths(now time.Time, n int) []string {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	months := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		months = append(months, first.AddDate(0, -i, 0).Format(monthLayout))
	}
	return months
}
