package domain

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SLAOverrides maps ticket identifiers to a reviewer's "is breached" decision.
// A present entry wins over every other signal for that ticket.
type SLAOverrides map[string]bool

// Lookup returns the override for a ticket, if any.
func (o SLAOverrides) Lookup(ticketID string) (breached bool, ok bool) {
	if o == nil {
		return false, false
	}
	breached, ok = o[ticketID]
	return breached, ok
}

// SLAOverride is a persisted reviewer decision.
type SLAOverride struct {
	DatasetID uuid.UUID
	TicketID  string
	Breached  bool
	UpdatedBy string
	UpdatedAt time.Time
}

// SLASource names the tier that decided a ticket's compliance.
type SLASource string

const (
	SLASourceOverride SLASource = "override"
	SLASourceStatus   SLASource = "status"
	SLASourceInferred SLASource = "inferred"
)

// SLAEvaluation is the outcome of EvaluateSLA for a single ticket.
type SLAEvaluation struct {
	Compliant bool
	Source    SLASource
}

// Breached is the inverse of Compliant.
func (e SLAEvaluation) Breached() bool {
	return !e.Compliant
}

// EvaluateSLA decides whether a ticket met its SLA.
//
// Overrides take precedence, then the recognised resolution status literals. A ticket
// without a resolution status is compliant while pending, otherwise while its due-by
// time is after now. A missing or unparseable due-by counts as not yet due.
func EvaluateSLA(t TicketRecord, overrides SLAOverrides, now time.Time) SLAEvaluation {
	if breached, ok := overrides.Lookup(t.TicketID); ok {
		return SLAEvaluation{Compliant: !breached, Source: SLASourceOverride}
	}

	switch t.ResolutionStatus {
	case ResolutionWithinSLA:
		return SLAEvaluation{Compliant: true, Source: SLASourceStatus}
	case ResolutionSLAViolated:
		return SLAEvaluation{Compliant: false, Source: SLASourceStatus}
	}

	if t.IsPending() {
		return SLAEvaluation{Compliant: true, Source: SLASourceInferred}
	}

	due, ok := t.DueBy()
	if !ok {
		return SLAEvaluation{Compliant: true, Source: SLASourceInferred}
	}
	return SLAEvaluation{Compliant: due.After(now), Source: SLASourceInferred}
}

// SLATargetHours returns the contractual resolution window for a priority.
func SLATargetHours(priority string) int {
	switch strings.ToLower(strings.TrimSpace(priority)) {
	case "urgent":
		return 4
	case "high":
		return 8
	case "medium":
		return 24
	case "low":
		return 72
	default:
		return 24
	}
}

// ElapsedHours returns whole hours from creation to resolution, or to now for
// tickets that are still open. Unknown creation time yields 0.
func ElapsedHours(t TicketRecord, now time.Time) int {
	created, ok := t.Created()
	if !ok {
		return 0
	}
	if resolved, ok := t.Resolved(); ok {
		return int(math.Round(resolved.Sub(created).Hours()))
	}
	if t.IsOpen() {
		return int(math.Round(now.Sub(created).Hours()))
	}
	return 0
}
