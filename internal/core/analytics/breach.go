package analytics

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
)

// Display defaults for blank fields in the breach listing.
const (
	DefaultSubject  = "No Subject"
	DefaultCompany  = "Unknown"
	DefaultAgent    = "Unassigned"
	DefaultPriority = "Medium"
	DefaultStatus   = "Open"
)

// BreachTicket is one row of the SLA compliance listing.
type BreachTicket struct {
	TicketID     string           `json:"ticketId"`
	Subject      string           `json:"subject"`
	CompanyName  string           `json:"companyName"`
	Agent        string           `json:"agent"`
	Priority     string           `json:"priority"`
	Status       string           `json:"status"`
	CreatedTime  string           `json:"createdTime"`
	ResolvedTime string           `json:"resolvedTime"`
	SLAHours     int              `json:"slaHours"`
	ActualHours  int              `json:"actualHours"`
	Breached     bool             `json:"breached"`
	Overridden   bool             `json:"overridden"`
	Source       domain.SLASource `json:"source"`
}

// AgentBreachSummary counts breaches for one agent.
type AgentBreachSummary struct {
	Agent      string `json:"agent"`
	Breached   int    `json:"breached"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
}

// BreachReport is the SLA compliance drill-down for a filtered view.
type BreachReport struct {
	CompliancePercentage float64              `json:"compliancePercentage"`
	TotalTickets         int                  `json:"totalTickets"`
	BreachedTickets      int                  `json:"breachedTickets"`
	Agent                string               `json:"agent,omitempty"`
	Tickets              []BreachTicket       `json:"tickets"`
	Agents               []AgentBreachSummary `json:"agents"`
}

// BuildBreachReport evaluates every active ticket of e. When agent is set, the
// ticket rows are narrowed to that agent's breaches; the summaries are not.
func BuildBreachReport(e *Engine, agent string) BreachReport {
	now := e.Now()

	type evaluated struct {
		ticket domain.TicketRecord
		row    BreachTicket
	}

	items := lo.Map(e.tickets, func(t domain.TicketRecord, _ int) evaluated {
		eval := e.Evaluate(t)
		return evaluated{ticket: t, row: BreachTicket{
			TicketID:     t.TicketID,
			Subject:      orDefault(t.Subject, DefaultSubject),
			CompanyName:  orDefault(t.CompanyName, DefaultCompany),
			Agent:        orDefault(t.Agent, DefaultAgent),
			Priority:     orDefault(t.Priority, DefaultPriority),
			Status:       orDefault(t.Status, DefaultStatus),
			CreatedTime:  t.CreatedTime,
			ResolvedTime: t.ResolvedTime,
			SLAHours:     domain.SLATargetHours(t.Priority),
			ActualHours:  domain.ElapsedHours(t, now),
			Breached:     eval.Breached(),
			Overridden:   eval.Source == domain.SLASourceOverride,
			Source:       eval.Source,
		}}
	})

	// Breached first, then newest first.
	slices.SortStableFunc(items, func(a, b evaluated) int {
		if a.row.Breached != b.row.Breached {
			if a.row.Breached {
				return -1
			}
			return 1
		}
		return compareNewest(a.ticket, b.ticket)
	})
	rows := lo.Map(items, func(it evaluated, _ int) BreachTicket { return it.row })

	report := BreachReport{
		CompliancePercentage: round1(e.SLACompliance()),
		TotalTickets:         len(rows),
		BreachedTickets:      lo.CountBy(rows, func(r BreachTicket) bool { return r.Breached }),
		Tickets:              rows,
		Agents:               summarizeAgents(rows),
	}

	if agent = strings.TrimSpace(agent); agent != "" {
		report.Agent = agent
		report.Tickets = lo.Filter(rows, func(r BreachTicket, _ int) bool {
			return r.Breached && r.Agent == agent
		})
	}
	return report
}

// summarizeAgents reports agents with at least one breach, most breaches first.
func summarizeAgents(rows []BreachTicket) []AgentBreachSummary {
	groups := lo.GroupBy(rows, func(r BreachTicket) string { return r.Agent })

	summaries := lo.FilterMap(lo.Entries(groups), func(entry lo.Entry[string, []BreachTicket], _ int) (AgentBreachSummary, bool) {
		breached := lo.CountBy(entry.Value, func(r BreachTicket) bool { return r.Breached })
		if breached == 0 {
			return AgentBreachSummary{}, false
		}
		return AgentBreachSummary{
			Agent:      entry.Key,
			Breached:   breached,
			Total:      len(entry.Value),
			Percentage: int(math.Round(float64(breached) / float64(len(entry.Value)) * 100)),
		}, true
	})

	slices.SortFunc(summaries, func(a, b AgentBreachSummary) int {
		if c := cmp.Compare(b.Breached, a.Breached); c != 0 {
			return c
		}
		return cmp.Compare(a.Agent, b.Agent)
	})
	return summaries
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
