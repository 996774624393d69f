package analytics

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
)

// Report period keys accepted by ReportOptions.Period.
const (
	PeriodLast3Months = "last3months"
	PeriodLast6Months = "last6months"
	PeriodLastYear    = "lastyear"
	PeriodAll         = "all"
)

// SLATargetPercent is the compliance level a service review is measured against.
const SLATargetPercent = 90.0

// Card status bands.
const (
	StatusNeutral   = "neutral"
	StatusExcellent = "excellent"
	StatusGood      = "good"
	StatusAttention = "attention"
)

// Recommendation priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

const (
	reportTopCategories = 5
	reportTopAgents     = 5
	reportVolumeMonths  = 3
)

type ReportOptions struct {
	Company string
	SDM     string
	Period  string
}

type ReportTitle struct {
	Company     string    `json:"company"`
	Period      string    `json:"period"`
	GeneratedAt time.Time `json:"generatedAt"`
}

type MetricCard struct {
	Label       string `json:"label"`
	Value       string `json:"value"`
	Status      string `json:"status"`
	Description string `json:"description"`
}

type SLASection struct {
	CompliancePercentage float64 `json:"compliancePercentage"`
	Compliant            int     `json:"compliant"`
	Breached             int     `json:"breached"`
	TargetPercentage     float64 `json:"targetPercentage"`
	Met                  bool    `json:"met"`
	Assessment           string  `json:"assessment"`
}

type VolumeRow struct {
	Month    string `json:"month"`
	Label    string `json:"label"`
	Created  int    `json:"created"`
	Resolved int    `json:"resolved"`
	Net      int    `json:"net"`
}

type CategoryRow struct {
	Type       string  `json:"type"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	Priority   string  `json:"priority"`
}

type AgentRow struct {
	Agent    string  `json:"agent"`
	Resolved int     `json:"resolved"`
	Total    int     `json:"total"`
	Rate     float64 `json:"rate"`
}

type EscalationSection struct {
	Total               int     `json:"total"`
	Rate                float64 `json:"rate"`
	Assessment          string  `json:"assessment"`
	FirstCallResolution float64 `json:"firstCallResolution"`
}

type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// ServiceReport is the structured content of a client service review.
type ServiceReport struct {
	Title           ReportTitle             `json:"title"`
	Summary         string                  `json:"summary"`
	Metrics         domain.DashboardMetrics `json:"metrics"`
	Overview        []MetricCard            `json:"overview"`
	SLA             SLASection              `json:"sla"`
	Volume          []VolumeRow             `json:"volume"`
	Categories      []CategoryRow           `json:"categories"`
	Agents          []AgentRow              `json:"agents"`
	Escalation      EscalationSection       `json:"escalation"`
	Recommendations []Recommendation        `json:"recommendations"`
}

// BuildServiceReport derives the service review from e, which should already be
// narrowed to the report's scope.
func BuildServiceReport(e *Engine, opts ReportOptions) ServiceReport {
	metrics := e.Metrics()
	charts := e.ChartData()
	escalation := buildEscalation(e)

	compliant := lo.CountBy(e.tickets, func(t domain.TicketRecord) bool {
		return e.Evaluate(t).Compliant
	})

	return ServiceReport{
		Title: ReportTitle{
			Company:     companyLabel(opts.Company),
			Period:      PeriodLabel(opts.Period),
			GeneratedAt: e.Now().UTC(),
		},
		Summary:         performanceSummary(metrics),
		Metrics:         metrics,
		Overview:        overviewCards(metrics),
		SLA:             buildSLASection(metrics, compliant, len(e.tickets)-compliant),
		Volume:          buildVolume(charts.TicketVolume),
		Categories:      buildCategories(charts.OpenTicketTypes, metrics.OpenTickets),
		Agents:          buildAgents(e.tickets),
		Escalation:      escalation,
		Recommendations: buildRecommendations(metrics, escalation.Rate),
	}
}

// PeriodLabel renders a period key for display. YYYY-MM keys become "January 2024";
// anything unrecognised reads as all time.
func PeriodLabel(period string) string {
	switch period {
	case PeriodLast3Months:
		return "Last 3 Months"
	case PeriodLast6Months:
		return "Last 6 Months"
	case PeriodLastYear:
		return "Last 12 Months"
	case PeriodAll, "":
		return "All Time"
	}
	if month, err := time.Parse(monthLayout, period); err == nil {
		return month.Format("January 2006")
	}
	return "All Time"
}

func companyLabel(company string) string {
	if !isSet(company) {
		return "All Companies"
	}
	return strings.TrimSpace(company)
}

func overviewCards(m domain.DashboardMetrics) []MetricCard {
	return []MetricCard{
		{
			Label:       "Total Tickets Processed",
			Value:       fmt.Sprintf("%d", m.TotalTickets),
			Status:      StatusNeutral,
			Description: "Total volume handled",
		},
		{
			Label:       "SLA Compliance Rate",
			Value:       fmt.Sprintf("%s%%", formatNumber(m.SLACompliance)),
			Status:      band(m.SLACompliance >= 90, m.SLACompliance >= 70),
			Description: "Within agreed service levels",
		},
		{
			Label:       "Average Resolution Time",
			Value:       fmt.Sprintf("%s hours", formatNumber(m.AvgResolution)),
			Status:      band(m.AvgResolution <= 8, m.AvgResolution <= 24),
			Description: "Mean time to resolution",
		},
		{
			Label:       "Currently Open Tickets",
			Value:       fmt.Sprintf("%d", m.OpenTickets),
			Status:      band(float64(m.OpenTickets) < float64(m.TotalTickets)*0.1, float64(m.OpenTickets) < float64(m.TotalTickets)*0.3),
			Description: "Active tickets requiring attention",
		},
	}
}

func band(excellent, good bool) string {
	switch {
	case excellent:
		return StatusExcellent
	case good:
		return StatusGood
	default:
		return StatusAttention
	}
}

func performanceSummary(m domain.DashboardMetrics) string {
	performance := "below expectations"
	switch {
	case m.SLACompliance >= 90:
		performance = "excellent"
	case m.SLACompliance >= 70:
		performance = "good"
	}
	resolution := "slower than optimal"
	switch {
	case m.AvgResolution <= 8:
		resolution = "fast"
	case m.AvgResolution <= 24:
		resolution = "reasonable"
	}
	return fmt.Sprintf(
		"During this reporting period, service desk performance has been %s with an SLA compliance rate of %s%%. "+
			"Resolution times are %s at an average of %s hours. "+
			"A total of %d tickets were processed, with %d currently remaining open.",
		performance, formatNumber(m.SLACompliance), resolution, formatNumber(m.AvgResolution),
		m.TotalTickets, m.OpenTickets,
	)
}

func buildSLASection(m domain.DashboardMetrics, compliant, breached int) SLASection {
	total := compliant + breached
	var assessment string
	switch {
	case m.SLACompliance >= 90:
		assessment = fmt.Sprintf("Excellent SLA performance with %s%% compliance rate. Out of %d tickets analyzed, %d were resolved within SLA timeframes.",
			formatNumber(m.SLACompliance), total, compliant)
	case m.SLACompliance >= 70:
		assessment = fmt.Sprintf("Good SLA performance at %s%% compliance, though there is room for improvement. %d tickets breached SLA out of %d total tickets.",
			formatNumber(m.SLACompliance), breached, total)
	default:
		assessment = fmt.Sprintf("SLA performance requires immediate attention with %s%% compliance rate. %d tickets breached SLA commitments.",
			formatNumber(m.SLACompliance), breached)
	}
	return SLASection{
		CompliancePercentage: m.SLACompliance,
		Compliant:            compliant,
		Breached:             breached,
		TargetPercentage:     SLATargetPercent,
		Met:                  m.SLACompliance >= SLATargetPercent,
		Assessment:           assessment,
	}
}

func buildVolume(points []domain.VolumePoint) []VolumeRow {
	if len(points) > reportVolumeMonths {
		points = points[len(points)-reportVolumeMonths:]
	}
	return lo.Map(points, func(p domain.VolumePoint, _ int) VolumeRow {
		label := p.Month
		if month, err := time.Parse(monthLayout, p.Month); err == nil {
			label = month.Format("Jan 2006")
		}
		return VolumeRow{
			Month:    p.Month,
			Label:    label,
			Created:  p.Created,
			Resolved: p.Resolved,
			Net:      p.Resolved - p.Created,
		}
	})
}

func buildCategories(types []domain.TypeCount, open int) []CategoryRow {
	if len(types) > reportTopCategories {
		types = types[:reportTopCategories]
	}
	return lo.Map(types, func(tc domain.TypeCount, _ int) CategoryRow {
		var share float64
		if open > 0 {
			share = float64(tc.Count) / float64(open) * 100
		}
		priority := "Low"
		switch {
		case float64(tc.Count) > float64(open)*0.3:
			priority = "High"
		case float64(tc.Count) > float64(open)*0.1:
			priority = "Medium"
		}
		return CategoryRow{
			Type:       tc.Type,
			Count:      tc.Count,
			Percentage: round1(share),
			Priority:   priority,
		}
	})
}

// buildAgents ranks assigned agents by the share of their tickets that are closed.
func buildAgents(tickets []domain.TicketRecord) []AgentRow {
	assigned := lo.Filter(tickets, func(t domain.TicketRecord, _ int) bool {
		agent := strings.TrimSpace(t.Agent)
		return agent != "" && agent != DefaultAgent
	})
	groups := lo.GroupBy(assigned, func(t domain.TicketRecord) string {
		return strings.TrimSpace(t.Agent)
	})

	rows := lo.MapToSlice(groups, func(agent string, list []domain.TicketRecord) AgentRow {
		resolved := lo.CountBy(list, func(t domain.TicketRecord) bool { return t.IsClosed() })
		return AgentRow{
			Agent:    agent,
			Resolved: resolved,
			Total:    len(list),
			Rate:     round1(float64(resolved) / float64(len(list)) * 100),
		}
	})
	slices.SortFunc(rows, func(a, b AgentRow) int {
		if c := cmp.Compare(b.Rate, a.Rate); c != 0 {
			return c
		}
		return cmp.Compare(a.Agent, b.Agent)
	})
	if len(rows) > reportTopAgents {
		rows = rows[:reportTopAgents]
	}
	return rows
}

func buildEscalation(e *Engine) EscalationSection {
	total := lo.CountBy(e.tickets, func(t domain.TicketRecord) bool { return t.IsEscalated() })

	var rate float64
	if len(e.tickets) > 0 {
		rate = round1(float64(total) / float64(len(e.tickets)) * 100)
	}

	assessment := "High"
	switch {
	case rate < 5:
		assessment = "Low"
	case rate < 15:
		assessment = "Moderate"
	}

	return EscalationSection{
		Total:               total,
		Rate:                rate,
		Assessment:          assessment,
		FirstCallResolution: round1(100 - rate),
	}
}

func buildRecommendations(m domain.DashboardMetrics, escalationRate float64) []Recommendation {
	var recs []Recommendation

	if m.SLACompliance < SLATargetPercent {
		recs = append(recs, Recommendation{
			Title: "Improve SLA Compliance",
			Description: fmt.Sprintf("Current compliance rate of %s%% is below target. Implement process optimization and resource reallocation to achieve 90%%+ compliance.",
				formatNumber(m.SLACompliance)),
			Priority: lo.Ternary(m.SLACompliance < 70, PriorityHigh, PriorityMedium),
		})
	}

	if m.AvgResolution > 24 {
		recs = append(recs, Recommendation{
			Title: "Reduce Resolution Times",
			Description: fmt.Sprintf("Average resolution time of %s hours exceeds best practices. Consider additional training, automation, or process improvements.",
				formatNumber(m.AvgResolution)),
			Priority: PriorityHigh,
		})
	}

	if escalationRate > 15 {
		recs = append(recs, Recommendation{
			Title: "Reduce Escalation Rate",
			Description: fmt.Sprintf("High escalation rate of %.1f%% indicates potential first-line resolution challenges. Review knowledge base and agent training.",
				escalationRate),
			Priority: PriorityMedium,
		})
	}

	if float64(m.OpenTickets) > float64(m.TotalTickets)*0.3 {
		recs = append(recs, Recommendation{
			Title: "Address Open Ticket Backlog",
			Description: fmt.Sprintf("High number of open tickets (%d) may impact service quality. Consider temporary resource increase or backlog clearing initiative.",
				m.OpenTickets),
			Priority: PriorityHigh,
		})
	}

	return append(recs, Recommendation{
		Title:       "Continuous Service Improvement",
		Description: "Maintain regular service reviews, customer feedback collection, and process optimization initiatives to ensure sustained performance improvement.",
		Priority:    PriorityLow,
	})
}

// formatNumber prints a one-decimal metric without a trailing ".0".
func formatNumber(v float64) string {
	s := fmt.Sprintf("%.1f", v)
	return strings.TrimSuffix(s, ".0")
}
