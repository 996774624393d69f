package domain

// DashboardMetrics holds the headline KPI values for a set of tickets.
type DashboardMetrics struct {
	TotalTickets  int     `json:"totalTickets"`
	OpenTickets   int     `json:"openTickets"`
	ClosedTickets int     `json:"closedTickets"`
	AvgResolution float64 `json:"avgResolution"`
	SLACompliance float64 `json:"slaCompliance"`
}

type EscalatedTicket struct {
	TicketID      string `json:"ticketId"`
	Subject       string `json:"subject"`
	Priority      string `json:"priority"`
	CompanyName   string `json:"companyName"`
	CreatedTime   string `json:"createdTime"`
	Status        string `json:"status"`
	UsersAffected int    `json:"usersAffected"`
}

type RecentTicket struct {
	TicketID    string `json:"ticketId"`
	Subject     string `json:"subject"`
	Priority    string `json:"priority"`
	CompanyName string `json:"companyName"`
	CreatedTime string `json:"createdTime"`
	Status      string `json:"status"`
	Agent       string `json:"agent"`
}

// VolumePoint is one month of the created-vs-resolved series. Month is YYYY-MM.
type VolumePoint struct {
	Month    string `json:"month"`
	Created  int    `json:"created"`
	Resolved int    `json:"resolved"`
}

type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// ChartData holds both dashboard chart series.
type ChartData struct {
	TicketVolume    []VolumePoint `json:"ticketVolumeData"`
	OpenTicketTypes []TypeCount   `json:"openTicketTypeData"`
}

// Dashboard is everything the UI needs to paint one filtered view.
type Dashboard struct {
	Metrics               DashboardMetrics  `json:"metrics"`
	EscalatedTickets      []EscalatedTicket `json:"escalatedTickets"`
	RecentPriorityTickets []RecentTicket    `json:"recentPriorityTickets"`
	Charts                ChartData         `json:"charts"`
	SDMs                  []string          `json:"sdms"`
	Companies             []string          `json:"companies"`
}
