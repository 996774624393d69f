package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Status values with structural meaning. Any other status is treated as open.
const (
	StatusResolved     = "Resolved"
	StatusClosed       = "Closed"
	StatusPending      = "Pending"
	StatusPendingClose = "Pending - Close"
)

// Priority values treated as elevated.
const (
	PriorityUrgent = "Urgent"
	PriorityHigh   = "High"
)

// Resolution status literals recognised by the SLA decision procedure.
const (
	ResolutionWithinSLA   = "Within SLA"
	ResolutionSLAViolated = "SLA Violated"
)

// UnknownType is the bucket for tickets without a type.
const UnknownType = "Unknown"

// TicketRecord is one row of an uploaded service-desk export. Fields hold the raw
// values produced by the CSV import; malformed values arrive blank.
type TicketRecord struct {
	TicketID              string `json:"ticketId"`
	Subject               string `json:"subject"`
	Status                string `json:"status"`
	Priority              string `json:"priority"`
	Type                  string `json:"type"`
	CompanyName           string `json:"companyName"`
	SDM                   string `json:"sdm"`
	Agent                 string `json:"agent"`
	CreatedTime           string `json:"createdTime"`
	ResolvedTime          string `json:"resolvedTime"`
	DueByTime             string `json:"dueByTime"`
	ResolutionTimeHrs     string `json:"resolutionTimeHrs"`
	ResolutionStatus      string `json:"resolutionStatus"`
	SDMEscalation         string `json:"sdmEscalation"`
	NumberOfUsersAffected string `json:"numberOfUsersAffected"`
}

// IsClosed reports whether the ticket is in a terminal status.
func (t TicketRecord) IsClosed() bool {
	return t.Status == StatusResolved || t.Status == StatusClosed
}

// IsOpen reports whether the ticket is still active.
func (t TicketRecord) IsOpen() bool {
	return !t.IsClosed()
}

// IsPending reports whether the ticket is in a provisionally safe status.
func (t TicketRecord) IsPending() bool {
	return t.Status == StatusPending || t.Status == StatusPendingClose
}

func (t TicketRecord) IsElevatedPriority() bool {
	return t.Priority == PriorityUrgent || t.Priority == PriorityHigh
}

// IsEscalated reports whether the SDM escalation flag is set.
func (t TicketRecord) IsEscalated() bool {
	switch strings.ToLower(strings.TrimSpace(t.SDMEscalation)) {
	case "true", "yes", "y", "1":
		return true
	default:
		return false
	}
}

// TypeOrUnknown returns the trimmed ticket type, or UnknownType when blank.
func (t TicketRecord) TypeOrUnknown() string {
	if v := strings.TrimSpace(t.Type); v != "" {
		return v
	}
	return UnknownType
}

// UsersAffected returns the leading integer of the affected-user count, or 0.
func (t TicketRecord) UsersAffected() int {
	m := leadingInt.FindString(strings.TrimSpace(t.NumberOfUsersAffected))
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// ResolutionHours returns the numeric portion before the first colon of the
// resolution time field. Unparseable values yield 0.
func (t TicketRecord) ResolutionHours() float64 {
	head, _, _ := strings.Cut(t.ResolutionTimeHrs, ":")
	m := leadingFloat.FindString(strings.TrimSpace(head))
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return f
}

// Created returns the parsed created timestamp.
func (t TicketRecord) Created() (time.Time, bool) {
	return ParseTimestamp(t.CreatedTime)
}

// Resolved returns the parsed resolved timestamp.
func (t TicketRecord) Resolved() (time.Time, bool) {
	return ParseTimestamp(t.ResolvedTime)
}

// DueBy returns the parsed due-by timestamp.
func (t TicketRecord) DueBy() (time.Time, bool) {
	return ParseTimestamp(t.DueByTime)
}

var (
	leadingInt   = regexp.MustCompile(`^[-+]?\d+`)
	leadingFloat = regexp.MustCompile(`^[-+]?(\d+(\.\d*)?|\.\d+)([eE][-+]?\d+)?`)
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
}

// ParseTimestamp parses an export timestamp. Values without a zone are read as UTC.
// The boolean is false for blank or unrecognised input.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(value string) (time.Time, bool) {
	ts, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
