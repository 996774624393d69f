package csvimport

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/samber/lo"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-analytics/internal/core/errors"
	"github.com/lorrc/service-desk-analytics/internal/core/ports"
)

const utf8BOM = "\ufeff"

// field is a TicketRecord column the parser knows how to fill.
type field int

const (
	fieldTicketID field = iota
	fieldSubject
	fieldStatus
	fieldPriority
	fieldType
	fieldCompanyName
	fieldSDM
	fieldAgent
	fieldCreatedTime
	fieldResolvedTime
	fieldDueByTime
	fieldResolutionTimeHrs
	fieldResolutionStatus
	fieldSDMEscalation
	fieldUsersAffected
)

// columnNames is the display name of each field, used in error messages.
var columnNames = map[field]string{
	fieldTicketID:          "Ticket ID",
	fieldSubject:           "Subject",
	fieldStatus:            "Status",
	fieldPriority:          "Priority",
	fieldType:              "Type",
	fieldCompanyName:       "Company Name",
	fieldSDM:               "SDM",
	fieldAgent:             "Agent",
	fieldCreatedTime:       "Created Time",
	fieldResolvedTime:      "Resolved Time",
	fieldDueByTime:         "Due by Time",
	fieldResolutionTimeHrs: "Resolution Time (Hrs)",
	fieldResolutionStatus:  "Resolution Status",
	fieldSDMEscalation:     "SDM Escalation",
	fieldUsersAffected:     "Number of Users Affected",
}

// aliases maps normalized header text to a field.
var aliases = map[string]field{
	"ticketid":              fieldTicketID,
	"id":                    fieldTicketID,
	"ticketnumber":          fieldTicketID,
	"subject":               fieldSubject,
	"title":                 fieldSubject,
	"status":                fieldStatus,
	"priority":              fieldPriority,
	"type":                  fieldType,
	"tickettype":            fieldType,
	"companyname":           fieldCompanyName,
	"company":               fieldCompanyName,
	"sdm":                   fieldSDM,
	"agent":                 fieldAgent,
	"assignedagent":         fieldAgent,
	"createdtime":           fieldCreatedTime,
	"created":               fieldCreatedTime,
	"createdat":             fieldCreatedTime,
	"resolvedtime":          fieldResolvedTime,
	"resolved":              fieldResolvedTime,
	"resolvedat":            fieldResolvedTime,
	"duebytime":             fieldDueByTime,
	"dueby":                 fieldDueByTime,
	"duedate":               fieldDueByTime,
	"resolutiontimehrs":     fieldResolutionTimeHrs,
	"resolutiontimeinhrs":   fieldResolutionTimeHrs,
	"resolutiontime":        fieldResolutionTimeHrs,
	"resolutionstatus":      fieldResolutionStatus,
	"sdmescalation":         fieldSDMEscalation,
	"escalated":             fieldSDMEscalation,
	"numberofusersaffected": fieldUsersAffected,
	"usersaffected":         fieldUsersAffected,
}

// requiredFields must be present in every export.
var requiredFields = []field{fieldTicketID, fieldStatus, fieldCreatedTime}

// Parser reads service-desk CSV exports into ticket records.
type Parser struct{}

var _ ports.TicketParser = (*Parser)(nil)

// NewParser creates a new CSV ticket parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads a header row followed by one ticket per row. Headers are matched
// case-insensitively ignoring spaces and punctuation; unknown columns are skipped.
func (p *Parser) Parse(ctx context.Context, r io.Reader) ([]domain.TicketRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperrors.ErrEmptyUpload
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidCSV, err)
	}

	columns, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var tickets []domain.TicketRecord
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidCSV, err)
		}
		if isBlank(row) {
			continue
		}
		tickets = append(tickets, toRecord(row, columns))
	}

	return tickets, nil
}

// mapHeader returns the column index for each recognised field. The first
// matching column wins when an export repeats a header.
func mapHeader(header []string) (map[field]int, error) {
	columns := make(map[field]int, len(columnNames))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		f, ok := aliases[normalize(name)]
		if !ok {
			continue
		}
		if _, seen := columns[f]; !seen {
			columns[f] = i
		}
	}

	missing := lo.FilterMap(requiredFields, func(f field, _ int) (string, bool) {
		_, ok := columns[f]
		return columnNames[f], !ok
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrMissingColumns, strings.Join(missing, ", "))
	}
	return columns, nil
}

func toRecord(row []string, columns map[field]int) domain.TicketRecord {
	cell := func(f field) string {
		i, ok := columns[f]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	return domain.TicketRecord{
		TicketID:              cell(fieldTicketID),
		Subject:               cell(fieldSubject),
		Status:                cell(fieldStatus),
		Priority:              cell(fieldPriority),
		Type:                  cell(fieldType),
		CompanyName:           cell(fieldCompanyName),
		SDM:                   cell(fieldSDM),
		Agent:                 cell(fieldAgent),
		CreatedTime:           cell(fieldCreatedTime),
		ResolvedTime:          cell(fieldResolvedTime),
		DueByTime:             cell(fieldDueByTime),
		ResolutionTimeHrs:     cell(fieldResolutionTimeHrs),
		ResolutionStatus:      cell(fieldResolutionStatus),
		SDMEscalation:         cell(fieldSDMEscalation),
		NumberOfUsersAffected: cell(fieldUsersAffected),
	}
}

// normalize lower-cases a header and drops everything but letters and digits.
func normalize(header string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(header) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isBlank(row []string) bool {
	return lo.EveryBy(row, func(cell string) bool {
		return strings.TrimSpace(cell) == ""
	})
}
