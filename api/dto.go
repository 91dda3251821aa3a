/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain model in package inquiry from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Request types carry `validate` struct tags checked by
  go-playground/validator in the handlers. Domain checks (status values,
  supported years) stay in the domain packages.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"strings"
	"time"

	"github.com/warp/inquiry-desk/desk"
	"github.com/warp/inquiry-desk/inquiry"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	ID       string `json:"id" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// PasswordRequest is the body of POST /api/password.
type PasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// SaveRecordsRequest is the edited view submitted for reconciliation.
type SaveRecordsRequest struct {
	Records []RecordDTO `json:"records" validate:"required,dive"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// LoginResponse carries the session token.
type LoginResponse struct {
	Token     string `json:"token"`
	Identity  string `json:"identity"`
	Role      string `json:"role"`
	RoleLabel string `json:"role_label"`
}

// RecordDTO is one customer inquiry. Status accepts the stored value or the
// Korean label on input and is always the stored value on output.
type RecordDTO struct {
	Owner       string `json:"owner"`
	Name        string `json:"name" validate:"required"`
	Phone       string `json:"phone" validate:"required"`
	Gender      string `json:"gender"`
	Inquiry     string `json:"inquiry"`
	Status      string `json:"status" validate:"required"`
	StatusLabel string `json:"status_label,omitempty"`
	Note        string `json:"note"`
	UpdatedAt   string `json:"updated_at"`
}

// SummaryDTO counts the visible records.
type SummaryDTO struct {
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"by_status"`
	CompletionRate string         `json:"completion_rate"`
}

// ViewResponse is the scoped, filtered view of a period.
type ViewResponse struct {
	PeriodID string      `json:"period_id"`
	Label    string      `json:"label"`
	Exists   bool        `json:"exists"`
	Status   string      `json:"status"`
	Records  []RecordDTO `json:"records"`
	Summary  SummaryDTO  `json:"summary"`
}

// KeyDTO identifies a record by its natural key.
type KeyDTO struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// OutcomeDTO is the reconciliation result for one submitted row.
type OutcomeDTO struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Result string `json:"result"`
}

// SaveResponse reports a reconciliation.
type SaveResponse struct {
	Changed   int          `json:"changed"`
	Unchanged int          `json:"unchanged"`
	Unmatched []KeyDTO     `json:"unmatched"`
	Outcomes  []OutcomeDTO `json:"outcomes"`
}

// ImportResponse reports a completed import.
type ImportResponse struct {
	PeriodID string `json:"period_id"`
	Imported int    `json:"imported"`
	Replaced int    `json:"replaced"`
}

// PeriodDTO is a stored period.
type PeriodDTO struct {
	ID    string `json:"id"`
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Label string `json:"label"`
}

// PeriodsResponse lists stored periods and the selectable years.
type PeriodsResponse struct {
	Periods []PeriodDTO `json:"periods"`
	Years   []int       `json:"years"`
}

// AuditEntryDTO is one audit log entry.
type AuditEntryDTO struct {
	ID        string `json:"id"`
	Actor     string `json:"actor"`
	Action    string `json:"action"`
	Changed   int    `json:"changed"`
	Unchanged int    `json:"unchanged"`
	Unmatched int    `json:"unmatched"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error          string   `json:"error"`
	Details        any      `json:"details,omitempty"`
	MissingColumns []string `json:"missing_columns,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toRecordDTO(r inquiry.Record) RecordDTO {
	return RecordDTO{
		Owner:       r.Owner,
		Name:        r.Name,
		Phone:       r.Phone,
		Gender:      r.Gender,
		Inquiry:     r.Inquiry,
		Status:      string(r.Status),
		StatusLabel: r.Status.Label(),
		Note:        r.Note,
		UpdatedAt:   r.UpdatedAt,
	}
}

// fromRecordDTO converts a submitted row. Unknown or blank statuses are
// rejected: blank only means "unprocessed" when reading legacy store files.
func fromRecordDTO(d RecordDTO) (inquiry.Record, error) {
	if strings.TrimSpace(d.Status) == "" {
		return inquiry.Record{}, &inquiry.UnknownStatusError{Value: d.Status}
	}
	status, err := inquiry.ParseStatus(d.Status)
	if err != nil {
		return inquiry.Record{}, err
	}
	return inquiry.Record{
		Owner:     d.Owner,
		Name:      d.Name,
		Phone:     d.Phone,
		Gender:    d.Gender,
		Inquiry:   d.Inquiry,
		Status:    status,
		Note:      d.Note,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

func toViewResponse(v desk.View, status inquiry.Status) ViewResponse {
	records := make([]RecordDTO, len(v.Records))
	for i, r := range v.Records {
		records[i] = toRecordDTO(r)
	}
	byStatus := make(map[string]int, len(v.Summary.ByStatus))
	for st, n := range v.Summary.ByStatus {
		byStatus[string(st)] = n
	}
	return ViewResponse{
		PeriodID: string(v.PeriodID),
		Label:    v.Period.String(),
		Exists:   v.Exists,
		Status:   string(status),
		Records:  records,
		Summary: SummaryDTO{
			Total:          v.Summary.Total,
			ByStatus:       byStatus,
			CompletionRate: v.Summary.CompletionRate.StringFixed(1),
		},
	}
}

func toSaveResponse(r inquiry.Reconciliation) SaveResponse {
	resp := SaveResponse{
		Changed:   r.Changed,
		Unchanged: r.Count(inquiry.OutcomeUnchanged),
		Unmatched: []KeyDTO{},
		Outcomes:  make([]OutcomeDTO, len(r.Outcomes)),
	}
	for _, k := range r.Unmatched() {
		resp.Unmatched = append(resp.Unmatched, KeyDTO{Name: k.Name, Phone: k.Phone})
	}
	for i, o := range r.Outcomes {
		resp.Outcomes[i] = OutcomeDTO{Name: o.Key.Name, Phone: o.Key.Phone, Result: string(o.Result)}
	}
	return resp
}

func toAuditEntryDTO(e inquiry.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:        e.ID,
		Actor:     e.Actor,
		Action:    string(e.Action),
		Changed:   e.Changed,
		Unchanged: e.Unchanged,
		Unmatched: e.Unmatched,
		Detail:    e.Detail,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
}
