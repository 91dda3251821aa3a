/*
Package inquiry provides the core of the branch inquiry desk.

PURPOSE:
  Customer inquiries are uploaded per (year, month) period and distributed
  to sales agents. Each agent works through the records assigned to them,
  setting a status and a free-text note. This package holds the
  storage-agnostic types and the pure algorithms that operate on them:
  scoping, status filtering, import projection and reconciliation.

KEY CONCEPTS IN THIS FILE (types.go):
  - Record:   One customer inquiry row inside a period store
  - Key:      The (name, phone) natural key used to match edits to rows
  - Status:   Closed enumeration of per-record progress states
  - Role:     admin sees every record, agent sees only owned records
  - Identity: Login id (agent name), password hash and role

DESIGN PRINCIPLES:
  1. Import-time fields (owner, name, phone, gender, inquiry) are immutable
  2. Only status and note change after import, updated_at is system-stamped
  3. Every algorithm returns fresh slices, callers' slices are never mutated

SEE ALSO:
  - period.go:    Period and store identifier derivation
  - scope.go:     Access scoping and status filtering
  - reconcile.go: Folding edited views back into the master set
  - store.go:     Persistence interfaces
*/
package inquiry

import "strings"

// =============================================================================
// ROLE & IDENTITY
// =============================================================================

// Role controls record visibility.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleAgent Role = "agent"
)

// ParseRole accepts the stored role value. The legacy value "user" maps to agent.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, true
	case "agent", "user":
		return RoleAgent, true
	}
	return "", false
}

// Label returns the display name of the role.
func (r Role) Label() string {
	if r == RoleAdmin {
		return "관리자"
	}
	return "설계사"
}

// Identity is a login account. ID doubles as the agent name stored in Record.Owner.
type Identity struct {
	ID           string
	PasswordHash string
	Role         Role
}

// IsAdmin reports whether the identity has the admin role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// =============================================================================
// STATUS
// =============================================================================

// Status is the per-record progress state chosen by the agent.
// Transitions are unrestricted.
type Status string

const (
	StatusUnprocessed Status = "unprocessed"
	StatusRejected    Status = "rejected"
	StatusAbsent      Status = "absent"
	StatusInProgress  Status = "in_progress"
	StatusDone        Status = "done"

	// StatusAll is the "show all" sentinel for FilterByStatus. Never stored.
	StatusAll Status = "all"
)

// Statuses lists the storable statuses in display order.
var Statuses = []Status{
	StatusUnprocessed,
	StatusRejected,
	StatusAbsent,
	StatusInProgress,
	StatusDone,
}

var statusLabels = map[Status]string{
	StatusUnprocessed: "미처리",
	StatusRejected:    "거절",
	StatusAbsent:      "부재",
	StatusInProgress:  "진행중",
	StatusDone:        "완료",
}

// Label returns the Korean display label.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Valid reports whether s is one of the storable statuses.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// ParseStatus accepts either the stored value or the display label.
// An empty string parses as StatusUnprocessed.
func ParseStatus(s string) (Status, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return StatusUnprocessed, nil
	}
	if st := Status(strings.ToLower(s)); st.Valid() {
		return st, nil
	}
	for st, label := range statusLabels {
		if label == s {
			return st, nil
		}
	}
	return "", &UnknownStatusError{Value: s}
}

// ParseStatusFilter is ParseStatus for filter input: empty, "all" and
// "전체" select StatusAll.
func ParseStatusFilter(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(StatusAll), "전체":
		return StatusAll, nil
	}
	return ParseStatus(s)
}

// =============================================================================
// RECORD
// =============================================================================

// Key is the natural key of a record within one period store.
type Key struct {
	Name  string
	Phone string
}

func (k Key) String() string { return k.Name + "/" + k.Phone }

// Record is one customer inquiry.
type Record struct {
	Owner   string
	Name    string
	Phone   string
	Gender  string
	Inquiry string

	Status    Status
	Note      string
	UpdatedAt string
}

// Key returns the (name, phone) natural key.
func (r Record) Key() Key { return Key{Name: r.Name, Phone: r.Phone} }

// sameEdits reports whether the mutable fields match.
func (r Record) sameEdits(o Record) bool {
	return r.Status == o.Status && r.Note == o.Note
}

// cloneRecords returns a copy of rs that shares no backing array.
func cloneRecords(rs []Record) []Record {
	out := make([]Record, len(rs))
	copy(out, rs)
	return out
}
