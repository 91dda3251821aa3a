/*
store.go - Persistence interfaces for period stores and identities

PURPOSE:
  Defines the interface between the domain logic and the storage layer.
  Both stores follow a full-overwrite model: every write replaces the whole
  record set (or identity set). There is no append or patch operation.

KEY INTERFACES:
  RecordStore:   One ordered record set per PeriodID
  IdentityStore: The complete identity set

MISSING DATA:
  A period without a store is "empty", not an error. Load returns an empty
  slice and Delete is a no-op. LoadIdentities returns ErrStoreNotFound so the
  credential service can seed the default set.

IMPLEMENTATIONS:
  - store/csvfile: Comma-delimited files, one per period, atomic rename
  - inquiry/store: In-memory for testing

SEE ALSO:
  - credential/service.go: Uses IdentityStore
  - desk/service.go: Uses RecordStore
*/
package inquiry

import (
	"context"
	"time"
)

// RecordStore persists period stores.
type RecordStore interface {
	// Load returns all records of a period in storage order.
	// A missing store yields an empty slice and nil error.
	Load(ctx context.Context, id PeriodID) ([]Record, error)

	// Persist replaces the complete record set of a period.
	Persist(ctx context.Context, id PeriodID, records []Record) error

	// Delete removes the store. Deleting a missing store is not an error.
	Delete(ctx context.Context, id PeriodID) error

	// Exists reports whether a store is present for the period.
	Exists(ctx context.Context, id PeriodID) (bool, error)

	// List returns the identifiers of all present stores.
	List(ctx context.Context) ([]PeriodID, error)
}

// IdentityStore persists the identity set.
type IdentityStore interface {
	// LoadIdentities returns the identity set in stored order, or
	// ErrStoreNotFound when none has been persisted yet.
	LoadIdentities(ctx context.Context) ([]Identity, error)

	// SaveIdentities replaces the complete identity set.
	SaveIdentities(ctx context.Context, identities []Identity) error
}

// =============================================================================
// AUDIT LOG - Separate from the stores, tracks who did what when
// =============================================================================

// AuditEntry records one destructive or editing action.
type AuditEntry struct {
	ID        string
	PeriodID  PeriodID
	Actor     string
	Action    AuditAction
	Changed   int
	Unchanged int
	Unmatched int
	Detail    string
	CreatedAt time.Time
}

type AuditAction string

const (
	AuditImport         AuditAction = "import"
	AuditReconcile      AuditAction = "reconcile"
	AuditDelete         AuditAction = "delete"
	AuditPasswordChange AuditAction = "password_change"
)

// AuditLog stores audit entries. Append-only.
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
	ListByPeriod(ctx context.Context, id PeriodID, limit int) ([]AuditEntry, error)
}
