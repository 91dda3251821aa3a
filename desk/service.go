/*
Package desk runs the inquiry desk control flow on top of the domain core.

PURPOSE:
  The UI collaborator (api package) calls into Service for every user
  action. Service resolves the period store, applies role checks, scopes
  and filters views, funnels edits through reconciliation and writes the
  full store back in one call.

CONTROL FLOW:
  Import: validate sheet -> (lock period) -> replace store -> audit
  View:   load store -> Scope(role, identity) -> FilterByStatus -> Summary
  Save:   validate statuses -> (lock period) -> load master ->
          ReconcileWithin(visible rows) -> persist when changed -> audit
  Delete: (lock period) -> remove store -> audit

CONCURRENCY:
  Import, Save and Delete on the same period are serialized by a per-period
  mutex. Two sessions that load, edit and save still race as
  last-writer-wins: the second save reconciles against whatever the first
  one persisted, it does not detect that its view was stale.

AUDIT:
  Audit failures are logged and never fail the user operation.

SEE ALSO:
  - inquiry/reconcile.go: The merge algorithm
  - api/handlers.go: HTTP boundary
*/
package desk

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/inquiry-desk/inquiry"
)

// TimestampLayout formats updated_at stamps.
const TimestampLayout = "2006-01-02 15:04"

// Actor is the logged-in identity performing an operation.
type Actor struct {
	ID   string
	Role inquiry.Role
}

// Authenticator is the credential store as seen by the desk.
type Authenticator interface {
	Authenticate(ctx context.Context, id, password string) (inquiry.Identity, error)
	ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error
}

// Service implements the desk operations.
type Service struct {
	records inquiry.RecordStore
	auth    Authenticator
	audit   inquiry.AuditLog
	locator inquiry.Locator
	logger  *zap.Logger
	now     func() time.Time

	locksMu sync.Mutex
	locks   map[inquiry.PeriodID]*sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithAudit enables the audit log.
func WithAudit(audit inquiry.AuditLog) Option {
	return func(s *Service) { s.audit = audit }
}

// WithClock overrides time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a desk service.
func NewService(records inquiry.RecordStore, auth Authenticator, locator inquiry.Locator, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		records: records,
		auth:    auth,
		locator: locator,
		logger:  logger,
		now:     time.Now,
		locks:   make(map[inquiry.PeriodID]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Locator returns the period locator in use.
func (s *Service) Locator() inquiry.Locator { return s.locator }

// =============================================================================
// CREDENTIALS
// =============================================================================

// Login authenticates id and returns the identity.
func (s *Service) Login(ctx context.Context, id, password string) (inquiry.Identity, error) {
	ident, err := s.auth.Authenticate(ctx, id, password)
	if err != nil {
		s.logger.Info("login rejected", zap.String("id", strings.TrimSpace(id)))
		return inquiry.Identity{}, err
	}
	s.logger.Info("login", zap.String("id", ident.ID), zap.String("role", string(ident.Role)))
	return ident, nil
}

// ChangePassword changes the actor's own password.
func (s *Service) ChangePassword(ctx context.Context, actor Actor, oldPassword, newPassword string) error {
	if err := s.auth.ChangePassword(ctx, actor.ID, oldPassword, newPassword); err != nil {
		return err
	}
	s.record(ctx, inquiry.AuditEntry{Actor: actor.ID, Action: inquiry.AuditPasswordChange})
	return nil
}

// =============================================================================
// READ SIDE
// =============================================================================

// View is the scoped, filtered record set for one period.
type View struct {
	Period   inquiry.Period
	PeriodID inquiry.PeriodID
	Exists   bool
	Records  []inquiry.Record
	Summary  inquiry.Summary
}

// View returns the records of p visible to actor, filtered by status.
// A period without a store is an empty view, not an error.
func (s *Service) View(ctx context.Context, actor Actor, p inquiry.Period, status inquiry.Status) (View, error) {
	if err := s.locator.Validate(p); err != nil {
		return View{}, err
	}
	id := s.locator.Resolve(p)

	exists, err := s.records.Exists(ctx, id)
	if err != nil {
		return View{}, fmt.Errorf("failed to check period store: %w", err)
	}
	master, err := s.records.Load(ctx, id)
	if err != nil {
		return View{}, fmt.Errorf("failed to load period store: %w", err)
	}

	visible := inquiry.FilterByStatus(inquiry.Scope(master, actor.Role, actor.ID), status)
	return View{
		Period:   p,
		PeriodID: id,
		Exists:   exists,
		Records:  visible,
		Summary:  inquiry.Summarize(visible),
	}, nil
}

// PeriodInfo describes one stored period.
type PeriodInfo struct {
	ID     inquiry.PeriodID
	Period inquiry.Period
}

// Periods lists the periods that currently have a store.
func (s *Service) Periods(ctx context.Context) ([]PeriodInfo, error) {
	ids, err := s.records.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]PeriodInfo, 0, len(ids))
	for _, id := range ids {
		p, ok := s.locator.Parse(id)
		if !ok {
			continue
		}
		out = append(out, PeriodInfo{ID: id, Period: p})
	}
	return out, nil
}

// History returns recent audit entries for a period. Admin only.
func (s *Service) History(ctx context.Context, actor Actor, p inquiry.Period, limit int) ([]inquiry.AuditEntry, error) {
	if actor.Role != inquiry.RoleAdmin {
		return nil, inquiry.ErrForbidden
	}
	if err := s.locator.Validate(p); err != nil {
		return nil, err
	}
	if s.audit == nil {
		return []inquiry.AuditEntry{}, nil
	}
	return s.audit.ListByPeriod(ctx, s.locator.Resolve(p), limit)
}

// ExportFileName is the download name for a period export.
func ExportFileName(id inquiry.PeriodID, ext string) string {
	return "Glory_" + string(id) + ext
}

// =============================================================================
// WRITE SIDE
// =============================================================================

// ImportResult reports a completed import.
type ImportResult struct {
	PeriodID inquiry.PeriodID
	Imported int
	Replaced int
}

// Import replaces the store of p with the rows of sheet. Admin only.
// Validation happens before any write: a rejected sheet leaves the
// existing store untouched.
func (s *Service) Import(ctx context.Context, actor Actor, p inquiry.Period, sheet inquiry.Sheet) (ImportResult, error) {
	if actor.Role != inquiry.RoleAdmin {
		return ImportResult{}, inquiry.ErrForbidden
	}
	if err := s.locator.Validate(p); err != nil {
		return ImportResult{}, err
	}
	records, err := inquiry.ImportRecords(sheet)
	if err != nil {
		return ImportResult{}, err
	}

	id := s.locator.Resolve(p)
	unlock := s.lock(id)
	defer unlock()

	previous, err := s.records.Load(ctx, id)
	if err != nil {
		// The old store is unreadable; the import replaces it anyway.
		s.logger.Warn("replacing unreadable period store", zap.String("period", string(id)), zap.Error(err))
		previous = nil
	}
	if err := s.records.Persist(ctx, id, records); err != nil {
		return ImportResult{}, fmt.Errorf("failed to persist import: %w", err)
	}

	result := ImportResult{PeriodID: id, Imported: len(records), Replaced: len(previous)}
	s.logger.Info("period imported",
		zap.String("period", string(id)),
		zap.String("actor", actor.ID),
		zap.Int("imported", result.Imported),
		zap.Int("replaced", result.Replaced))
	s.record(ctx, inquiry.AuditEntry{
		PeriodID: id,
		Actor:    actor.ID,
		Action:   inquiry.AuditImport,
		Changed:  result.Imported,
		Detail:   fmt.Sprintf("replaced %d records", result.Replaced),
	})
	return result, nil
}

// Save folds edited into the store of p. Rows the actor cannot see are
// reported as unmatched and left alone. The store is written once, and
// only when at least one row changed.
func (s *Service) Save(ctx context.Context, actor Actor, p inquiry.Period, edited []inquiry.Record) (inquiry.Reconciliation, error) {
	if err := s.locator.Validate(p); err != nil {
		return inquiry.Reconciliation{}, err
	}
	for _, e := range edited {
		if !e.Status.Valid() {
			return inquiry.Reconciliation{}, &inquiry.UnknownStatusError{Value: string(e.Status)}
		}
	}

	id := s.locator.Resolve(p)
	unlock := s.lock(id)
	defer unlock()

	master, err := s.records.Load(ctx, id)
	if err != nil {
		return inquiry.Reconciliation{}, fmt.Errorf("failed to load period store: %w", err)
	}

	at := s.now().Format(TimestampLayout)
	result := inquiry.ReconcileWithin(master, edited, at, inquiry.Visible(actor.Role, actor.ID))

	if result.Changed > 0 {
		if err := s.records.Persist(ctx, id, result.Records); err != nil {
			return inquiry.Reconciliation{}, fmt.Errorf("failed to persist period store: %w", err)
		}
	}

	unmatched := result.Unmatched()
	fields := []zap.Field{
		zap.String("period", string(id)),
		zap.String("actor", actor.ID),
		zap.Int("changed", result.Changed),
		zap.Int("unmatched", len(unmatched)),
	}
	if len(unmatched) > 0 {
		s.logger.Warn("edited rows without a master record", fields...)
	} else {
		s.logger.Info("period saved", fields...)
	}

	s.record(ctx, inquiry.AuditEntry{
		PeriodID:  id,
		Actor:     actor.ID,
		Action:    inquiry.AuditReconcile,
		Changed:   result.Changed,
		Unchanged: result.Count(inquiry.OutcomeUnchanged),
		Unmatched: len(unmatched),
		Detail:    describeKeys(unmatched),
	})
	return result, nil
}

// Delete removes the store of p. Admin only. Deleting a period without a
// store succeeds.
func (s *Service) Delete(ctx context.Context, actor Actor, p inquiry.Period) error {
	if actor.Role != inquiry.RoleAdmin {
		return inquiry.ErrForbidden
	}
	if err := s.locator.Validate(p); err != nil {
		return err
	}

	id := s.locator.Resolve(p)
	unlock := s.lock(id)
	defer unlock()

	if err := s.records.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete period store: %w", err)
	}
	s.logger.Info("period deleted", zap.String("period", string(id)), zap.String("actor", actor.ID))
	s.record(ctx, inquiry.AuditEntry{PeriodID: id, Actor: actor.ID, Action: inquiry.AuditDelete})
	return nil
}

// =============================================================================
// INTERNALS
// =============================================================================

func (s *Service) lock(id inquiry.PeriodID) func() {
	s.locksMu.Lock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	s.locksMu.Unlock()

	m.Lock()
	return m.Unlock
}

func (s *Service) record(ctx context.Context, e inquiry.AuditEntry) {
	if s.audit == nil {
		return
	}
	e.CreatedAt = s.now()
	if err := s.audit.Append(ctx, e); err != nil {
		s.logger.Error("failed to write audit entry",
			zap.String("action", string(e.Action)),
			zap.String("period", string(e.PeriodID)),
			zap.Error(err))
	}
}

func describeKeys(keys []inquiry.Key) string {
	if len(keys) == 0 {
		return ""
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.String()
	}
	return "unmatched: " + strings.Join(parts, ", ")
}
