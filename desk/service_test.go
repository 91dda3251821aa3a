package desk_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/warp/inquiry-desk/credential"
	"github.com/warp/inquiry-desk/desk"
	"github.com/warp/inquiry-desk/inquiry"
	"github.com/warp/inquiry-desk/inquiry/store"
	"github.com/warp/inquiry-desk/store/sqlite"
)

var (
	jan   = inquiry.Period{Year: 2025, Month: time.January}
	boss  = desk.Actor{ID: "Boss", Role: inquiry.RoleAdmin}
	kim   = desk.Actor{ID: "Kim", Role: inquiry.RoleAgent}
	clock = time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)
)

type fixture struct {
	svc     *desk.Service
	records *store.Memory
	audit   *sqlite.Store
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	records := store.NewMemory()
	audit, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { audit.Close() })

	creds := credential.NewService(store.NewMemory(), zap.NewNop(),
		credential.WithCost(bcrypt.MinCost),
		credential.WithSeeds([]credential.Seed{
			{ID: "Boss", Password: "1129", Role: inquiry.RoleAdmin},
			{ID: "Kim", Password: "0403", Role: inquiry.RoleAgent},
		}))

	svc := desk.NewService(records, creds, inquiry.NewLocator(nil), zap.NewNop(),
		desk.WithAudit(audit),
		desk.WithClock(func() time.Time { return clock }))
	return fixture{svc: svc, records: records, audit: audit}
}

func uploadSheet() inquiry.Sheet {
	return inquiry.Sheet{
		Header: []string{"담당자", "이름", "휴대전화", "성별", "문의내용"},
		Rows: [][]string{
			{"Kim", "Park", "010-1", "F", "loan"},
			{"Lee", "Choi", "010-2", "M", "card"},
			{"Kim", "Jung", "010-3", "F", "insurance"},
		},
	}
}

func importJan(t *testing.T, f fixture) {
	t.Helper()
	_, err := f.svc.Import(context.Background(), boss, jan, uploadSheet())
	require.NoError(t, err)
}

// =============================================================================
// IMPORT
// =============================================================================

func TestImport_ReplacesStoreWithDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// GIVEN: An existing store with one row
	require.NoError(t, f.records.Persist(ctx, "db_2025_1월", []inquiry.Record{{Owner: "Old", Name: "X", Phone: "0"}}))

	// WHEN: Importing the upload
	res, err := f.svc.Import(ctx, boss, jan, uploadSheet())
	require.NoError(t, err)

	// THEN: The store is replaced and every row is unprocessed with blank note
	assert.Equal(t, inquiry.PeriodID("db_2025_1월"), res.PeriodID)
	assert.Equal(t, 3, res.Imported)
	assert.Equal(t, 1, res.Replaced)

	stored, err := f.records.Load(ctx, "db_2025_1월")
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for _, r := range stored {
		assert.Equal(t, inquiry.StatusUnprocessed, r.Status)
		assert.Empty(t, r.Note)
		assert.Empty(t, r.UpdatedAt)
	}
}

func TestImport_RejectedSheetLeavesStoreUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	importJan(t, f)
	before, _ := f.records.Load(ctx, "db_2025_1월")
	writes := f.records.Writes

	// WHEN: The upload is missing 문의내용
	_, err := f.svc.Import(ctx, boss, jan, inquiry.Sheet{
		Header: []string{"담당자", "이름", "휴대전화", "성별"},
		Rows:   [][]string{{"Kim", "Park", "010-1", "F"}},
	})

	// THEN: Schema error naming the column, no write
	var schemaErr *inquiry.SchemaValidationError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"문의내용"}, schemaErr.Missing)
	assert.Equal(t, writes, f.records.Writes)

	after, _ := f.records.Load(ctx, "db_2025_1월")
	assert.Equal(t, before, after)
}

func TestImport_AgentForbidden(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Import(context.Background(), kim, jan, uploadSheet())

	assert.ErrorIs(t, err, inquiry.ErrForbidden)
	assert.Zero(t, f.records.Writes)
}

func TestImport_UnsupportedPeriod(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Import(context.Background(), boss, inquiry.Period{Year: 2031, Month: time.March}, uploadSheet())

	assert.ErrorIs(t, err, inquiry.ErrUnsupportedPeriod)
}

// =============================================================================
// VIEW
// =============================================================================

func TestView_AgentScopeAndStatusFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	importJan(t, f)

	_, err := f.svc.Save(ctx, boss, jan, []inquiry.Record{
		{Name: "Jung", Phone: "010-3", Status: inquiry.StatusDone},
	})
	require.NoError(t, err)

	// WHEN: Kim views everything, then only done rows
	all, err := f.svc.View(ctx, kim, jan, inquiry.StatusAll)
	require.NoError(t, err)
	done, err := f.svc.View(ctx, kim, jan, inquiry.StatusDone)
	require.NoError(t, err)

	// THEN: Only Kim's rows, and the filter narrows further
	assert.True(t, all.Exists)
	require.Len(t, all.Records, 2)
	for _, r := range all.Records {
		assert.Equal(t, "Kim", r.Owner)
	}
	require.Len(t, done.Records, 1)
	assert.Equal(t, "Jung", done.Records[0].Name)
	assert.Equal(t, 1, all.Summary.ByStatus[inquiry.StatusDone])
	assert.Equal(t, "50", all.Summary.CompletionRate.String())
}

func TestView_MissingPeriodIsEmpty(t *testing.T) {
	f := newFixture(t)

	v, err := f.svc.View(context.Background(), boss, jan, inquiry.StatusAll)

	require.NoError(t, err)
	assert.False(t, v.Exists)
	assert.Empty(t, v.Records)
	assert.Equal(t, 0, v.Summary.Total)
}

// =============================================================================
// SAVE
// =============================================================================

func TestSave_AgentEditStampsAndPersistsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	importJan(t, f)
	writes := f.records.Writes

	// GIVEN: Kim's view with one row edited
	view, err := f.svc.View(ctx, kim, jan, inquiry.StatusAll)
	require.NoError(t, err)
	edited := view.Records
	edited[0].Status = inquiry.StatusInProgress
	edited[0].Note = "called back"

	// WHEN: Saving
	res, err := f.svc.Save(ctx, kim, jan, edited)
	require.NoError(t, err)

	// THEN: One changed row, one write, stamped with the clock
	assert.Equal(t, 1, res.Changed)
	assert.Equal(t, writes+1, f.records.Writes)

	stored, _ := f.records.Load(ctx, "db_2025_1월")
	assert.Equal(t, inquiry.StatusInProgress, stored[0].Status)
	assert.Equal(t, "called back", stored[0].Note)
	assert.Equal(t, "2025-01-15 09:30", stored[0].UpdatedAt)
	assert.Empty(t, stored[1].UpdatedAt)
	assert.Empty(t, stored[2].UpdatedAt)
}

func TestSave_NoChangesSkipsWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	importJan(t, f)
	writes := f.records.Writes

	view, err := f.svc.View(ctx, boss, jan, inquiry.StatusAll)
	require.NoError(t, err)

	res, err := f.svc.Save(ctx, boss, jan, view.Records)

	require.NoError(t, err)
	assert.Zero(t, res.Changed)
	assert.Equal(t, 3, res.Count(inquiry.OutcomeUnchanged))
	assert.Equal(t, writes, f.records.Writes)
}

func TestSave_AgentCannotEditOthersRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	importJan(t, f)

	// WHEN: Kim submits Lee's row
	res, err := f.svc.Save(ctx, kim, jan, []inquiry.Record{
		{Owner: "Lee", Name: "Choi", Phone: "010-2", Status: inquiry.StatusDone},
	})
	require.NoError(t, err)

	// THEN: Reported unmatched, store unchanged
	assert.Zero(t, res.Changed)
	assert.Equal(t, []inquiry.Key{{Name: "Choi", Phone: "010-2"}}, res.Unmatched())

	stored, _ := f.records.Load(ctx, "db_2025_1월")
	assert.Equal(t, inquiry.StatusUnprocessed, stored[1].Status)
}

func TestSave_RejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	importJan(t, f)

	_, err := f.svc.Save(ctx, boss, jan, []inquiry.Record{
		{Name: "Park", Phone: "010-1", Status: "lost"},
	})

	assert.ErrorIs(t, err, inquiry.ErrUnknownStatus)
}

func TestSave_WritesAuditEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	importJan(t, f)

	_, err := f.svc.Save(ctx, boss, jan, []inquiry.Record{
		{Name: "Park", Phone: "010-1", Status: inquiry.StatusDone},
		{Name: "Ghost", Phone: "010-9", Status: inquiry.StatusDone},
	})
	require.NoError(t, err)

	history, err := f.svc.History(ctx, boss, jan, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)

	actions := []inquiry.AuditAction{history[0].Action, history[1].Action}
	assert.ElementsMatch(t, []inquiry.AuditAction{inquiry.AuditImport, inquiry.AuditReconcile}, actions)
	for _, e := range history {
		if e.Action == inquiry.AuditReconcile {
			assert.Equal(t, 1, e.Changed)
			assert.Equal(t, 1, e.Unmatched)
			assert.Equal(t, "unmatched: Ghost/010-9", e.Detail)
		}
	}
}

// =============================================================================
// DELETE / PERIODS / CREDENTIALS
// =============================================================================

func TestDelete_AdminOnlyAndIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	importJan(t, f)

	assert.ErrorIs(t, f.svc.Delete(ctx, kim, jan), inquiry.ErrForbidden)

	require.NoError(t, f.svc.Delete(ctx, boss, jan))
	require.NoError(t, f.svc.Delete(ctx, boss, jan))

	exists, _ := f.records.Exists(ctx, "db_2025_1월")
	assert.False(t, exists)
}

func TestPeriods_ListsStoredPeriods(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	importJan(t, f)
	_, err := f.svc.Import(ctx, boss, inquiry.Period{Year: 2024, Month: time.December}, uploadSheet())
	require.NoError(t, err)

	periods, err := f.svc.Periods(ctx)
	require.NoError(t, err)

	require.Len(t, periods, 2)
	assert.Equal(t, inquiry.PeriodID("db_2024_12월"), periods[0].ID)
	assert.Equal(t, inquiry.Period{Year: 2025, Month: time.January}, periods[1].Period)
}

func TestHistory_AgentForbidden(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.History(context.Background(), kim, jan, 10)

	assert.ErrorIs(t, err, inquiry.ErrForbidden)
}

func TestLoginAndChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ident, err := f.svc.Login(ctx, "Kim", "0403")
	require.NoError(t, err)
	assert.Equal(t, inquiry.RoleAgent, ident.Role)

	_, err = f.svc.Login(ctx, "Kim", "wrong")
	assert.ErrorIs(t, err, inquiry.ErrAuthenticationFailed)

	require.NoError(t, f.svc.ChangePassword(ctx, kim, "0403", "5555"))
	_, err = f.svc.Login(ctx, "Kim", "5555")
	assert.NoError(t, err)
}

func TestExportFileName(t *testing.T) {
	assert.Equal(t, "Glory_db_2025_1월.xlsx", desk.ExportFileName("db_2025_1월", ".xlsx"))
}
