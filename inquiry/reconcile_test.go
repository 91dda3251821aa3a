package inquiry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/inquiry-desk/inquiry"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func rec(owner, name, phone string) inquiry.Record {
	return inquiry.Record{
		Owner:   owner,
		Name:    name,
		Phone:   phone,
		Gender:  "F",
		Inquiry: "loan",
		Status:  inquiry.StatusUnprocessed,
	}
}

func masterSet() []inquiry.Record {
	return []inquiry.Record{
		rec("Kim", "Park", "010-1"),
		rec("Lee", "Choi", "010-2"),
		rec("Kim", "Jung", "010-3"),
		rec("Han", "Yoon", "010-4"),
	}
}

func immutable(r inquiry.Record) [5]string {
	return [5]string{r.Owner, r.Name, r.Phone, r.Gender, r.Inquiry}
}

// =============================================================================
// STATUS AND NOTE UPDATES
// =============================================================================

func TestReconcile_UpdatesStatusNoteAndStamp(t *testing.T) {
	// GIVEN: The imported single-record store
	// WHEN: status -> done, note -> "called back"
	// THEN: The master row carries the edits and the timestamp

	master := []inquiry.Record{rec("Kim", "Park", "010-1")}
	edited := []inquiry.Record{master[0]}
	edited[0].Status = inquiry.StatusDone
	edited[0].Note = "called back"

	res := inquiry.Reconcile(master, edited, "2025-01-01 10:00")

	require.Len(t, res.Records, 1)
	assert.Equal(t, 1, res.Changed)
	assert.Equal(t, inquiry.StatusDone, res.Records[0].Status)
	assert.Equal(t, "called back", res.Records[0].Note)
	assert.Equal(t, "2025-01-01 10:00", res.Records[0].UpdatedAt)
	assert.Equal(t, []inquiry.RowOutcome{
		{Key: inquiry.Key{Name: "Park", Phone: "010-1"}, Result: inquiry.OutcomeUpdated},
	}, res.Outcomes)
}

func TestReconcile_SecondPassIsNoop(t *testing.T) {
	// GIVEN: The result of a first reconcile
	// WHEN: The same view is reconciled again with a later timestamp
	// THEN: Nothing changes and the first timestamp survives

	master := []inquiry.Record{rec("Kim", "Park", "010-1")}
	edited := []inquiry.Record{master[0]}
	edited[0].Status = inquiry.StatusDone
	edited[0].Note = "called back"

	first := inquiry.Reconcile(master, edited, "2025-01-01 10:00")
	second := inquiry.Reconcile(first.Records, edited, "2025-01-01 10:05")

	assert.Equal(t, 0, second.Changed)
	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, "2025-01-01 10:00", second.Records[0].UpdatedAt)
	assert.Equal(t, 1, second.Count(inquiry.OutcomeUnchanged))
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestReconcile_NeverTouchesImmutableFields(t *testing.T) {
	master := masterSet()
	edited := inquiry.Scope(master, inquiry.RoleAgent, "Kim")
	for i := range edited {
		edited[i].Status = inquiry.StatusInProgress
		edited[i].Note = "memo"
	}

	res := inquiry.Reconcile(master, edited, "t1")

	require.Len(t, res.Records, len(master))
	for i := range master {
		assert.Equal(t, immutable(master[i]), immutable(res.Records[i]))
	}
	assert.Equal(t, 2, res.Changed)
}

func TestReconcile_IgnoresImmutableEditsInView(t *testing.T) {
	// GIVEN: A view row whose gender/inquiry/owner were altered by the caller
	// THEN: Only status and note flow into the master

	master := masterSet()
	edited := []inquiry.Record{master[0]}
	edited[0].Owner = "Lee"
	edited[0].Gender = "M"
	edited[0].Inquiry = "card"
	edited[0].Status = inquiry.StatusAbsent

	res := inquiry.Reconcile(master, edited, "t1")

	assert.Equal(t, immutable(master[0]), immutable(res.Records[0]))
	assert.Equal(t, inquiry.StatusAbsent, res.Records[0].Status)
}

func TestReconcile_UnchangedRowsKeepTimestamp(t *testing.T) {
	master := masterSet()
	master[1].UpdatedAt = "2024-12-31 09:00"
	master[1].Note = "old"

	edited := inquiry.Scope(master, inquiry.RoleAdmin, "")
	edited[0].Status = inquiry.StatusRejected

	res := inquiry.Reconcile(master, edited, "2025-01-01 10:00")

	assert.Equal(t, 1, res.Changed)
	assert.Equal(t, "2024-12-31 09:00", res.Records[1].UpdatedAt)
	for _, i := range []int{2, 3} {
		assert.Empty(t, res.Records[i].UpdatedAt)
	}
}

func TestReconcile_IdempotentOverFilteredReorderedView(t *testing.T) {
	master := masterSet()
	view := []inquiry.Record{master[3], master[0]}
	view[0].Note = "later"
	view[1].Status = inquiry.StatusDone

	first := inquiry.Reconcile(master, view, "t1")
	second := inquiry.Reconcile(first.Records, view, "t2")

	assert.Equal(t, 2, first.Changed)
	assert.Equal(t, 0, second.Changed)
	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, "later", second.Records[3].Note)
	assert.Equal(t, inquiry.StatusDone, second.Records[0].Status)
}

func TestReconcile_DoesNotMutateInput(t *testing.T) {
	master := masterSet()
	before := append([]inquiry.Record(nil), master...)
	edited := []inquiry.Record{master[0]}
	edited[0].Status = inquiry.StatusDone

	inquiry.Reconcile(master, edited, "t1")

	assert.Equal(t, before, master)
}

// =============================================================================
// EDGE CASES
// =============================================================================

func TestReconcile_UnmatchedRowsAreReportedNotApplied(t *testing.T) {
	master := masterSet()
	ghost := rec("Kim", "Nobody", "010-9")
	ghost.Status = inquiry.StatusDone
	edited := []inquiry.Record{ghost}

	res := inquiry.Reconcile(master, edited, "t1")

	assert.Equal(t, 0, res.Changed)
	assert.Equal(t, master, res.Records)
	assert.Equal(t, []inquiry.Key{{Name: "Nobody", Phone: "010-9"}}, res.Unmatched())
}

func TestReconcile_DuplicateKeyUpdatesFirstOnly(t *testing.T) {
	master := []inquiry.Record{
		rec("Kim", "Park", "010-1"),
		rec("Lee", "Park", "010-1"),
	}
	edited := []inquiry.Record{master[0]}
	edited[0].Status = inquiry.StatusDone

	res := inquiry.Reconcile(master, edited, "t1")

	assert.Equal(t, inquiry.StatusDone, res.Records[0].Status)
	assert.Equal(t, inquiry.StatusUnprocessed, res.Records[1].Status)
}

func TestReconcile_RepeatedKeyInViewCountsRowOnce(t *testing.T) {
	master := masterSet()
	a := master[0]
	a.Status = inquiry.StatusAbsent
	b := master[0]
	b.Status = inquiry.StatusDone

	res := inquiry.Reconcile(master, []inquiry.Record{a, b}, "t1")

	assert.Equal(t, 1, res.Changed)
	assert.Equal(t, inquiry.StatusDone, res.Records[0].Status)
	assert.Equal(t, 2, res.Count(inquiry.OutcomeUpdated))
}

func TestReconcileWithin_HidesRowsOutsideScope(t *testing.T) {
	// GIVEN: Agent Kim submits an edit for a row owned by Lee
	// THEN: The row is unmatched and Lee's record is untouched

	master := masterSet()
	foreign := master[1]
	foreign.Status = inquiry.StatusDone

	res := inquiry.ReconcileWithin(master, []inquiry.Record{foreign}, "t1",
		inquiry.Visible(inquiry.RoleAgent, "Kim"))

	assert.Equal(t, 0, res.Changed)
	assert.Equal(t, inquiry.StatusUnprocessed, res.Records[1].Status)
	assert.Equal(t, 1, res.Count(inquiry.OutcomeUnmatched))
}
