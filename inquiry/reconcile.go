/*
reconcile.go - Folds an edited view back into the authoritative record set

PURPOSE:
  Agents edit a narrowed view of a period (scoped to their own records,
  possibly filtered by status, possibly re-sorted by the UI). The view's
  positions do not correspond to the master's, so edits are matched by the
  (name, phone) natural key, never by index.

ALGORITHM:
  1. Index the master by Key, keeping the FIRST row per key (storage order)
  2. For each edited row, find its master row; missing -> outcome unmatched
  3. Compare status and note only. Equal -> outcome unchanged, the master
     row (including updated_at) is left untouched
  4. Otherwise copy status and note, stamp updated_at, outcome updated
  5. Rows never referenced by the view pass through unchanged

GUARANTEES:
  - owner, name, phone, gender and inquiry are never written
  - Reconciling the same view twice reports Changed == 0 the second time
  - The master slice passed in is not mutated

DUPLICATE KEYS:
  Only the first master row with a given key is ever updated. Later rows
  with the same key are unreachable through reconciliation.

SEE ALSO:
  - scope.go: Visible() builds the allow predicate for ReconcileWithin
  - desk/service.go: Persists the result in a single write
*/
package inquiry

// OutcomeKind classifies what happened to one edited row.
type OutcomeKind string

const (
	OutcomeUpdated   OutcomeKind = "updated"
	OutcomeUnchanged OutcomeKind = "unchanged"
	OutcomeUnmatched OutcomeKind = "unmatched"
)

// RowOutcome reports the result for one row of the edited view, in view order.
type RowOutcome struct {
	Key    Key
	Result OutcomeKind
}

// Reconciliation is the result of folding an edited view into a master set.
type Reconciliation struct {
	Records  []Record
	Changed  int
	Outcomes []RowOutcome
}

// Count returns how many outcomes have the given kind.
func (r Reconciliation) Count(kind OutcomeKind) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Result == kind {
			n++
		}
	}
	return n
}

// Unmatched returns the keys of edited rows that matched no master row.
func (r Reconciliation) Unmatched() []Key {
	var keys []Key
	for _, o := range r.Outcomes {
		if o.Result == OutcomeUnmatched {
			keys = append(keys, o.Key)
		}
	}
	return keys
}

// Reconcile folds edited into master, stamping changed rows with at.
func Reconcile(master, edited []Record, at string) Reconciliation {
	return ReconcileWithin(master, edited, at, nil)
}

// ReconcileWithin is Reconcile restricted to master rows for which allow
// returns true. Rows failing allow are treated as absent, so edits aimed at
// them come back as unmatched. A nil allow admits every row.
func ReconcileWithin(master, edited []Record, at string, allow func(Record) bool) Reconciliation {
	out := cloneRecords(master)

	index := make(map[Key]int, len(out))
	for i, r := range out {
		if allow != nil && !allow(r) {
			continue
		}
		if _, seen := index[r.Key()]; !seen {
			index[r.Key()] = i
		}
	}

	result := Reconciliation{
		Outcomes: make([]RowOutcome, 0, len(edited)),
	}
	changedRows := make(map[int]bool)

	for _, e := range edited {
		k := e.Key()
		i, ok := index[k]
		if !ok {
			result.Outcomes = append(result.Outcomes, RowOutcome{Key: k, Result: OutcomeUnmatched})
			continue
		}

		m := &out[i]
		if m.sameEdits(e) {
			result.Outcomes = append(result.Outcomes, RowOutcome{Key: k, Result: OutcomeUnchanged})
			continue
		}

		m.Status = e.Status
		m.Note = e.Note
		m.UpdatedAt = at
		changedRows[i] = true
		result.Outcomes = append(result.Outcomes, RowOutcome{Key: k, Result: OutcomeUpdated})
	}

	result.Records = out
	result.Changed = len(changedRows)
	return result
}
