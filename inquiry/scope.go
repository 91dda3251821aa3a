package inquiry

// =============================================================================
// ACCESS SCOPER & STATUS FILTER
// =============================================================================

// Scope returns the records visible to identity under role.
// Admins see every record. Agents see records whose Owner equals identity
// exactly. Any other role sees nothing. The input is never modified.
func Scope(records []Record, role Role, identity string) []Record {
	switch role {
	case RoleAdmin:
		return cloneRecords(records)
	case RoleAgent:
		return filter(records, func(r Record) bool { return r.Owner == identity })
	default:
		return []Record{}
	}
}

// Visible returns the predicate form of Scope, for use with ReconcileWithin.
func Visible(role Role, identity string) func(Record) bool {
	switch role {
	case RoleAdmin:
		return func(Record) bool { return true }
	case RoleAgent:
		return func(r Record) bool { return r.Owner == identity }
	default:
		return func(Record) bool { return false }
	}
}

// FilterByStatus keeps records whose status equals status, preserving order.
// StatusAll returns every record.
func FilterByStatus(records []Record, status Status) []Record {
	if status == StatusAll {
		return cloneRecords(records)
	}
	return filter(records, func(r Record) bool { return r.Status == status })
}

func filter(records []Record, keep func(Record) bool) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
