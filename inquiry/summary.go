package inquiry

import "github.com/shopspring/decimal"

// Summary counts a record set by status.
type Summary struct {
	Total    int
	ByStatus map[Status]int

	// CompletionRate is the share of done records as a percentage,
	// rounded to one decimal place. Zero for an empty set.
	CompletionRate decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Summarize builds a Summary for records. Every storable status is present
// in ByStatus, with zero counts where no record has it.
func Summarize(records []Record) Summary {
	s := Summary{
		Total:          len(records),
		ByStatus:       make(map[Status]int, len(Statuses)),
		CompletionRate: decimal.Zero,
	}
	for _, st := range Statuses {
		s.ByStatus[st] = 0
	}
	for _, r := range records {
		s.ByStatus[r.Status]++
	}
	if s.Total > 0 {
		done := decimal.NewFromInt(int64(s.ByStatus[StatusDone]))
		s.CompletionRate = done.Mul(hundred).Div(decimal.NewFromInt(int64(s.Total))).Round(1)
	}
	return s
}
