package inquiry

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// PERIOD - One (year, month) partition of the record store
// =============================================================================

// Period identifies one monthly partition.
type Period struct {
	Year  int
	Month time.Month
}

// String returns the display form, e.g. "2025년 1월".
func (p Period) String() string {
	return fmt.Sprintf("%d년 %s", p.Year, MonthLabel(p.Month))
}

// PeriodID is the persisted store identifier of a period.
type PeriodID string

// MonthLabel returns the locale label used in store file names.
func MonthLabel(m time.Month) string {
	return strconv.Itoa(int(m)) + "월"
}

// DefaultYears is the year domain offered by the branch.
var DefaultYears = []int{2024, 2025, 2026, 2027}

// =============================================================================
// LOCATOR - Derives store identifiers from periods
// =============================================================================

// Locator maps periods to store identifiers and checks the year domain.
type Locator struct {
	Years []int
}

// NewLocator returns a locator over the given years, or DefaultYears when empty.
func NewLocator(years []int) Locator {
	if len(years) == 0 {
		years = DefaultYears
	}
	return Locator{Years: append([]int(nil), years...)}
}

// Resolve returns the store identifier for p, e.g. "db_2025_1월".
// Total and collision-free: year and month are separated and the month is
// always suffixed with its label.
func (l Locator) Resolve(p Period) PeriodID {
	return PeriodID(fmt.Sprintf("db_%d_%s", p.Year, MonthLabel(p.Month)))
}

// Validate returns ErrUnsupportedPeriod when p is outside the domain.
func (l Locator) Validate(p Period) error {
	if p.Month < time.January || p.Month > time.December {
		return fmt.Errorf("%w: month %d", ErrUnsupportedPeriod, int(p.Month))
	}
	for _, y := range l.Years {
		if y == p.Year {
			return nil
		}
	}
	return fmt.Errorf("%w: year %d", ErrUnsupportedPeriod, p.Year)
}

// Parse is the inverse of Resolve. ok is false for identifiers not produced by Resolve.
func (l Locator) Parse(id PeriodID) (Period, bool) {
	rest, found := strings.CutPrefix(string(id), "db_")
	if !found {
		return Period{}, false
	}
	yearPart, monthPart, found := strings.Cut(rest, "_")
	if !found {
		return Period{}, false
	}
	year, err := strconv.Atoi(yearPart)
	if err != nil {
		return Period{}, false
	}
	month, err := strconv.Atoi(strings.TrimSuffix(monthPart, "월"))
	if err != nil || month < 1 || month > 12 || !strings.HasSuffix(monthPart, "월") {
		return Period{}, false
	}
	return Period{Year: year, Month: time.Month(month)}, true
}

// PeriodFor returns the period containing t.
func PeriodFor(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}
