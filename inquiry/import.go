package inquiry

import (
	"strings"
)

// =============================================================================
// IMPORT - Raw spreadsheet rows to period records
// =============================================================================

// Column describes one field of the persisted table.
type Column struct {
	Field string // stable English name, accepted on import and read
	Label string // Korean header written to disk and expected on import
}

// Columns is the persisted column order.
var Columns = []Column{
	{Field: "owner", Label: "담당자"},
	{Field: "name", Label: "이름"},
	{Field: "phone", Label: "휴대전화"},
	{Field: "gender", Label: "성별"},
	{Field: "inquiry", Label: "문의내용"},
	{Field: "status", Label: "상태"},
	{Field: "note", Label: "메모"},
	{Field: "updated_at", Label: "수정일시"},
}

// RequiredColumns are the columns every import must carry.
var RequiredColumns = Columns[:5]

const bom = "\uFEFF"

// phoneAlias is accepted in place of the phone column when the latter is absent.
const phoneAlias = "전화번호"

// Sheet is row-oriented import input with a header row.
type Sheet struct {
	Header []string
	Rows   [][]string
}

// ColumnIndex maps each known field to its position in header. Both the
// Korean label and the English field name are recognised. The phone alias
// is used only when no canonical phone column exists.
func ColumnIndex(header []string) map[string]int {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, bom))
		if _, dup := byName[h]; !dup {
			byName[h] = i
		}
	}

	index := make(map[string]int, len(Columns))
	for _, c := range Columns {
		if i, ok := byName[c.Label]; ok {
			index[c.Field] = i
		} else if i, ok := byName[c.Field]; ok {
			index[c.Field] = i
		}
	}
	if _, ok := index["phone"]; !ok {
		if i, ok := byName[phoneAlias]; ok {
			index["phone"] = i
		}
	}
	return index
}

// ImportRecords validates s against RequiredColumns and projects every
// non-blank row to a Record with default status, empty note and empty
// updated_at. Columns outside the required set are dropped.
//
// A *SchemaValidationError naming the missing labels is returned when any
// required column is absent. No records are returned in that case.
func ImportRecords(s Sheet) ([]Record, error) {
	index := ColumnIndex(s.Header)

	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := index[c.Field]; !ok {
			missing = append(missing, c.Label)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaValidationError{Missing: missing}
	}

	records := make([]Record, 0, len(s.Rows))
	for _, row := range s.Rows {
		if blankRow(row) {
			continue
		}
		records = append(records, Record{
			Owner:   cell(row, index["owner"]),
			Name:    cell(row, index["name"]),
			Phone:   cell(row, index["phone"]),
			Gender:  cell(row, index["gender"]),
			Inquiry: cell(row, index["inquiry"]),
			Status:  StatusUnprocessed,
		})
	}
	return records, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
