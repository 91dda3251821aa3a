/*
Package csvfile provides file-backed implementations of the inquiry storage
interfaces.

PURPOSE:
  Period stores and the identity set are kept as comma-delimited, UTF-8
  text files with a byte-order mark, so branch staff can open them directly
  in a spreadsheet program. Every write replaces the whole file.

FILE LAYOUT:
  <dir>/db_2025_1월.csv   one file per period (see inquiry.Locator)
  <dir>/users.csv         identity set, header id,pw,role

RECORD FORMAT:
  Header: 담당자,이름,휴대전화,성별,문의내용,상태,메모,수정일시
  Readers also accept the English field names and the five-column files
  written before status tracking existed; missing status/note/updated_at
  columns read as defaults.

ATOMICITY:
  Writes go to a temp file in the same directory, are synced, then renamed
  over the target. A crash leaves either the old or the new file, never a
  truncated one.

SEE ALSO:
  - inquiry/store.go: Interface definitions
  - inquiry/import.go: Column definitions shared with import
*/
package csvfile

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/warp/inquiry-desk/inquiry"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Encode writes records in the persisted format, BOM first.
func Encode(w io.Writer, records []inquiry.Record) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := make([]string, len(inquiry.Columns))
	for i, c := range inquiry.Columns {
		header[i] = c.Label
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range records {
		row := []string{
			r.Owner, r.Name, r.Phone, r.Gender, r.Inquiry,
			string(r.Status), r.Note, r.UpdatedAt,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTable reads a comma-delimited table, stripping a leading BOM.
// An empty input yields a nil header.
func ReadTable(r io.Reader) (header []string, rows [][]string, err error) {
	br := bufio.NewReader(r)
	if lead, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(lead, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	all, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(all) == 0 {
		return nil, nil, nil
	}
	return all[0], all[1:], nil
}

// Decode parses records in the persisted format.
func Decode(r io.Reader) ([]inquiry.Record, error) {
	header, rows, err := ReadTable(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	if header == nil {
		return []inquiry.Record{}, nil
	}

	index := inquiry.ColumnIndex(header)
	var missing []string
	for _, c := range inquiry.RequiredColumns {
		if _, ok := index[c.Field]; !ok {
			missing = append(missing, c.Label)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("corrupt period store: missing columns %s", strings.Join(missing, ", "))
	}

	get := func(row []string, field string) string {
		i, ok := index[field]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	records := make([]inquiry.Record, 0, len(rows))
	for n, row := range rows {
		status, err := inquiry.ParseStatus(get(row, "status"))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}
		records = append(records, inquiry.Record{
			Owner:     get(row, "owner"),
			Name:      get(row, "name"),
			Phone:     get(row, "phone"),
			Gender:    get(row, "gender"),
			Inquiry:   get(row, "inquiry"),
			Status:    status,
			Note:      get(row, "note"),
			UpdatedAt: get(row, "updated_at"),
		})
	}
	return records, nil
}

// errEmptyTable marks an identity file without a header row.
var errEmptyTable = errors.New("empty table")
