/*
Package spreadsheet converts between uploaded/downloaded workbooks and the
inquiry domain.

PURPOSE:
  Admins upload the monthly inquiry list as an Excel workbook (or a CSV
  exported from one). ReadUpload turns it into an inquiry.Sheet for
  inquiry.ImportRecords. WriteXLSX renders a record set back into a
  workbook for download.

FORMATS:
  .xlsx  First worksheet, first row is the header (excelize)
  .csv   Comma-delimited, optional UTF-8 BOM (store/csvfile.ReadTable)

  Legacy .xls (BIFF) workbooks are rejected with ErrUnsupportedFormat;
  branch staff re-save them as .xlsx.

SEE ALSO:
  - inquiry/import.go: Column validation and projection
  - store/csvfile/codec.go: CSV encoding shared with the period store
*/
package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/warp/inquiry-desk/inquiry"
	"github.com/warp/inquiry-desk/store/csvfile"
)

// ErrUnsupportedFormat is returned for uploads that are neither xlsx nor csv.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrNoSheet is returned for workbooks without a worksheet.
var ErrNoSheet = errors.New("workbook has no sheets")

// SheetName is the worksheet name used by WriteXLSX.
const SheetName = "고객DB"

// ReadUpload parses an uploaded file. The format is chosen by extension.
func ReadUpload(r io.Reader, filename string) (inquiry.Sheet, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r)
	case ".csv":
		header, rows, err := csvfile.ReadTable(r)
		if err != nil {
			return inquiry.Sheet{}, fmt.Errorf("failed to parse CSV file: %w", err)
		}
		return inquiry.Sheet{Header: header, Rows: rows}, nil
	default:
		return inquiry.Sheet{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// ReadXLSX reads the first worksheet of a workbook.
func ReadXLSX(r io.Reader) (inquiry.Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return inquiry.Sheet{}, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	name := f.GetSheetName(0)
	if name == "" {
		return inquiry.Sheet{}, ErrNoSheet
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return inquiry.Sheet{}, fmt.Errorf("failed to read sheet %q: %w", name, err)
	}
	if len(rows) == 0 {
		return inquiry.Sheet{}, nil
	}
	return inquiry.Sheet{Header: rows[0], Rows: rows[1:]}, nil
}

var columnWidths = []float64{10, 10, 16, 6, 40, 10, 30, 18}

// WriteXLSX renders records as a workbook with a styled, frozen header row.
func WriteXLSX(w io.Writer, records []inquiry.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#FFE0B2"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]any, len(inquiry.Columns))
	for i, c := range inquiry.Columns {
		header[i] = c.Label
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		// Phone numbers stay text so leading zeros survive.
		row := []any{
			r.Owner, r.Name, r.Phone, r.Gender, r.Inquiry,
			r.Status.Label(), r.Note, r.UpdatedAt,
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
