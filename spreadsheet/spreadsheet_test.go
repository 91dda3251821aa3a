package spreadsheet_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/inquiry-desk/inquiry"
	"github.com/warp/inquiry-desk/spreadsheet"
)

func uploadWorkbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return &buf
}

func TestReadUpload_XLSX(t *testing.T) {
	// GIVEN: A workbook using the alternate phone column and an extra column
	buf := uploadWorkbook(t, [][]any{
		{"담당자", "이름", "전화번호", "성별", "문의내용", "비고"},
		{"Kim", "Park", "010-1", "F", "loan", "x"},
	})

	// WHEN: Read and imported
	sheet, err := spreadsheet.ReadUpload(buf, "1월DB.XLSX")
	require.NoError(t, err)
	records, err := inquiry.ImportRecords(sheet)

	// THEN: The alias is honoured and the extra column dropped
	require.NoError(t, err)
	assert.Equal(t, []inquiry.Record{{
		Owner: "Kim", Name: "Park", Phone: "010-1", Gender: "F", Inquiry: "loan",
		Status: inquiry.StatusUnprocessed,
	}}, records)
}

func TestReadUpload_CSV(t *testing.T) {
	in := "\uFEFF담당자,이름,휴대전화,성별,문의내용\nLee,Choi,010-2,M,card\n"

	sheet, err := spreadsheet.ReadUpload(strings.NewReader(in), "upload.csv")

	require.NoError(t, err)
	assert.Equal(t, []string{"담당자", "이름", "휴대전화", "성별", "문의내용"}, sheet.Header)
	assert.Equal(t, [][]string{{"Lee", "Choi", "010-2", "M", "card"}}, sheet.Rows)
}

func TestReadUpload_RejectsLegacyXLS(t *testing.T) {
	_, err := spreadsheet.ReadUpload(strings.NewReader("x"), "old.xls")
	assert.ErrorIs(t, err, spreadsheet.ErrUnsupportedFormat)
}

func TestReadUpload_CorruptWorkbook(t *testing.T) {
	_, err := spreadsheet.ReadUpload(strings.NewReader("not a zip"), "bad.xlsx")
	assert.Error(t, err)
}

func TestWriteXLSX_RoundTrip(t *testing.T) {
	records := []inquiry.Record{
		{Owner: "Kim", Name: "Park", Phone: "010-1", Gender: "F", Inquiry: "loan",
			Status: inquiry.StatusDone, Note: "called back", UpdatedAt: "2025-01-01 10:00"},
		{Owner: "Lee", Name: "Choi", Phone: "010-2", Gender: "M", Inquiry: "card",
			Status: inquiry.StatusUnprocessed},
	}

	var buf bytes.Buffer
	require.NoError(t, spreadsheet.WriteXLSX(&buf, records))

	sheet, err := spreadsheet.ReadXLSX(&buf)
	require.NoError(t, err)

	assert.Equal(t, "담당자", sheet.Header[0])
	assert.Equal(t, "수정일시", sheet.Header[7])
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, []string{"Kim", "Park", "010-1", "F", "loan", "완료", "called back", "2025-01-01 10:00"}, sheet.Rows[0])

	reimported, err := inquiry.ImportRecords(sheet)
	require.NoError(t, err)
	assert.Equal(t, "Choi", reimported[1].Name)
}
