package loader

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestRead_CSVSkipsMetadataRows(t *testing.T) {
	data := "Report: MTBF,\nExported 2025-02-01,\n Shift , MTBF \nS1 01-02-2025,120\n,\nS2 01-02-2025,\n"

	table, err := Read("MTBF_shift_data.csv", strings.NewReader(data), 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"Shift", "MTBF"}, table.Columns)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, []string{"S1 01-02-2025", "S2 01-02-2025"}, table.Column("Shift"))
	assert.Equal(t, []string{"120", ""}, table.Column("MTBF"))
}

func TestRead_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A1", "Reject Rate export"))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"Shift", "Reject Rate"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"S1 03-02-2025", 0.25}))
	require.NoError(t, f.SetSheetRow(sheet, "A5", &[]any{"S2 03-02-2025", 0.5}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	table, err := Read("Reject Rate KDF.xlsx", bytes.NewReader(buf.Bytes()), 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"Shift", "Reject Rate"}, table.Columns)
	assert.Equal(t, []string{"0.25", "0.5"}, table.Column("Reject Rate"))
}

func TestRead_Errors(t *testing.T) {
	_, err := Read("MTBF.txt", strings.NewReader("a"), 2)
	assert.Error(t, err)

	_, err = Read("MTBF.csv", strings.NewReader("only\none\n"), 2)
	assert.Error(t, err)

	_, err = Read("MTBF.xlsx", strings.NewReader("not a workbook"), 2)
	assert.Error(t, err)
}

func TestNumericColumns(t *testing.T) {
	table := &Table{
		Columns: []string{"Shift", "300", "301", "Notes", "Empty"},
		Rows: [][]string{
			{"S1 01-02-2025", "1.5", "", "ok", ""},
			{"S2 01-02-2025", "2", "3", "", ""},
		},
	}

	assert.Equal(t, []string{"300", "301"}, table.NumericColumns("Shift"))
}

func TestParseNumber(t *testing.T) {
	v, ok, err := ParseNumber(" 12.5 ")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)

	_, ok, err = ParseNumber("NaN")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = ParseNumber("twelve")
	assert.Error(t, err)
}

func TestSelect(t *testing.T) {
	table := &Table{Columns: []string{"Shift"}, Rows: [][]string{{"a"}, {"b"}, {"c"}}}
	assert.Equal(t, []string{"a", "c"}, table.Select([]int{0, 2}).Column("Shift"))
}
