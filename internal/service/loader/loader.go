package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Read loads a .csv, .xlsx or .xls sheet, skipping skipRows rows above the header.
func Read(filename string, r io.Reader, skipRows int) (*Table, error) {
	const op = "service.loader.Read"

	var (
		records [][]string
		err     error
	)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		records, err = readCSV(r)
	case ".xlsx", ".xls":
		records, err = readWorkbook(r)
	default:
		return nil, fmt.Errorf("%s: unsupported extension %q", op, filepath.Ext(filename))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, filename, err)
	}

	return buildTable(records, skipRows)
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return records, nil
}

func readWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	return f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
}

func buildTable(records [][]string, skipRows int) (*Table, error) {
	if len(records) <= skipRows {
		return nil, errors.New("file has no header row")
	}

	header := records[skipRows]
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	t := &Table{Columns: columns}
	for _, rec := range records[skipRows+1:] {
		if blank(rec) {
			continue
		}
		row := make([]string, len(columns))
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
