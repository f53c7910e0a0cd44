package generate_excel

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"kpi-dashboard/internal/constants"
	"kpi-dashboard/internal/session"
	"kpi-dashboard/internal/storage"
)

const reportsSheet = "Reports"

var recordHeaders = []string{
	"Shift", "Date", "Shift Code", "Day", "Month", "Year", "Weekday", "Week", "Assigned Month",
	"Value", "Machine", "Operator", "Coordinator",
}

var reportHeaders = []string{
	"Machine", "Indicator", "File", "Rows", "Dropped", "Total", "Succeeded", "Failed", "Warnings", "Valid", "Errors",
}

type SessionGetter interface {
	Get(id string) (*session.Entry, error)
}

type GenerateExcelService struct {
	sessions SessionGetter
}

func NewGenerateService(sessions SessionGetter) *GenerateExcelService {
	return &GenerateExcelService{sessions: sessions}
}

// GenerateExcel renders the dataset cached under sessionID as an xlsx workbook.
func (g *GenerateExcelService) GenerateExcel(ctx context.Context, sessionID string) ([]byte, error) {
	const op = "service.generate_excel.GenerateExcel"

	entry, err := g.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var buf bytes.Buffer
	if err := WriteDataset(&buf, entry.Dataset); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return buf.Bytes(), nil
}

// WriteDataset writes one sheet per indicator table, in indicator order, followed
// by a sheet with the per-file validation reports.
func WriteDataset(w io.Writer, ds *storage.ConsolidatedDataset) error {
	const op = "service.generate_excel.WriteDataset"

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 2}},
	})
	if err != nil {
		return fmt.Errorf("%s: header style: %w", op, err)
	}

	first := f.GetSheetName(0)
	sheets := 0
	for _, name := range constants.IndicatorNames() {
		records, ok := ds.Tables[name]
		if !ok {
			continue
		}
		sheet := name
		if sheets == 0 {
			if err := f.SetSheetName(first, sheet); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		sheets++

		if err := writeHeader(f, sheet, recordHeaders, headerStyle); err != nil {
			return fmt.Errorf("%s: %s: %w", op, sheet, err)
		}
		for i, r := range records {
			if err := f.SetSheetRow(sheet, cellName(1, i+2), recordRow(r)); err != nil {
				return fmt.Errorf("%s: %s row %d: %w", op, sheet, i+2, err)
			}
		}
	}

	if sheets == 0 {
		if err := f.SetSheetName(first, reportsSheet); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	} else if _, err := f.NewSheet(reportsSheet); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := writeHeader(f, reportsSheet, reportHeaders, headerStyle); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for i, fr := range ds.Reports {
		if err := f.SetSheetRow(reportsSheet, cellName(1, i+2), reportRow(fr)); err != nil {
			return fmt.Errorf("%s: reports row %d: %w", op, i+2, err)
		}
	}

	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("%s: write workbook: %w", op, err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return err
	}

	lastCol, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", lastCol, style); err != nil {
		return err
	}

	// freeze the header row
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	lastName, _ := excelize.ColumnNumberToName(len(headers))
	return f.SetColWidth(sheet, "A", lastName, 15)
}

func recordRow(r storage.IndicatorRecord) *[]any {
	var value any
	if r.Value != nil {
		value = *r.Value
	}
	row := []any{
		r.ShiftLabel, r.DateStr, r.Shift, r.Day, r.Month, r.Year, r.Weekday, r.Week, r.AssignedMonth,
		value, r.Machine, r.Operator, r.Coordinator,
	}
	return &row
}

func reportRow(fr storage.FileReport) *[]any {
	s := fr.Summary
	row := []any{
		fr.Machine, fr.Indicator, fr.Filename, fr.Rows, fr.Dropped,
		s.Total, s.Succeeded, s.Failed, s.Warnings, s.Valid, strings.Join(s.Errors, "; "),
	}
	return &row
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
