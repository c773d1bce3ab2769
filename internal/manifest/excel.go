package manifest

import (
	"fmt"
	"io"
	"time"

	"github.com/kenlai212/booking-api-sub001/internal/model"
	"github.com/kenlai212/booking-api-sub001/internal/slots"
	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

var occupancyColumns = []string{"ID", "Start", "End", "Duration (min)", "Type", "Reference", "Status"}

var slotColumns = []string{"Slot", "Start", "End", "Available"}

// Writer builds a daily manifest workbook for one asset.
type Writer struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
	loc          *time.Location
}

// NewWriter creates a workbook that renders times in loc.
func NewWriter(loc *time.Location) *Writer {
	if loc == nil {
		loc = time.UTC
	}
	return &Writer{file: excelize.NewFile(), loc: loc}
}

// AddSheet starts a new sheet; the first call renames the default one.
func (w *Writer) AddSheet(name string) error {
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}

	if w.currentSheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else {
		if _, err := w.file.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

// WriteHeader writes bold column headers to the current sheet.
func (w *Writer) WriteHeader(columns []string) error {
	if err := w.writeRow(stringsToValues(columns)); err != nil {
		return err
	}

	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, w.currentRow-1)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow-1)
		_ = w.file.SetCellStyle(w.currentSheet, startCell, endCell, style)
	}
	return nil
}

// WriteRow writes a data row to the current sheet.
func (w *Writer) WriteRow(row []interface{}) error {
	return w.writeRow(row)
}

func (w *Writer) writeRow(row []interface{}) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}
	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, val); err != nil {
			return err
		}
	}
	w.currentRow++
	return nil
}

// WriteOccupancies adds a sheet listing the day's occupancies.
func (w *Writer) WriteOccupancies(date string, occupancies []model.Occupancy) error {
	if err := w.AddSheet(date); err != nil {
		return err
	}
	if err := w.WriteHeader(occupancyColumns); err != nil {
		return err
	}
	for i := range occupancies {
		o := &occupancies[i]
		row := []interface{}{
			o.ID,
			o.StartTime.In(w.loc).Format(time.DateTime),
			o.EndTime.In(w.loc).Format(time.DateTime),
			int(o.Duration().Round(time.Minute) / time.Minute),
			o.ReferenceType,
			o.ReferenceID,
			o.Status,
		}
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteSlots adds a sheet with the day's slot grid.
func (w *Writer) WriteSlots(name string, grid []slots.Slot) error {
	if err := w.AddSheet(name); err != nil {
		return err
	}
	if err := w.WriteHeader(slotColumns); err != nil {
		return err
	}
	for _, s := range grid {
		available := "no"
		if s.Available {
			available = "yes"
		}
		row := []interface{}{
			s.Index,
			s.StartTime.In(w.loc).Format(time.TimeOnly),
			s.EndTime.In(w.loc).Format(time.TimeOnly),
			available,
		}
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the workbook to wr.
func (w *Writer) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

// SaveToFile writes the workbook to disk.
func (w *Writer) SaveToFile(path string) error {
	return w.file.SaveAs(path)
}

func (w *Writer) Close() error {
	return w.file.Close()
}

// Filename names a manifest like "boat-1_2026-01-15.xlsx".
func Filename(assetID, date string) string {
	return fmt.Sprintf("%s_%s.xlsx", assetID, date)
}

func stringsToValues(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
