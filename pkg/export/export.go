// Package export writes the per-point result table of a reduced scan as
// CSV or XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"pilroi/pkg/scan"
)

// ColumnSignal is the name of the integrated ROI intensity column
const ColumnSignal = "signal"

// Table holds one row per scan point
type Table struct {
	Header []string
	Rows   [][]float64
}

// Build collects every numeric scan column plus the ROI signal
func Build(s *scan.Scan, signal []float64) (*Table, error) {
	if len(signal) != s.Len() {
		return nil, fmt.Errorf("%w: %d signal values for %d scan points", scan.ErrLengthMismatch, len(signal), s.Len())
	}

	header := s.Columns()
	columns := make([][]float64, len(header))
	for j, name := range header {
		col, err := s.Column(name)
		if err != nil {
			return nil, err
		}
		columns[j] = col
	}
	header = append(header, ColumnSignal)
	columns = append(columns, signal)

	t := &Table{Header: header, Rows: make([][]float64, s.Len())}
	for i := range t.Rows {
		row := make([]float64, len(columns))
		for j, col := range columns {
			row[j] = col[i]
		}
		t.Rows[i] = row
	}
	return t, nil
}

// WriteCSV writes the table with a header row
func WriteCSV(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Header); err != nil {
		return err
	}

	record := make([]string, len(t.Header))
	for _, row := range t.Rows {
		for j, v := range row {
			record[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// SaveXLSX writes the table to a single-sheet workbook
func SaveXLSX(path string, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Scan"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	header := make([]interface{}, len(t.Header))
	for j, h := range t.Header {
		header[j] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := sw.SetRow(cell, values); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}

	return f.SaveAs(path)
}

// Save writes the table as XLSX or CSV depending on the file extension
func Save(path string, t *Table) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating output directory: %w", err)
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return SaveXLSX(path, t)
	case ".csv", "":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := WriteCSV(f, t); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return fmt.Errorf("unsupported output format %q (use .csv or .xlsx)", filepath.Ext(path))
}
