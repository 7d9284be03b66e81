// Package metadata reads the per-point scan table written by the beamline
// control software and turns it into layout-specific MetadataRows.
package metadata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"pilroi/internal/models"
)

var (
	// ErrMissingColumn is returned when a layout column is absent from the table
	ErrMissingColumn = errors.New("missing column")

	// ErrMalformedValue is returned when a layout column holds a non-numeric value
	ErrMalformedValue = errors.New("malformed value")
)

// Table is a parsed scan table. Column names are trimmed and lower-cased.
type Table struct {
	Columns []string
	Records [][]string

	index map[string]int
}

// ReadCSV loads a scan table from a .csv file
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error reading scan table: %w", err)
	}
	defer f.Close()

	t, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("error parsing scan table %s: %w", path, err)
	}
	return t, nil
}

// ParseCSV parses a scan table with a header row from r
func ParseCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty table")
	}
	if err != nil {
		return nil, err
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	return NewTable(header, records), nil
}

// NewTable builds a Table, normalizing column names
func NewTable(header []string, records [][]string) *Table {
	t := &Table{
		Columns: make([]string, len(header)),
		Records: records,
		index:   make(map[string]int, len(header)),
	}
	for i, name := range header {
		name = normalize(name)
		t.Columns[i] = name
		if _, dup := t.index[name]; !dup {
			t.index[name] = i
		}
	}
	return t
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Len returns the number of data rows
func (t *Table) Len() int {
	return len(t.Records)
}

// Has reports whether the table carries the named column
func (t *Table) Has(name string) bool {
	_, ok := t.index[normalize(name)]
	return ok
}

// Float returns column name of row i as a number
func (t *Table) Float(i int, name string) (float64, error) {
	col, ok := t.index[normalize(name)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	rec := t.Records[i]
	if col >= len(rec) {
		return 0, fmt.Errorf("%w: row %d has no %q value", ErrMalformedValue, i, name)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[col]), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: row %d column %q: %v", ErrMalformedValue, i, name, err)
	}
	return v, nil
}

// Rows selects the layout's column set and returns one MetadataRow per
// table row, in table order. All required columns are checked before any
// row is converted.
func (t *Table) Rows(layout models.Layout) ([]models.MetadataRow, error) {
	if !layout.Valid() {
		return nil, fmt.Errorf("%w: %v", models.ErrUnsupportedLayout, layout)
	}
	for _, c := range layout.Columns() {
		if !t.Has(c) {
			return nil, fmt.Errorf("%w: %q required by layout %s", ErrMissingColumn, c, layout)
		}
	}

	axes := layout.AxisColumns()
	rows := make([]models.MetadataRow, t.Len())
	for i := range rows {
		monitor, err := t.Float(i, models.ColumnMonitor)
		if err != nil {
			return nil, err
		}
		foils, err := t.Float(i, models.ColumnFoils)
		if err != nil {
			return nil, err
		}
		if math.IsInf(foils, 0) || math.IsNaN(foils) || math.Abs(foils) > math.MaxInt32 {
			return nil, fmt.Errorf("%w: row %d foil code %v is out of range", ErrMalformedValue, i, foils)
		}
		if foils != math.Trunc(foils) {
			return nil, fmt.Errorf("%w: row %d foil code %v is not an integer", ErrMalformedValue, i, foils)
		}

		row := models.MetadataRow{
			Monitor:  monitor,
			FoilCode: int(foils),
			Axes:     make(map[string]float64, len(axes)),
		}
		for _, c := range axes {
			v, err := t.Float(i, c)
			if err != nil {
				return nil, err
			}
			row.Axes[c] = v
		}
		rows[i] = row
	}
	return rows, nil
}
