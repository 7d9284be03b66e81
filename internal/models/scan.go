package models

import (
	"errors"
	"fmt"
	"strings"
)

// Primary detector geometry (Pilatus 100K at BL 7-2).
const (
	DetectorRows = 195
	DetectorCols = 487
)

// ErrUnsupportedLayout is returned when a beamline layout is not one of the
// known column sets.
var ErrUnsupportedLayout = errors.New("unsupported metadata layout")

// Layout selects which beamline column set a scan's metadata carries
type Layout int

const (
	// LayoutUnknown is the zero value and is never valid
	LayoutUnknown Layout = iota

	// BL72 scans record reciprocal-space coordinates: h, k, l, monitor, foils
	BL72

	// BL21 scans record angles: twotheta, theta, monitor, foils, normalized
	BL21
)

// Column names shared by every layout
const (
	ColumnMonitor = "monitor"
	ColumnFoils   = "foils"
)

// ParseLayout maps an operator-facing beamline tag ("72", "bl72", "21", ...)
// to a Layout.
func ParseLayout(tag string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "72", "bl72", "7-2":
		return BL72, nil
	case "21", "bl21", "2-1":
		return BL21, nil
	}
	return LayoutUnknown, fmt.Errorf("%w: %q (must be 72 or 21)", ErrUnsupportedLayout, tag)
}

// Valid reports whether l is one of the known layouts
func (l Layout) Valid() bool {
	return l == BL72 || l == BL21
}

func (l Layout) String() string {
	switch l {
	case BL72:
		return "72"
	case BL21:
		return "21"
	}
	return "unknown"
}

// Columns returns the required metadata columns, in table order
func (l Layout) Columns() []string {
	switch l {
	case BL72:
		return []string{"h", "k", "l", ColumnMonitor, ColumnFoils}
	case BL21:
		return []string{"twotheta", "theta", ColumnMonitor, ColumnFoils, "normalized"}
	}
	return nil
}

// AxisColumns returns the layout columns other than monitor and foils
func (l Layout) AxisColumns() []string {
	var axes []string
	for _, c := range l.Columns() {
		if c != ColumnMonitor && c != ColumnFoils {
			axes = append(axes, c)
		}
	}
	return axes
}

// MetadataRow is one scan point as read from the scan table. Row order is
// scan order and lines up positionally with the frame list.
type MetadataRow struct {
	// Monitor is the incident-beam monitor count
	Monitor float64

	// FoilCode is the decimal-encoded foil insertion mask (0011 is stored as 11)
	FoilCode int

	// Axes holds the layout-specific motor/coordinate columns keyed by
	// lower-case column name
	Axes map[string]float64
}

// Value returns a numeric column of the row by lower-case name
func (r MetadataRow) Value(name string) (float64, bool) {
	switch name {
	case ColumnMonitor:
		return r.Monitor, true
	case ColumnFoils:
		return float64(r.FoilCode), true
	}
	v, ok := r.Axes[name]
	return v, ok
}

// Motors holds the motor positions and calibrated detector parameters read
// from a frame's .raw.pdi sidecar
type Motors struct {
	Th    float64
	TTh   float64
	Chi   float64
	Phi   float64
	Gamma float64
	Mu    float64

	PDX     float64
	PDY     float64
	PDDist  float64
	PDAlpha float64
	PDDelta float64
	Lambda  float64
}
