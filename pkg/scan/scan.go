// Package scan assembles scan-table rows and detector frames into a single
// ordered dataset and derives the normalized and cropped frames from it.
//
// A Scan is an arena of parallel vectors that share one positional index:
// metadata row i, raw frame i, normalized frame i and, once cropped, crop
// frame i and peak pixel i all describe the same scan point. The index is
// never re-sorted.
package scan

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"pilroi/internal/models"
)

var (
	// ErrLengthMismatch is returned when parallel inputs differ in length
	ErrLengthMismatch = errors.New("length mismatch")

	// ErrDivideByZeroMonitor is returned for scan points with a zero monitor count
	ErrDivideByZeroMonitor = errors.New("monitor count is zero")

	// ErrInvalidCropWindow is returned when a crop window is outside the frame
	ErrInvalidCropWindow = errors.New("invalid crop window")

	// ErrUnknownColumn is returned when a named column does not exist on the scan
	ErrUnknownColumn = errors.New("unknown column")

	// ErrNotCropped is returned by operations that need crop frames before Crop ran
	ErrNotCropped = errors.New("scan has not been cropped")

	// ErrEmptyScan is returned by reductions that need at least one point
	ErrEmptyScan = errors.New("scan is empty")
)

// Derived column names
const (
	ColumnAttenuation = "attenuation"
	ColumnPeakX       = "px_x"
	ColumnPeakY       = "px_y"
)

// Scan is the ordered, progressively annotated dataset
type Scan struct {
	layout models.Layout

	rows        []models.MetadataRow
	attenuation []float64
	raw         []*mat.Dense
	norm        []*mat.Dense

	frameRows int
	frameCols int

	// Set together by Crop
	cropped bool
	lim1    int
	lim2    int
	crop    []*mat.Dense
	peakX   []int
	peakY   []int
}

// Len returns the number of scan points
func (s *Scan) Len() int {
	return len(s.rows)
}

// Layout returns the metadata layout the scan was assembled with
func (s *Scan) Layout() models.Layout {
	return s.layout
}

// FrameShape returns the detector frame dimensions (0, 0 for an empty scan)
func (s *Scan) FrameShape() (rows, cols int) {
	return s.frameRows, s.frameCols
}

// Row returns the metadata of point i
func (s *Scan) Row(i int) models.MetadataRow {
	return s.rows[i]
}

// Attenuation returns the foil transmission correction of point i
func (s *Scan) Attenuation(i int) float64 {
	return s.attenuation[i]
}

// Raw returns the raw frame of point i. Callers must not modify it.
func (s *Scan) Raw(i int) mat.Matrix {
	return s.raw[i]
}

// Normalized returns raw x attenuation / monitor for point i
func (s *Scan) Normalized(i int) mat.Matrix {
	return s.norm[i]
}

// IsCropped reports whether Crop has annotated the scan
func (s *Scan) IsCropped() bool {
	return s.cropped
}

// Window returns the crop window [lim1, lim2) of the last successful Crop
func (s *Scan) Window() (lim1, lim2 int) {
	return s.lim1, s.lim2
}

// Cropped returns the crop frame of point i
func (s *Scan) Cropped(i int) mat.Matrix {
	return s.crop[i]
}

// Peak returns the maximum-intensity pixel of crop frame i
func (s *Scan) Peak(i int) (x, y int) {
	return s.peakX[i], s.peakY[i]
}

// Columns lists the numeric columns currently available on the scan
func (s *Scan) Columns() []string {
	cols := append([]string{}, s.layout.Columns()...)
	cols = append(cols, ColumnAttenuation)
	if s.cropped {
		cols = append(cols, ColumnPeakX, ColumnPeakY)
	}
	return cols
}

// Column returns a numeric column by name, case-insensitively
func (s *Scan) Column(name string) ([]float64, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	out := make([]float64, s.Len())

	switch key {
	case ColumnAttenuation:
		copy(out, s.attenuation)
		return out, nil
	case ColumnPeakX, ColumnPeakY:
		if !s.cropped {
			return nil, fmt.Errorf("%w: %q (%v)", ErrUnknownColumn, name, ErrNotCropped)
		}
		src := s.peakX
		if key == ColumnPeakY {
			src = s.peakY
		}
		for i, v := range src {
			out[i] = float64(v)
		}
		return out, nil
	}

	known := false
	for _, c := range s.layout.Columns() {
		if c == key {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	for i, r := range s.rows {
		v, _ := r.Value(key)
		out[i] = v
	}
	return out, nil
}

// NearestIndex returns the index whose value in column is closest to
// target. Ties go to the lowest index.
func (s *Scan) NearestIndex(column string, target float64) (int, error) {
	values, err := s.Column(column)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, ErrEmptyScan
	}

	best := 0
	bestDist := math.Abs(values[0] - target)
	for i := 1; i < len(values); i++ {
		if d := math.Abs(values[i] - target); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, nil
}

// MedianPeakY returns the median peak row, used to pick vertical display
// limits around the feature.
func (s *Scan) MedianPeakY() (float64, error) {
	if !s.cropped {
		return 0, ErrNotCropped
	}
	if s.Len() == 0 {
		return 0, ErrEmptyScan
	}
	ys := make([]float64, len(s.peakY))
	for i, v := range s.peakY {
		ys[i] = float64(v)
	}
	sort.Float64s(ys)
	return stat.Quantile(0.5, stat.Empirical, ys, nil), nil
}

// PeakDrift summarizes horizontal motion of the peak pixel across the scan
type PeakDrift struct {
	Mean   float64
	StdDev float64
	Min    int
	Max    int
}

// PeakSummary returns the mean, standard deviation and range of peakX
func (s *Scan) PeakSummary() (PeakDrift, error) {
	if !s.cropped {
		return PeakDrift{}, ErrNotCropped
	}
	if s.Len() == 0 {
		return PeakDrift{}, ErrEmptyScan
	}

	xs := make([]float64, len(s.peakX))
	d := PeakDrift{Min: s.peakX[0], Max: s.peakX[0]}
	for i, v := range s.peakX {
		xs[i] = float64(v)
		if v < d.Min {
			d.Min = v
		}
		if v > d.Max {
			d.Max = v
		}
	}
	d.Mean, d.StdDev = stat.MeanStdDev(xs, nil)
	return d, nil
}
