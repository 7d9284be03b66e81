package scan

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"pilroi/internal/parallel"
)

// Crop restricts every normalized frame to columns [lim1, lim2) and records
// the row-major first maximum of each crop as its peak pixel. Crops are
// always taken from the normalized frames, so repeating Crop with the same
// window gives the same result. On error the scan is left unchanged.
func (s *Scan) Crop(lim1, lim2 int) error {
	if lim1 < 0 || lim1 >= lim2 || (s.Len() > 0 && lim2 > s.frameCols) {
		return fmt.Errorf("%w: [%d, %d) on %d columns", ErrInvalidCropWindow, lim1, lim2, s.frameCols)
	}

	n := s.Len()
	crop := make([]*mat.Dense, n)
	peakX := make([]int, n)
	peakY := make([]int, n)

	err := parallel.For(n, 0, func(i int) error {
		c := mat.DenseCopyOf(s.norm[i].Slice(0, s.frameRows, lim1, lim2))
		crop[i] = c
		peakX[i], peakY[i] = argmax(c)
		return nil
	})
	if err != nil {
		return err
	}

	s.crop, s.peakX, s.peakY = crop, peakX, peakY
	s.lim1, s.lim2 = lim1, lim2
	s.cropped = true
	return nil
}

// argmax returns the column and row of the first maximum in row-major order
func argmax(m *mat.Dense) (x, y int) {
	raw := m.RawMatrix()
	best, bestRow, bestCol := 0.0, 0, 0
	for r := 0; r < raw.Rows; r++ {
		row := raw.Data[r*raw.Stride : r*raw.Stride+raw.Cols]
		col := floats.MaxIdx(row)
		if r == 0 || row[col] > best {
			best, bestRow, bestCol = row[col], r, col
		}
	}
	return bestCol, bestRow
}

// Profile averages the normalized frames over all points and sums the
// result along the row axis, giving intensity per detector column.
func (s *Scan) Profile() ([]float64, error) {
	if s.Len() == 0 {
		return nil, ErrEmptyScan
	}

	mean := mat.NewDense(s.frameRows, s.frameCols, nil)
	for _, f := range s.norm {
		mean.Add(mean, f)
	}
	mean.Scale(1/float64(s.Len()), mean)

	profile := make([]float64, s.frameCols)
	for x := range profile {
		profile[x] = mat.Sum(mean.ColView(x))
	}
	return profile, nil
}

// SuggestCropWindow proposes [lim1, lim2) of the given width around the
// brightest column of the mean profile, or around center when non-nil.
// The bounds are truncated toward zero, so odd widths may be off by one;
// treat the result as a starting point, not an exact window.
func (s *Scan) SuggestCropWindow(width int, center *int) (lim1, lim2 int, err error) {
	if width <= 0 {
		return 0, 0, fmt.Errorf("%w: window width %d", ErrInvalidCropWindow, width)
	}

	var c int
	if center != nil {
		c = *center
	} else {
		profile, err := s.Profile()
		if err != nil {
			return 0, 0, err
		}
		c = floats.MaxIdx(profile)
	}

	half := float64(width) / 2
	return int(float64(c) - half), int(float64(c) + half), nil
}
