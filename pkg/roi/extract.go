package roi

import (
	"fmt"

	"pilroi/internal/parallel"
	"pilroi/pkg/scan"
)

// Selection chooses the mask applied to each scan point. It is either
// Fixed (one mask for every point) or PerPoint (mask i for point i).
type Selection interface {
	maskFor(i int) *Mask
	validate(n int) error
}

// Fixed applies one mask to every point
type Fixed struct {
	Mask *Mask
}

func (f Fixed) maskFor(int) *Mask { return f.Mask }

func (f Fixed) validate(int) error {
	if f.Mask == nil {
		return fmt.Errorf("fixed selection has no mask")
	}
	return nil
}

// PerPoint applies mask i to point i
type PerPoint []*Mask

func (p PerPoint) maskFor(i int) *Mask { return p[i] }

func (p PerPoint) validate(n int) error {
	if len(p) != n {
		return fmt.Errorf("%w: %d masks for %d scan points", scan.ErrLengthMismatch, len(p), n)
	}
	for i, m := range p {
		if m == nil {
			return fmt.Errorf("point %d: no mask", i)
		}
	}
	return nil
}

// Extract integrates each point's crop frame through its mask and returns
// one value per point in scan order.
func Extract(s *scan.Scan, sel Selection) ([]float64, error) {
	if !s.IsCropped() {
		return nil, scan.ErrNotCropped
	}
	if err := sel.validate(s.Len()); err != nil {
		return nil, err
	}

	signal := make([]float64, s.Len())
	err := parallel.For(s.Len(), 0, func(i int) error {
		v, err := sel.maskFor(i).Integrate(s.Cropped(i))
		if err != nil {
			return &PointError{Index: i, Err: err}
		}
		signal[i] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return signal, nil
}

// TrackCenter builds one mask per point whose horizontal center is that
// point's peak column. Vertical center and size are shared by all points.
func TrackCenter(s *scan.Scan, ceny, height, width int) (PerPoint, error) {
	if !s.IsCropped() {
		return nil, scan.ErrNotCropped
	}
	if err := checkDimensions(height, width); err != nil {
		return nil, err
	}

	masks := make(PerPoint, s.Len())
	for i := range masks {
		rows, cols := s.Cropped(i).Dims()
		peakX, _ := s.Peak(i)
		m, err := MakeMask(rows, cols, peakX, ceny, height, width)
		if err != nil {
			return nil, &PointError{Index: i, Err: err}
		}
		masks[i] = m
	}
	return masks, nil
}

// PointError identifies the scan point at which an ROI operation failed
type PointError struct {
	Index int
	Err   error
}

func (e *PointError) Error() string {
	return fmt.Sprintf("point %d: %v", e.Index, e.Err)
}

func (e *PointError) Unwrap() error {
	return e.Err
}
