// Package roi builds rectangular region-of-interest masks and integrates
// cropped scan frames through them, optionally moving the mask with the
// tracked peak pixel of each point.
package roi

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidROIDimensions is returned for even or non-positive ROI sizes
	ErrInvalidROIDimensions = errors.New("invalid ROI dimensions")

	// ErrROIOutOfBounds is returned when an ROI would extend past the frame edge
	ErrROIOutOfBounds = errors.New("ROI out of bounds")

	// ErrMaskShape is returned when a mask does not match the crop frame shape
	ErrMaskShape = errors.New("mask shape does not match frame")
)

// Mask is a 0/1 matrix holding exactly one axis-aligned rectangle of ones
type Mask struct {
	CenX, CenY    int
	Height, Width int

	data *mat.Dense
}

// MakeMask builds a rows x cols mask with a height x width rectangle of
// ones centered on (cenx, ceny). Both sizes must be odd so the center has
// equal margins. A rectangle that does not fit inside the frame is an
// error; it is never clipped.
func MakeMask(rows, cols, cenx, ceny, height, width int) (*Mask, error) {
	if err := checkDimensions(height, width); err != nil {
		return nil, err
	}
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: frame %dx%d", ErrROIOutOfBounds, rows, cols)
	}

	relH, relW := height/2, width/2
	y0, y1 := ceny-relH, ceny+relH
	x0, x1 := cenx-relW, cenx+relW
	if y0 < 0 || x0 < 0 || y1 >= rows || x1 >= cols {
		return nil, fmt.Errorf("%w: %dx%d window at (%d,%d) spans x[%d,%d] y[%d,%d] on %dx%d frame",
			ErrROIOutOfBounds, height, width, cenx, ceny, x0, x1, y0, y1, rows, cols)
	}

	data := mat.NewDense(rows, cols, nil)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			data.Set(y, x, 1)
		}
	}

	return &Mask{CenX: cenx, CenY: ceny, Height: height, Width: width, data: data}, nil
}

func checkDimensions(height, width int) error {
	if height <= 0 || width <= 0 || height%2 == 0 || width%2 == 0 {
		return fmt.Errorf("%w: %dx%d (height and width must be odd and positive)", ErrInvalidROIDimensions, height, width)
	}
	return nil
}

// Dims returns the frame shape of the mask
func (m *Mask) Dims() (rows, cols int) {
	return m.data.Dims()
}

// Contains reports whether pixel (x, y) is inside the ROI. Pixels outside
// the frame are never inside.
func (m *Mask) Contains(x, y int) bool {
	rows, cols := m.data.Dims()
	if x < 0 || y < 0 || x >= cols || y >= rows {
		return false
	}
	return m.data.At(y, x) == 1
}

// Count returns the number of selected pixels
func (m *Mask) Count() int {
	return m.Height * m.Width
}

// Matrix exposes the mask as a read-only 0/1 matrix
func (m *Mask) Matrix() mat.Matrix {
	return m.data
}

// Integrate sums frame over the masked pixels
func (m *Mask) Integrate(frame mat.Matrix) (float64, error) {
	fr, fc := frame.Dims()
	mr, mc := m.Dims()
	if fr != mr || fc != mc {
		return 0, fmt.Errorf("%w: mask %dx%d, frame %dx%d", ErrMaskShape, mr, mc, fr, fc)
	}

	var masked mat.Dense
	masked.MulElem(frame, m.data)
	return mat.Sum(&masked), nil
}
