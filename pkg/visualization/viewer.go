package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"pilroi/pkg/scan"
)

// Viewer renders cropped scan frames on a logarithmic gray scale. It only
// reads from the scan.
type Viewer struct {
	scan *scan.Scan

	// intensity range mapped to black..white
	vmin float64
	vmax float64
}

// NewViewer creates a viewer for a cropped scan
func NewViewer(s *scan.Scan, vmin, vmax float64) (*Viewer, error) {
	if !s.IsCropped() {
		return nil, scan.ErrNotCropped
	}
	if vmin <= 0 || vmax <= vmin {
		return nil, fmt.Errorf("invalid intensity range [%g, %g]", vmin, vmax)
	}
	return &Viewer{scan: s, vmin: vmin, vmax: vmax}, nil
}

// RenderPoint draws the crop frame of point idx. Rows are limited to
// yHalf around the median peak row when yHalf > 0, and the peak pixel is
// marked in red when markPeak is set.
func (v *Viewer) RenderPoint(idx int, markPeak bool, yHalf int) (image.Image, error) {
	if idx < 0 || idx >= v.scan.Len() {
		return nil, fmt.Errorf("index %d out of range [0, %d)", idx, v.scan.Len())
	}

	frame := v.scan.Cropped(idx)
	rows, cols := frame.Dims()

	top, bottom := 0, rows
	if yHalf > 0 {
		med, err := v.scan.MedianPeakY()
		if err != nil {
			return nil, err
		}
		top = int(math.Max(0, med-float64(yHalf)))
		bottom = int(math.Min(float64(rows), med+float64(yHalf)+1))
	}

	img := image.NewRGBA64(image.Rect(0, 0, cols, bottom-top))
	for y := top; y < bottom; y++ {
		for x := 0; x < cols; x++ {
			g := v.logScale(frame.At(y, x))
			img.SetRGBA64(x, y-top, color.RGBA64{R: g, G: g, B: g, A: 0xffff})
		}
	}

	if markPeak {
		px, py := v.scan.Peak(idx)
		if py >= top && py < bottom {
			img.SetRGBA64(px, py-top, color.RGBA64{R: 0xffff, A: 0xffff})
		}
	}

	return img, nil
}

// logScale maps an intensity to a 16-bit gray level
func (v *Viewer) logScale(value float64) uint16 {
	if value <= v.vmin || math.IsNaN(value) {
		return 0
	}
	if value >= v.vmax {
		return 0xffff
	}
	t := (math.Log10(value) - math.Log10(v.vmin)) / (math.Log10(v.vmax) - math.Log10(v.vmin))
	return uint16(t * 0xffff)
}

// SavePoint saves a rendered point as a PNG image
func (v *Viewer) SavePoint(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}

// SaveSequence renders and saves every point of the scan into outputDir
func (v *Viewer) SaveSequence(outputDir string, markPeak bool, yHalf int) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for i := 0; i < v.scan.Len(); i++ {
		img, err := v.RenderPoint(i, markPeak, yHalf)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("point_%04d.png", i))
		if err := v.SavePoint(img, filename); err != nil {
			return err
		}
	}

	return nil
}
