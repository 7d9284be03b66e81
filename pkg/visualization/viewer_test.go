package visualization

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"pilroi/internal/models"
	"pilroi/pkg/detector"
	"pilroi/pkg/scan"
)

// testScan builds a cropped scan whose frames hold a bright pixel at
// (2+i, 5) on a dim background
func testScan(t *testing.T, n int) *scan.Scan {
	t.Helper()
	meta := make([]models.MetadataRow, n)
	ids := make([]string, n)
	store := detector.MemoryStore{}
	for i := 0; i < n; i++ {
		meta[i] = models.MetadataRow{Monitor: 1, Axes: map[string]float64{"h": 0, "k": 0, "l": float64(i)}}
		ids[i] = fmt.Sprintf("f_%04d.raw", i)
		f := mat.NewDense(12, 8, nil)
		for y := 0; y < 12; y++ {
			for x := 0; x < 8; x++ {
				f.Set(y, x, 10)
			}
		}
		f.Set(5, 2+i, 1e6)
		store[ids[i]] = f
	}

	s, err := scan.Assemble(meta, ids, store, scan.Params{Layout: models.BL72})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Crop(1, 7); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewViewer(t *testing.T) {
	s := testScan(t, 2)
	if _, err := NewViewer(s, 0, 10); err == nil {
		t.Error("expected error for non-positive vmin")
	}
	if _, err := NewViewer(s, 10, 10); err == nil {
		t.Error("expected error for empty range")
	}

	uncropped, _ := scan.Assemble(nil, nil, detector.MemoryStore{}, scan.Params{Layout: models.BL72})
	if _, err := NewViewer(uncropped, 1, 10); err == nil {
		t.Error("expected error for uncropped scan")
	}
}

func TestRenderPoint(t *testing.T) {
	s := testScan(t, 3)
	v, err := NewViewer(s, 1, 1e6)
	if err != nil {
		t.Fatal(err)
	}

	img, err := v.RenderPoint(1, false, 0)
	if err != nil {
		t.Fatalf("RenderPoint failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 6 || b.Dy() != 12 {
		t.Fatalf("expected 6x12 image, got %dx%d", b.Dx(), b.Dy())
	}

	// Peak of point 1 is at crop column 2, row 5 and saturates
	r, g, b, _ := img.At(2, 5).RGBA()
	if r != 0xffff || g != 0xffff || b != 0xffff {
		t.Errorf("expected white peak, got %v,%v,%v", r, g, b)
	}
	// Background 10 sits at 1/6 of the log range
	r, _, _, _ = img.At(0, 0).RGBA()
	if r == 0 || r >= 0xffff/2 {
		t.Errorf("expected dim background, got %v", r)
	}
}

func TestRenderPointMarksPeakAndLimitsRows(t *testing.T) {
	s := testScan(t, 3)
	v, _ := NewViewer(s, 1, 1e6)

	img, err := v.RenderPoint(0, true, 2)
	if err != nil {
		t.Fatal(err)
	}
	// Median peak row is 5, so rows 3..7 are drawn
	if img.Bounds().Dy() != 5 {
		t.Fatalf("expected 5 rows, got %d", img.Bounds().Dy())
	}
	if c := color.RGBA64Model.Convert(img.At(1, 2)).(color.RGBA64); c.R != 0xffff || c.G != 0 {
		t.Errorf("expected red peak marker, got %+v", c)
	}

	if _, err := v.RenderPoint(3, false, 0); err == nil {
		t.Error("expected error for out-of-range index")
	}
}

func TestSaveSequence(t *testing.T) {
	s := testScan(t, 3)
	v, _ := NewViewer(s, 1, 1e6)

	dir := filepath.Join(t.TempDir(), "frames")
	if err := v.SaveSequence(dir, true, 0); err != nil {
		t.Fatalf("SaveSequence failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		name := filepath.Join(dir, fmt.Sprintf("point_%04d.png", i))
		if _, err := os.Stat(name); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}
