package detector

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func writeFrame(t *testing.T, path string, frame *mat.Dense) {
	t.Helper()
	if err := os.WriteFile(path, EncodeRaw(frame), 0644); err != nil {
		t.Fatalf("Failed to write frame: %v", err)
	}
}

func TestReadRawRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rows, cols := 3, 5
	frame := mat.NewDense(rows, cols, nil)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			frame.Set(y, x, float64(y*1000+x))
		}
	}
	frame.Set(2, 4, 4294967295)

	path := filepath.Join(dir, "scan_0001.raw")
	writeFrame(t, path, frame)

	got, err := ReadRaw(path, rows, cols)
	if err != nil {
		t.Fatalf("ReadRaw failed: %v", err)
	}
	if !mat.Equal(got, frame) {
		t.Errorf("decoded frame differs:\n%v\nexpected\n%v", mat.Formatted(got), mat.Formatted(frame))
	}
}

func TestReadRawWrongSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan_0001.raw")
	writeFrame(t, path, mat.NewDense(2, 2, nil))

	if _, err := ReadRaw(path, 3, 3); !errors.Is(err, ErrFrameShape) {
		t.Errorf("expected ErrFrameShape, got %v", err)
	}
}

func TestFrameNumber(t *testing.T) {
	tests := []struct {
		id   string
		want int
	}{
		{"scan_0007.raw", 7},
		{"/data/run2_sample_1234.raw", 1234},
		{"a9999_0010.raw", 10},
	}
	for _, tt := range tests {
		got, err := FrameNumber(tt.id)
		if err != nil {
			t.Errorf("FrameNumber(%q) returned error: %v", tt.id, err)
			continue
		}
		if got != tt.want {
			t.Errorf("FrameNumber(%q) = %d, expected %d", tt.id, got, tt.want)
		}
	}

	for _, bad := range []string{"scan_007.raw", "scan.raw", "scan_0007.tif"} {
		if _, err := FrameNumber(bad); !errors.Is(err, ErrMalformedFrameID) {
			t.Errorf("FrameNumber(%q): expected ErrMalformedFrameID, got %v", bad, err)
		}
	}
}

func TestListOrdered(t *testing.T) {
	dir := t.TempDir()
	frame := mat.NewDense(1, 1, nil)
	// Lexical order differs from frame order
	for _, name := range []string{"b_0010.raw", "a_0002.raw", "c_0001.raw"} {
		writeFrame(t, filepath.Join(dir, name), frame)
	}
	if err := os.WriteFile(filepath.Join(dir, "c_0001.raw.pdi"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	paths, err := ListOrdered(dir)
	if err != nil {
		t.Fatalf("ListOrdered failed: %v", err)
	}

	want := []string{"c_0001.raw", "a_0002.raw", "b_0010.raw"}
	if len(paths) != len(want) {
		t.Fatalf("expected %d frames, got %d: %v", len(want), len(paths), paths)
	}
	for i, p := range paths {
		if filepath.Base(p) != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], filepath.Base(p))
		}
	}

	sidecars, err := ListSidecars(dir)
	if err != nil {
		t.Fatalf("ListSidecars failed: %v", err)
	}
	if len(sidecars) != 1 || filepath.Base(sidecars[0]) != "c_0001.raw.pdi" {
		t.Errorf("unexpected sidecars %v", sidecars)
	}
}

func TestListOrderedMalformed(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, filepath.Join(dir, "scan_12.raw"), mat.NewDense(1, 1, nil))

	if _, err := ListOrdered(dir); !errors.Is(err, ErrMalformedFrameID) {
		t.Errorf("expected ErrMalformedFrameID, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	f := mat.NewDense(1, 1, []float64{3})
	s := MemoryStore{"a": f}

	got, err := s.Read("a")
	if err != nil || got != f {
		t.Errorf("expected stored frame, got %v, %v", got, err)
	}
	if _, err := s.Read("b"); !errors.Is(err, ErrFrameNotFound) {
		t.Errorf("expected ErrFrameNotFound, got %v", err)
	}
}

const samplePDI = `All Counters;
Seconds=1;Monitor=100000;
#
All Motors;th=12.5;Unused=0;tth=25.25;chi=-90.0;phi=0.0;gamma=1.5e-2;mu=0.1;
#
PD_X=243.5;PD_Y=97.0;PD_DIST=1000;PD_ALPHA=0;PD_DELTA=0.172;LAMBDA=1.0332;
`

func TestParseSidecar(t *testing.T) {
	m, err := ParseSidecarFrom(strings.NewReader(samplePDI))
	if err != nil {
		t.Fatalf("ParseSidecarFrom failed: %v", err)
	}

	checks := []struct {
		name      string
		got, want float64
	}{
		{"th", m.Th, 12.5},
		{"tth", m.TTh, 25.25},
		{"chi", m.Chi, -90},
		{"phi", m.Phi, 0},
		{"gamma", m.Gamma, 0.015},
		{"mu", m.Mu, 0.1},
		{"pdX", m.PDX, 243.5},
		{"pdY", m.PDY, 97},
		{"pdDist", m.PDDist, 1000},
		{"pdAlpha", m.PDAlpha, 0},
		{"pdDelta", m.PDDelta, 0.172},
		{"lambda", m.Lambda, 1.0332},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: expected %v, got %v", c.name, c.want, c.got)
		}
	}
}

func TestParseSidecarFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan_0001.raw.pdi")
	if err := os.WriteFile(path, []byte(samplePDI), 0644); err != nil {
		t.Fatal(err)
	}
	m, err := ParseSidecar(path)
	if err != nil {
		t.Fatalf("ParseSidecar failed: %v", err)
	}
	if m.Lambda != 1.0332 {
		t.Errorf("expected lambda 1.0332, got %v", m.Lambda)
	}
}

func TestParseSidecarMalformed(t *testing.T) {
	tests := map[string]string{
		"too few lines":     "a\nb\nc\n",
		"short motor line":  "a\nb\nc\nth=1;tth=2;\nd\nPD_X=1;2;3;4;5;6\n",
		"short calibration": "a\nb\nc\n1 2 3 4 5 6 7\nd\nPD_X=1;\n",
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseSidecarFrom(strings.NewReader(text)); !errors.Is(err, ErrMalformedSidecar) {
				t.Errorf("expected ErrMalformedSidecar, got %v", err)
			}
		})
	}
}
