// Package detector reads Pilatus frames and their .raw.pdi sidecars from
// disk. Frames are raw little-endian uint32 dumps with no header.
package detector

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"pilroi/internal/models"
)

var (
	// ErrMalformedFrameID is returned when a file name lacks the 4-digit frame number
	ErrMalformedFrameID = errors.New("malformed frame id")

	// ErrFrameShape is returned when a frame does not match the detector geometry
	ErrFrameShape = errors.New("frame shape mismatch")

	// ErrFrameNotFound is returned by MemoryStore for unknown ids
	ErrFrameNotFound = errors.New("frame not found")
)

const (
	rawExt     = ".raw"
	sidecarExt = ".raw.pdi"
	bytesPerPx = 4
)

var (
	rawNumber     = regexp.MustCompile(`(\d{4})\.raw$`)
	sidecarNumber = regexp.MustCompile(`(\d{4})\.raw\.pdi$`)
)

// Store retrieves one frame per identifier
type Store interface {
	Read(id string) (*mat.Dense, error)
}

// DirStore reads .raw files from the filesystem. Identifiers are paths.
type DirStore struct {
	Rows int
	Cols int
}

// NewDirStore returns a DirStore for the primary detector geometry
func NewDirStore() *DirStore {
	return &DirStore{Rows: models.DetectorRows, Cols: models.DetectorCols}
}

// Read implements Store
func (s *DirStore) Read(id string) (*mat.Dense, error) {
	return ReadRaw(id, s.Rows, s.Cols)
}

// ReadRaw loads a .raw frame of rows x cols uint32 counts
func ReadRaw(path string, rows, cols int) (*mat.Dense, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading frame %s: %w", path, err)
	}
	return DecodeRaw(data, rows, cols)
}

// DecodeRaw converts raw bytes into a frame matrix
func DecodeRaw(data []byte, rows, cols int) (*mat.Dense, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: invalid geometry %dx%d", ErrFrameShape, rows, cols)
	}
	if len(data) != rows*cols*bytesPerPx {
		return nil, fmt.Errorf("%w: %d bytes, expected %d for %dx%d",
			ErrFrameShape, len(data), rows*cols*bytesPerPx, rows, cols)
	}

	values := make([]float64, rows*cols)
	for i := range values {
		values[i] = float64(binary.LittleEndian.Uint32(data[i*bytesPerPx:]))
	}
	return mat.NewDense(rows, cols, values), nil
}

// EncodeRaw is the inverse of DecodeRaw. Values are truncated to uint32.
func EncodeRaw(frame mat.Matrix) []byte {
	rows, cols := frame.Dims()
	out := make([]byte, rows*cols*bytesPerPx)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			binary.LittleEndian.PutUint32(out[(y*cols+x)*bytesPerPx:], uint32(frame.At(y, x)))
		}
	}
	return out
}

// FrameNumber extracts the 4-digit frame number that precedes the .raw
// extension (scan_0007.raw -> 7)
func FrameNumber(id string) (int, error) {
	return numberFrom(rawNumber, id)
}

func numberFrom(re *regexp.Regexp, id string) (int, error) {
	m := re.FindStringSubmatch(filepath.Base(id))
	if m == nil {
		return 0, fmt.Errorf("%w: %q has no 4-digit frame number", ErrMalformedFrameID, id)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrMalformedFrameID, id, err)
	}
	return n, nil
}

// ListOrdered returns the .raw frames in folder ordered by frame number
func ListOrdered(folder string) ([]string, error) {
	return listOrdered(folder, rawExt, rawNumber)
}

// ListSidecars returns the .raw.pdi sidecars in folder ordered by frame number
func ListSidecars(folder string) ([]string, error) {
	return listOrdered(folder, sidecarExt, sidecarNumber)
}

func listOrdered(folder, ext string, re *regexp.Regexp) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(folder, "*"+ext))
	if err != nil {
		return nil, err
	}

	numbers := make(map[string]int, len(paths))
	for _, p := range paths {
		n, err := numberFrom(re, p)
		if err != nil {
			return nil, err
		}
		numbers[p] = n
	}

	sort.SliceStable(paths, func(i, j int) bool {
		return numbers[paths[i]] < numbers[paths[j]]
	})
	return paths, nil
}

// MemoryStore serves frames that are already in memory, keyed by id
type MemoryStore map[string]*mat.Dense

// Read implements Store
func (s MemoryStore) Read(id string) (*mat.Dense, error) {
	f, ok := s[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFrameNotFound, id)
	}
	return f, nil
}
