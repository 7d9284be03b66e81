package scan

import (
	"fmt"
	"maps"

	"gonum.org/v1/gonum/mat"

	"pilroi/internal/models"
	"pilroi/internal/parallel"
	"pilroi/pkg/attenuation"
	"pilroi/pkg/detector"
)

// Params controls scan assembly
type Params struct {
	// Layout is the beamline column set of the metadata rows
	Layout models.Layout

	// Coefficients are the per-foil log-attenuation values
	Coefficients attenuation.Coefficients

	// NumWorkers bounds concurrent frame reads; <= 0 uses all CPUs
	NumWorkers int
}

// Assemble joins metadata rows and frames by position into a Scan. Every
// input is validated before any frame is read. Row i is paired with
// frameIDs[i]; output order is input order.
func Assemble(rows []models.MetadataRow, frameIDs []string, store detector.Store, params Params) (*Scan, error) {
	if !params.Layout.Valid() {
		return nil, fmt.Errorf("%w: %v", models.ErrUnsupportedLayout, params.Layout)
	}
	if len(rows) != len(frameIDs) {
		return nil, fmt.Errorf("%w: %d metadata rows, %d frames", ErrLengthMismatch, len(rows), len(frameIDs))
	}

	codes := make([]int, len(rows))
	owned := make([]models.MetadataRow, len(rows))
	for i, r := range rows {
		if r.Monitor == 0 {
			return nil, fmt.Errorf("point %d: %w", i, ErrDivideByZeroMonitor)
		}
		codes[i] = r.FoilCode
		r.Axes = maps.Clone(r.Axes)
		owned[i] = r
	}
	factors, err := attenuation.Factors(params.Coefficients, codes)
	if err != nil {
		return nil, err
	}

	s := &Scan{
		layout:      params.Layout,
		rows:        owned,
		attenuation: factors,
		raw:         make([]*mat.Dense, len(rows)),
		norm:        make([]*mat.Dense, len(rows)),
	}

	err = parallel.For(len(rows), params.NumWorkers, func(i int) error {
		frame, err := store.Read(frameIDs[i])
		if err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
		s.raw[i] = frame
		s.norm[i] = normalize(frame, factors[i], rows[i].Monitor)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(s.raw) > 0 {
		s.frameRows, s.frameCols = s.raw[0].Dims()
		for i, f := range s.raw {
			if r, c := f.Dims(); r != s.frameRows || c != s.frameCols {
				return nil, fmt.Errorf("point %d: %w: %dx%d, expected %dx%d",
					i, detector.ErrFrameShape, r, c, s.frameRows, s.frameCols)
			}
		}
	}
	return s, nil
}

// normalize returns raw x factor / monitor as a new matrix
func normalize(raw *mat.Dense, factor, monitor float64) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 {
		return v * factor / monitor
	}, raw)
	return &out
}
