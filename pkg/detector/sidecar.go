package detector

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"pilroi/internal/models"
)

// ErrMalformedSidecar is returned when a .raw.pdi file lacks the expected numbers
var ErrMalformedSidecar = errors.New("malformed sidecar")

// Positional layout of a .raw.pdi file. Any change to the file layout
// breaks parsing; only the token counts can be checked.
const (
	motorLine       = 3
	calibrationLine = 5
	motorTokens     = 7
	calibTokens     = 6
)

var numberPattern = regexp.MustCompile(`[+-]? *(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?`)

// ParseSidecar reads the motor positions and detector calibration from a
// .raw.pdi sidecar file
func ParseSidecar(path string) (models.Motors, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Motors{}, err
	}
	defer f.Close()

	m, err := ParseSidecarFrom(f)
	if err != nil {
		return models.Motors{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ParseSidecarFrom parses sidecar text from r
func ParseSidecarFrom(r io.Reader) (models.Motors, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return models.Motors{}, err
	}

	if len(lines) <= calibrationLine {
		return models.Motors{}, fmt.Errorf("%w: %d lines, need at least %d", ErrMalformedSidecar, len(lines), calibrationLine+1)
	}

	motors, err := findNumbers(lines[motorLine], motorTokens)
	if err != nil {
		return models.Motors{}, fmt.Errorf("motor line: %w", err)
	}
	calib, err := findNumbers(lines[calibrationLine], calibTokens)
	if err != nil {
		return models.Motors{}, fmt.Errorf("calibration line: %w", err)
	}

	// motors[1] is not a motor position
	return models.Motors{
		Th:      motors[0],
		TTh:     motors[2],
		Chi:     motors[3],
		Phi:     motors[4],
		Gamma:   motors[5],
		Mu:      motors[6],
		PDX:     calib[0],
		PDY:     calib[1],
		PDDist:  calib[2],
		PDAlpha: calib[3],
		PDDelta: calib[4],
		Lambda:  calib[5],
	}, nil
}

// findNumbers extracts every decimal or scientific number in line and
// requires at least want of them
func findNumbers(line string, want int) ([]float64, error) {
	tokens := numberPattern.FindAllString(line, -1)
	if len(tokens) < want {
		return nil, fmt.Errorf("%w: found %d numbers, expected %d", ErrMalformedSidecar, len(tokens), want)
	}

	values := make([]float64, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.ParseFloat(strings.ReplaceAll(tok, " ", ""), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: token %q: %v", ErrMalformedSidecar, tok, err)
		}
		values[i] = v
	}
	return values, nil
}
