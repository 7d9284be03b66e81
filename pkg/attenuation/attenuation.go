// Package attenuation converts foil insertion codes into transmission
// corrections. Up to four attenuating foils can sit in the beam; the scan
// table stores which ones as a decimal-written bitmask (foils 0011 are
// saved as 11).
package attenuation

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
)

// NumFoils is the number of physical foils in the attenuator box
const NumFoils = 4

var (
	// ErrInvalidFoilCode is returned for codes that do not decode to four binary digits
	ErrInvalidFoilCode = errors.New("invalid foil code")

	// ErrInvalidCoefficients is returned when a coefficient list is not NumFoils long
	ErrInvalidCoefficients = errors.New("invalid foil coefficients")
)

// Coefficients holds the log-attenuation contributed by each foil when it
// is inserted, most significant foil first.
type Coefficients [NumFoils]float64

// CoefficientsFrom converts a caller-supplied list into Coefficients
func CoefficientsFrom(values []float64) (Coefficients, error) {
	var c Coefficients
	if len(values) != NumFoils {
		return c, fmt.Errorf("%w: got %d values, need %d", ErrInvalidCoefficients, len(values), NumFoils)
	}
	copy(c[:], values)
	return c, nil
}

// DecodeFoilCode expands a decimal-written foil code into its four binary
// digits, left-padded with zeros (11 -> [0 0 1 1]).
func DecodeFoilCode(code int) ([NumFoils]float64, error) {
	var digits [NumFoils]float64
	if code < 0 {
		return digits, fmt.Errorf("%w: %d is negative", ErrInvalidFoilCode, code)
	}

	s := strconv.Itoa(code)
	if len(s) > NumFoils {
		return digits, fmt.Errorf("%w: %d has more than %d digits", ErrInvalidFoilCode, code, NumFoils)
	}

	offset := NumFoils - len(s)
	for i, ch := range s {
		switch ch {
		case '0':
		case '1':
			digits[offset+i] = 1
		default:
			return digits, fmt.Errorf("%w: %d contains non-binary digit %q", ErrInvalidFoilCode, code, ch)
		}
	}
	return digits, nil
}

// Factor returns the transmission correction exp(sum(digit_i * c_i)) for
// a single foil code. A code of 0 always yields 1.
func Factor(c Coefficients, code int) (float64, error) {
	digits, err := DecodeFoilCode(code)
	if err != nil {
		return 0, err
	}
	return math.Exp(floats.Dot(digits[:], c[:])), nil
}

// Factors computes Factor for every code in order. It fails on the first
// invalid code and reports its index.
func Factors(c Coefficients, codes []int) ([]float64, error) {
	out := make([]float64, len(codes))
	for i, code := range codes {
		f, err := Factor(c, code)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		out[i] = f
	}
	return out, nil
}
