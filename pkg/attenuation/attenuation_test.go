package attenuation

import (
	"errors"
	"math"
	"strconv"
	"testing"
)

func TestDecodeFoilCode(t *testing.T) {
	tests := []struct {
		code int
		want [NumFoils]float64
	}{
		{0, [NumFoils]float64{0, 0, 0, 0}},
		{1, [NumFoils]float64{0, 0, 0, 1}},
		{11, [NumFoils]float64{0, 0, 1, 1}},
		{101, [NumFoils]float64{0, 1, 0, 1}},
		{1000, [NumFoils]float64{1, 0, 0, 0}},
		{1111, [NumFoils]float64{1, 1, 1, 1}},
	}

	for _, tt := range tests {
		got, err := DecodeFoilCode(tt.code)
		if err != nil {
			t.Fatalf("DecodeFoilCode(%d) returned error: %v", tt.code, err)
		}
		if got != tt.want {
			t.Errorf("DecodeFoilCode(%d) = %v, expected %v", tt.code, got, tt.want)
		}
	}
}

func TestDecodeFoilCodeRejects(t *testing.T) {
	for _, code := range []int{10000, 11111, -1, 2, 1021} {
		if _, err := DecodeFoilCode(code); !errors.Is(err, ErrInvalidFoilCode) {
			t.Errorf("DecodeFoilCode(%d): expected ErrInvalidFoilCode, got %v", code, err)
		}
	}
}

// Every 4-bit code must give exp of the selected coefficients' sum
func TestFactorAllCodes(t *testing.T) {
	c := Coefficients{0.7, -0.3, 0.1, 0.2}
	for mask := 0; mask < 16; mask++ {
		code, _ := strconv.Atoi(strconv.FormatInt(int64(mask), 2))

		expected := 0.0
		for bit := 0; bit < NumFoils; bit++ {
			if mask&(1<<(NumFoils-1-bit)) != 0 {
				expected += c[bit]
			}
		}
		expected = math.Exp(expected)

		got, err := Factor(c, code)
		if err != nil {
			t.Fatalf("Factor(%d) returned error: %v", code, err)
		}
		if math.Abs(got-expected) > 1e-12 {
			t.Errorf("Factor(%d) = %f, expected %f", code, got, expected)
		}
	}
}

func TestFactorZeroCode(t *testing.T) {
	got, err := Factor(Coefficients{1, 2, 3, 4}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Errorf("expected 1 for no foils, got %f", got)
	}
}

func TestFactorExample(t *testing.T) {
	got, err := Factor(Coefficients{0, 0, 0.1, 0.2}, 11)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-math.Exp(0.3)) > 1e-12 {
		t.Errorf("expected exp(0.3), got %f", got)
	}
	if math.Abs(got-1.3499) > 1e-4 {
		t.Errorf("expected ~1.3499, got %f", got)
	}
}

func TestFactorsReportsIndex(t *testing.T) {
	_, err := Factors(Coefficients{}, []int{0, 11, 12345})
	if !errors.Is(err, ErrInvalidFoilCode) {
		t.Fatalf("expected ErrInvalidFoilCode, got %v", err)
	}
	if err.Error()[:7] != "point 2" {
		t.Errorf("expected error to name point 2, got %q", err.Error())
	}
}

func TestCoefficientsFrom(t *testing.T) {
	if _, err := CoefficientsFrom([]float64{1, 2, 3}); !errors.Is(err, ErrInvalidCoefficients) {
		t.Errorf("expected ErrInvalidCoefficients, got %v", err)
	}
	c, err := CoefficientsFrom([]float64{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if c != (Coefficients{1, 2, 3, 4}) {
		t.Errorf("unexpected coefficients %v", c)
	}
}
