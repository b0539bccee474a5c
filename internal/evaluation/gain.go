package evaluation

import (
	"math"
	"strings"

	"github.com/ricesearch/rankeval/internal/pkg/errors"
)

// GainMode selects how a relevance grade becomes a DCG gain.
type GainMode int

const (
	// GainExponential uses 2^grade - 1.
	GainExponential GainMode = iota
	// GainLinear uses the grade itself.
	GainLinear
)

func (m GainMode) String() string {
	if m == GainLinear {
		return "linear"
	}
	return "exponential"
}

// ParseGainMode accepts "linear" or "exponential" (also "exp").
func ParseGainMode(s string) (GainMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exponential", "exp":
		return GainExponential, nil
	case "linear":
		return GainLinear, nil
	default:
		return 0, errors.InvalidParameterError("gain", "must be linear or exponential, got "+s)
	}
}

// Gain maps a grade to its gain. Grades at or below 0 give 0.
// Exponential gains overflow to +Inf above grade 1023.
func Gain(grade int, mode GainMode) float64 {
	if grade <= 0 {
		return 0
	}
	if mode == GainLinear {
		return float64(grade)
	}
	return math.Exp2(float64(grade)) - 1
}

// Discount is the DCG discount for 0-indexed position pos0.
func Discount(pos0 int) float64 {
	return 1 / math.Log2(float64(pos0+2))
}

// scaledGain is Gain divided by 2^top for exponential mode, so ratios of
// sums stay finite for any grade. Linear gains are returned as is.
func scaledGain(grade, top int, mode GainMode) float64 {
	if grade <= 0 {
		return 0
	}
	if mode == GainLinear {
		return float64(grade)
	}
	return math.Exp2(float64(grade-top)) - math.Exp2(float64(-top))
}

// discountedSum is Σ scaledGain(grades[i]) * Discount(i).
func discountedSum(grades []int, top int, mode GainMode) float64 {
	var sum float64
	for i, g := range grades {
		if g > 0 {
			sum += scaledGain(g, top, mode) * Discount(i)
		}
	}
	return sum
}
