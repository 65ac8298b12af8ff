// Package happiness implements the Cobb-Douglas utility agents maximize when
// splitting a fixed daily time budget between relationships and economic work.
//
//	H = (T_E)^alpha * (T_R)^(1-alpha),  T_E + T_R = T
//
// alpha is the agent's materialist predisposition: 0 is purely relational,
// 1 is purely materialist.
package happiness

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

const (
	Floor             = 0.001 // Lower bound applied to each input before exponentiation
	DefaultTotal      = 24.0  // Hours in a day
	DefaultStep       = 0.1   // Search resolution in hours (6 minutes)
	DefaultRelational = 8.0   // Starting relational hours for new agents
	MaxScore          = 5.0   // Top of the survey happiness scale
)

// ErrAlphaRange is returned when an alpha outside [0, 1] is supplied.
var ErrAlphaRange = errors.New("alpha out of range [0, 1]")

// ValidateAlpha checks that alpha lies in [0, 1].
func ValidateAlpha(alpha float64) error {
	if math.IsNaN(alpha) || alpha < 0 || alpha > 1 {
		return fmt.Errorf("%w: %v", ErrAlphaRange, alpha)
	}
	return nil
}

// CobbDouglas evaluates the two-input utility. Both inputs are floored at
// Floor so a zero bucket yields a small positive value rather than 0 or NaN.
func CobbDouglas(alpha, economic, relational float64) float64 {
	e := math.Max(Floor, economic)
	r := math.Max(Floor, relational)
	return math.Pow(e, alpha) * math.Pow(r, 1-alpha)
}

// Utility evaluates happiness for an agent spending relational hours out of
// total, with the remainder going to economic time.
func Utility(alpha, total, relational float64) float64 {
	return CobbDouglas(alpha, total-relational, relational)
}

// Allocation is a split of the time budget and the happiness it produces.
type Allocation struct {
	Relational float64 `json:"relational"`
	Economic   float64 `json:"economic"`
	Happiness  float64 `json:"happiness"`
}

// GridSearch scans relational time from 0 to total in increments of step and
// returns the first allocation with the highest utility. A non-positive step
// falls back to DefaultStep.
func GridSearch(alpha, total, step float64) Allocation {
	if step <= 0 {
		step = DefaultStep
	}

	best := Allocation{Relational: 0, Economic: total, Happiness: -1}
	n := int(math.Floor(total/step + 1e-9))
	for i := 0; i <= n; i++ {
		relational := math.Min(float64(i)*step, total)
		economic := total - relational
		if relational < 0 || economic < 0 {
			continue
		}

		h := Utility(alpha, total, relational)
		if h > best.Happiness {
			best = Allocation{Relational: relational, Economic: economic, Happiness: h}
		}
	}
	return best
}

// Optimum returns the analytic maximizer: relational = (1-alpha) * total.
func Optimum(alpha, total float64) Allocation {
	relational := (1 - alpha) * total
	return Allocation{
		Relational: relational,
		Economic:   total - relational,
		Happiness:  Utility(alpha, total, relational),
	}
}

// Score maps the optimal happiness for alpha onto the 0–5 survey scale.
// Optimal utility ranges from total/2 (alpha 0.5) to total (alpha 0 or 1).
func Score(alpha, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return Clamp(MaxScore*Optimum(alpha, total).Happiness/total, 0, MaxScore)
}

// Clamp bounds v to [lo, hi].
func Clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
