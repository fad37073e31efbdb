package scoring

import (
	"fmt"
	"math"
)

// table is a piecewise-linear lookup. xs never decrease.
type table struct {
	xs, ys []float64
}

// at interpolates y for x. Inputs beyond either end clamp to the edge value.
// A zero-width segment resolves to its upper value.
func (t table) at(x float64) float64 {
	n := len(t.xs)
	if n == 0 {
		return 0
	}
	if x <= t.xs[0] {
		return t.ys[0]
	}
	if x >= t.xs[n-1] {
		return t.ys[n-1]
	}
	for i := 1; i < n; i++ {
		if x > t.xs[i] {
			continue
		}
		x0, x1 := t.xs[i-1], t.xs[i]
		y0, y1 := t.ys[i-1], t.ys[i]
		if x1 == x0 {
			return y1
		}
		return y0 + (x-x0)/(x1-x0)*(y1-y0)
	}
	return t.ys[n-1]
}

func checkMonotone(vals []float64, strict bool) error {
	if len(vals) < 2 {
		return fmt.Errorf("needs at least 2 points, got %d", len(vals))
	}
	for i, v := range vals {
		if isNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("point %d is not finite", i)
		}
		if i == 0 {
			continue
		}
		if strict && v <= vals[i-1] {
			return fmt.Errorf("must strictly increase at point %d (%v after %v)", i, v, vals[i-1])
		}
		if v < vals[i-1] {
			return fmt.Errorf("must not decrease at point %d (%v after %v)", i, v, vals[i-1])
		}
	}
	return nil
}

func isNaN(f float64) bool { return math.IsNaN(f) }

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
