package calculator

import (
	"math"

	"github.com/guregu/null/v6"
)

// PercentChange returns (cur-prev)/prev*100. A zero previous close or any
// non-finite result yields null.
func PercentChange(prev, cur float64) null.Float {
	if prev == 0 {
		return null.Float{}
	}
	pct := (cur - prev) / prev * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return null.Float{}
	}
	return null.FloatFrom(pct)
}
