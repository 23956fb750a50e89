package typeutil

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Clamp 将 v 限制在 [lower, upper] 区间内。NaN 被视为 lower。
func Clamp[T constraints.Float](v, lower, upper T) T {
	if math.IsNaN(float64(v)) || v < lower {
		return lower
	}
	if v > upper {
		return upper
	}
	return v
}
