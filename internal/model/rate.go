package model

import "math"

// Rate is attended as a whole percentage of total, 0 when total is 0.
func Rate(attended, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(attended) / float64(total) * 100))
}
