package models

import "math"

// Round2 rounds to two decimals, half away from zero
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Percentage returns round2(part*100/total), or 0 when total is 0
func Percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return Round2(float64(part) * 100 / float64(total))
}

// Round3 rounds to three decimals
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
