package levels

import (
	"fmt"
	"math"
)

// bonusLabels maps the three half-integer bonus ids to their display labels.
var bonusLabels = map[float64]string{
	4.5:  "4B",
	7.5:  "7B",
	10.5: "10B",
}

// IsBonus reports whether number is one of the designated bonus level ids.
func IsBonus(number float64) bool {
	_, ok := bonusLabels[number]
	return ok
}

// FormatNumber renders a level number for display: integers zero-padded to
// two digits ("03"), bonus ids as their letter form ("4B", "7B", "10B").
func FormatNumber(number float64) string {
	if label, ok := bonusLabels[number]; ok {
		return label
	}
	return fmt.Sprintf("%02d", int(number))
}

// FormatScore renders a score zero-padded to four digits.
func FormatScore(score int) string {
	return fmt.Sprintf("%04d", score)
}

// IndicatorLevel maps a level number onto the progression node that should
// carry the "current" indicator. Bonus levels highlight the node of their
// preceding integer level, so 4.5 highlights 4.
func IndicatorLevel(number float64) int {
	return int(math.Floor(number))
}

// FillPercent computes the progression bar fill from the count of completed
// non-bonus levels: completed/9 * 100, clamped to [0,100].
func FillPercent(completed int) float64 {
	pct := float64(completed) / float64(MainCount-1) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
