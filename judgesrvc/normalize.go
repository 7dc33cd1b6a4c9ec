package judgesrvc

import "math"

// NormalizeScore clamps a raw scheduler score into [0, 1].
// NaN maps to 0 so a broken checker never leaks into the scoreboard.
func NormalizeScore(score float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	return math.Min(math.Max(score, 0), 1)
}
