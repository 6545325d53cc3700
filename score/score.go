// Package score derives a buyer trust score from their credit history.
//
// The score starts at a neutral base and is shifted by the share of on-time,
// late, and overdue records. It is a pure read-time computation: identical
// history always yields the identical score, regardless of ordering.
package score

import (
	"math"
	"strings"
)

const (
	baseScore      = 50.0
	onTimeBonus    = 40.0
	latePenalty    = 30.0
	overduePenalty = 40.0
)

// Result pairs the numeric score with its categorical risk band.
type Result struct {
	Score int       `json:"score"`
	Risk  RiskLevel `json:"riskLevel"`
}

// Calculate returns a score in [0,100] from the statuses of a buyer's credit
// records. An empty history scores exactly the base of 50. Status matching is
// case-insensitive; stored values are lowercase but historical data is not
// trusted to be.
func Calculate(statuses []string) int {
	total := len(statuses)
	if total == 0 {
		return int(baseScore)
	}

	var onTime, late, overdue int
	for _, status := range statuses {
		switch strings.ToLower(status) {
		case "paid", "approved", "verified":
			onTime++
		case "late":
			late++
		case "overdue":
			overdue++
		}
	}

	n := float64(total)
	value := baseScore
	value += float64(onTime) / n * onTimeBonus
	value -= float64(late) / n * latePenalty
	value -= float64(overdue) / n * overduePenalty

	return clamp(int(math.Round(value)))
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
