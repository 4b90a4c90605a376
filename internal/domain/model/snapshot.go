// Package model contains domain models passed between layers.
package model

import (
	"math"
	"time"
)

// Snapshot is one member's stats as captured in one imported file.
type Snapshot struct {
	MemberID   string    `json:"member_id"`
	Group      string    `json:"group"`
	Region     string    `json:"region"`
	Merit      float64   `json:"merit"`
	Power      float64   `json:"power"`
	Rank       int       `json:"rank"`
	RecordedAt time.Time `json:"recorded_at"` // shared by every row of the source file
	Efficiency float64   `json:"efficiency"`
	SourceFile string    `json:"source_file,omitempty"`
}

// Efficiency returns merit per unit of power rounded to two decimals.
// Power below 1 counts as 1, so efficiency(m, 0) == efficiency(m, 1).
func Efficiency(merit, power float64) float64 {
	return Round2(SafeDiv(merit, math.Max(power, 1)))
}

// SafeDiv divides and maps any NaN or Inf outcome to 0.
func SafeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return Finite(num / den)
}

// Finite replaces NaN and ±Inf with 0.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Round2 rounds to two decimals, exact halves to the even neighbour.
func Round2(v float64) float64 {
	return Finite(math.RoundToEven(v*100) / 100)
}
