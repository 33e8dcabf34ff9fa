// Package grade computes weighted averages of marks.
package grade

import "math"

// Item is a value contributing to an average with the given weight.
type Item struct {
	Value  float64
	Weight float64
}

// WeightedAverage returns sum(value*weight) / sum(weight) rounded to 2 decimals.
// Negative weights count as 0. When the total weight is not positive (no items, all weights 0)
// or the sums overflow, the average is 0.
func WeightedAverage(items []Item) float64 {
	var weighted, total float64
	for _, it := range items {
		w := math.Max(it.Weight, 0)
		weighted += it.Value * w
		total += w
	}
	if total <= 0 {
		return 0
	}
	avg := weighted / total
	if math.IsNaN(avg) || math.IsInf(avg, 0) {
		return 0
	}
	return Round2(avg)
}

// Round2 rounds x to 2 decimals, halves rounding up.
// Rounding applies to the float64 value, so 1.005 (stored as 1.00499...) gives 1.
func Round2(x float64) float64 {
	return math.Floor(x*100+0.5) / 100
}
