package grade

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeightedAverage(t *testing.T) {
	tests := []struct {
		name  string
		items []Item
		want  float64
	}{
		{name: "nil", want: 0},
		{name: "empty", items: []Item{}, want: 0},
		{name: "all weights zero", items: []Item{{Value: 80}, {Value: 100}}, want: 0},
		{name: "negative weights count as zero", items: []Item{{Value: 80, Weight: -2}, {Value: 60, Weight: 1}}, want: 60},
		{name: "only negative weights", items: []Item{{Value: 80, Weight: -1}}, want: 0},
		{name: "single item", items: []Item{{Value: 91.5, Weight: 3}}, want: 91.5},
		{name: "equal weights", items: []Item{{Value: 70, Weight: 1}, {Value: 90, Weight: 1}}, want: 80},
		{name: "two thirds", items: []Item{{Value: 80, Weight: 2}, {Value: 60, Weight: 1}}, want: 73.33},
		{name: "zero weight ignored", items: []Item{{Value: 0, Weight: 0}, {Value: 55, Weight: 4}}, want: 55},
		{name: "rounds half up", items: []Item{{Value: 73.33, Weight: 50}, {Value: 0, Weight: 50}}, want: 36.67},
		{name: "fractional weights", items: []Item{{Value: 100, Weight: 0.25}, {Value: 50, Weight: 0.75}}, want: 62.5},
		{name: "total weight overflows", items: []Item{{Value: 90, Weight: 1e308}, {Value: 80, Weight: 1e308}}, want: 0},
		{name: "weighted sum overflows", items: []Item{{Value: 100, Weight: 1e307}, {Value: 100, Weight: 1e307}}, want: 0},
		{name: "infinite value", items: []Item{{Value: math.Inf(1), Weight: 1}}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeightedAverage(tt.items))
		})
	}
}

func TestWeightedAverage_orderIndependent(t *testing.T) {
	items := []Item{
		{Value: 88.5, Weight: 2},
		{Value: 61, Weight: 0.5},
		{Value: 100, Weight: 1},
		{Value: 73.25, Weight: 3},
		{Value: 0, Weight: 1.5},
		{Value: 45.75, Weight: 0},
	}
	want := WeightedAverage(items)

	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		perm := make([]Item, len(items))
		copy(perm, items)
		rnd.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		assert.InDelta(t, want, WeightedAverage(perm), 0.01)
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{in: 0, want: 0},
		{in: 73.3333333, want: 73.33},
		{in: 36.665, want: 36.67},
		{in: 0.125, want: 0.13},
		{in: 99.994, want: 99.99},
		{in: 99.996, want: 100},
		{in: 1.005, want: 1}, // 1.00499999999999989...
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round2(tt.in), "Round2(%v)", tt.in)
	}
}
