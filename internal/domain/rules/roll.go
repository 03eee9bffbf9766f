// Package rules contains the pure calculation logic for game mechanics.
// This package is PURE and must NOT import any infrastructure packages.
package rules

import (
	"math"
	"math/rand"
	"sync"
)

// Roller yields uniformly distributed values in [0,1).
type Roller interface {
	Float64() float64
}

// lockedRoller is a seeded math/rand source safe for concurrent use.
type lockedRoller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRoller returns a seeded roller.
func NewRoller(seed int64) Roller {
	return &lockedRoller{rng: rand.New(rand.NewSource(seed))}
}

func (r *lockedRoller) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

// FixedRoller replays a fixed sequence of rolls, cycling when exhausted.
type FixedRoller struct {
	Values []float64
	next   int
}

// NewFixedRoller returns a roller that yields values in order.
func NewFixedRoller(values ...float64) *FixedRoller {
	return &FixedRoller{Values: values}
}

// Reset replaces the sequence and starts again from its first value.
func (f *FixedRoller) Reset(values ...float64) {
	f.Values = values
	f.next = 0
}

func (f *FixedRoller) Float64() float64 {
	if len(f.Values) == 0 {
		return 0
	}
	v := f.Values[f.next%len(f.Values)]
	f.next++
	return v
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// RollRange picks an integer in [lo, hi] using roll.
func RollRange(roll float64, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	n := lo + int(roll*float64(hi-lo+1))
	if n > hi {
		n = hi
	}
	return n
}

// PickWeighted returns the index chosen by roll over positive weights.
func PickWeighted(roll float64, weights []int) int {
	total := 0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return 0
	}
	target := roll * float64(total)
	acc := 0.0
	for i, w := range weights {
		acc += float64(w)
		if target < acc {
			return i
		}
	}
	return len(weights) - 1
}
