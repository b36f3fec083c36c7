package qlearn

import (
	"math"
	"sort"
)

// NumFeatures is the number of bucketed features in a State.
const NumFeatures = 4

// State is a discretized feature tuple used as a QTable key.
// Build it with SanitizeState so every lookup shares one mapping.
type State [NumFeatures]int

// SanitizeState converts raw bucket values into a State.
// Missing or non-finite buckets become 0; the rest are truncated to int.
func SanitizeState(raw [NumFeatures]float64) State {
	var s State
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		s[i] = int(v)
	}
	return s
}

// Cut assigns each value to one of bins equal-width buckets spanning the
// finite range of values. Buckets are right-closed, the lowest edge is widened
// by 0.1% of the range so the minimum lands in bucket 0, and a constant input
// lands in the middle bucket. Non-finite values yield NaN.
func Cut(values []float64, bins int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if bins <= 0 {
		return out
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if !finite(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return out
	}

	if lo == hi {
		mid := float64((bins - 1) / 2)
		for i, v := range values {
			if finite(v) {
				out[i] = mid
			}
		}
		return out
	}

	edges := make([]float64, bins+1)
	step := (hi - lo) / float64(bins)
	for i := range edges {
		edges[i] = lo + step*float64(i)
	}
	edges[bins] = hi
	edges[0] -= (hi - lo) * 0.001

	for i, v := range values {
		if !finite(v) {
			continue
		}
		idx := sort.SearchFloat64s(edges, v) - 1
		if idx < 0 {
			idx = 0
		}
		if idx > bins-1 {
			idx = bins - 1
		}
		out[i] = float64(idx)
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
