// Package sampler implements the adaptive sampling decisions used by the
// capture façade's "sampled" capture level.
package sampler

import "math"

// TargetSize returns the number of events to retain out of n candidates
// (§4.1). Boundary preservation and logarithmic scaling bound storage for
// very large steps while always keeping small steps intact.
func TargetSize(n int) int {
	switch {
	case n <= 5:
		return n
	case n <= 1000:
		return 5
	default:
		k := int(math.Ceil(10 * math.Log10(float64(n))))
		if k > 100 {
			return 100
		}
		return k
	}
}

// ShouldSample reports whether index i (0-based, out of n) should be upgraded
// to a full DecisionEvent when retaining k items total (§4.1).
//
// Contract:
//   - i == 0 or i == n-1 (boundary) is always sampled.
//   - when n <= k every index is sampled.
//   - otherwise the function deterministically picks ~k-2 interior indices,
//     uniformly spaced, so repeated calls with identical (i, n, k) — including
//     across process restarts — return identical results.
func ShouldSample(i, n, k int) bool {
	if n <= 0 || i < 0 || i >= n {
		return false
	}
	if i == 0 || i == n-1 {
		return true
	}
	if n <= k {
		return true
	}

	interior := k - 2
	if interior <= 0 {
		return false
	}

	// Uniformly space `interior` picks across the open interval (0, n-1) by
	// mapping i onto a fixed-size grid and testing proximity to a grid point.
	// This is deterministic and symmetric: it depends only on (i, n, k).
	span := n - 2 // number of interior positions: indices 1..n-2
	step := float64(span) / float64(interior+1)
	for j := 1; j <= interior; j++ {
		target := int(math.Round(float64(j) * step))
		if target == i-1 {
			return true
		}
	}
	return false
}
