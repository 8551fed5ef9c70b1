// Public domain.

package jump

// Delta returns the number of counter increments from baseline b to sample
// a of a counter that wraps at jumpRange.
//
// The result is the d in (-jumpRange/2, jumpRange/2] congruent to a-b.
// It is the true count only if fewer than jumpRange/2 increments happened
// between the two samples; callers keep baselines close enough for that.
func Delta(a, b, jumpRange int) int {
	d := a - b
	half := jumpRange >> 1
	if d > half {
		d -= jumpRange
	} else if d <= -half {
		d += jumpRange
	}
	return d
}
