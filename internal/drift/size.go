// Public domain.

package drift

import (
	"math"

	"github.com/soniakeys/coord"
	"github.com/soniakeys/unit"

	"github.com/soniakeys/tscorr/internal/readout"
)

// unitVector returns the direction of p as a unit Cartesian vector.
func unitVector(p readout.Equatorial) coord.Cart {
	sr, cr := math.Sincos(p.RA.Rad())
	sd, cd := math.Sincos(p.Dec.Rad())
	return coord.Cart{X: cd * cr, Y: cd * sr, Z: sd}
}

// Separation returns the great circle angle between a and b.
//
// The cross and dot products give the sine and cosine of the angle, which
// keeps precision for the arcsecond sized separations of pointing drifts.
func Separation(a, b readout.Equatorial) unit.Angle {
	av := unitVector(a)
	bv := unitVector(b)
	var x coord.Cart
	x.Cross(&av, &bv)
	return unit.Angle(math.Atan2(math.Sqrt(x.Square()), av.Dot(&bv)))
}

// tangentOffset returns the offset of after from before in the tangent
// plane at before: RA difference scaled by cos Dec, and Dec difference.
func tangentOffset(before, after readout.Equatorial) readout.Offset {
	dra := math.Remainder(after.RA.Rad()-before.RA.Rad(), 2*math.Pi)
	mid := .5 * (before.Dec.Rad() + after.Dec.Rad())
	return readout.Offset{
		X: unit.Angle(dra * math.Cos(mid)),
		Y: after.Dec - before.Dec,
	}
}
