// Public domain.

// Package readout holds the detector time stream of one integration.
//
// Samples are stored frame-major in dense slices.  Frames that were never
// recorded keep their slot; a presence bitmap marks them absent and every
// loop over frames is expected to test Present.
package readout

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/unit"
)

// DefaultJumpRange is the modulus of the hardware jump counter when an
// instrument does not say otherwise.
const DefaultJumpRange = 128

// MaxJumpRange is the largest counter modulus that fits counter storage.
const MaxJumpRange = math.MaxUint8 + 1

// Instrument describes the few things that differ between instruments
// as far as read-out correction is concerned.
type Instrument struct {
	Name             string
	JumpRange        int           // counter modulus, a power of two up to MaxJumpRange
	SamplingInterval time.Duration // time between frames
	Subarrays        []string      // subarray names, indexed by Channel.Sub
}

// Validate checks the instrument description.
func (in *Instrument) Validate() error {
	r := in.JumpRange
	if r < 2 || r&(r-1) != 0 {
		return fmt.Errorf("instrument %s: jump range %d is not a power of two",
			in.Name, r)
	}
	if r > MaxJumpRange {
		return fmt.Errorf("instrument %s: jump range %d exceeds %d",
			in.Name, r, MaxJumpRange)
	}
	if in.SamplingInterval <= 0 {
		return fmt.Errorf("instrument %s: sampling interval must be positive",
			in.Name)
	}
	return nil
}

// SubarrayName returns the name of subarray sub, or a generated name
// if the instrument lists none.
func (in *Instrument) SubarrayName(sub int) string {
	if sub >= 0 && sub < len(in.Subarrays) {
		return in.Subarrays[sub]
	}
	return fmt.Sprintf("sub%d", sub)
}

// Channel is one detector element.  Index is stable for the life of the
// integration.
type Channel struct {
	Index      int
	Sub        int     // subarray group
	HasJumps   bool    // set by jump detection
	JumpSize   float64 // calibrated signal step per counter increment, 0 if unknown
	Dependents float64 // degrees of freedom consumed by corrections
}

// Equatorial is a sky position.
type Equatorial struct {
	RA, Dec unit.Angle
}

// Offset is a small 2D angular offset in a tangent plane.
type Offset struct {
	X, Y unit.Angle
}

// Add adds o2 to o.
func (o *Offset) Add(o2 Offset) {
	o.X += o2.X
	o.Y += o2.Y
}

// Scale returns o scaled by f.
func (o Offset) Scale(f float64) Offset {
	return Offset{unit.Angle(float64(o.X) * f), unit.Angle(float64(o.Y) * f)}
}

// Rotate returns o rotated counter-clockwise by a.
func (o Offset) Rotate(a unit.Angle) Offset {
	s, c := math.Sincos(a.Rad())
	x, y := o.X.Rad(), o.Y.Rad()
	return Offset{unit.Angle(x*c - y*s), unit.Angle(x*s + y*c)}
}

// Length returns the length of the offset.
func (o Offset) Length() unit.Angle {
	return unit.Angle(math.Hypot(o.X.Rad(), o.Y.Rad()))
}

// Integration is a contiguous block of frames across all channels.
//
// Per-sample slices are indexed with Index(t, c).  Counter is nil when the
// instrument recorded no jump counter for the integration.  The astrometry
// slices (UTC through ParallacticAngle) are per frame and may be nil when
// no drift correction is to be done.
type Integration struct {
	Instrument Instrument
	Channels   []Channel

	Valid       []bool       // frame presence
	Data        []float64    // sample values
	SampleFlags []SampleFlag // per sample
	Counter     []uint8      // per sample jump counter
	FrameFlags  []FrameFlag  // per frame
	Weight      []float64    // relative frame weight
	Dependents  []float64    // per frame degrees of freedom consumed

	UTC              []float64 // seconds
	Equatorial       []Equatorial
	EquatorialOffset []Offset
	HorizontalOffset []Offset
	ParallacticAngle []unit.Angle
}

// New allocates an integration of nFrames frames and nChannels channels.
// All frames start present with unit weight.  If withCounter is false no
// jump counter storage is allocated.
func New(in Instrument, nFrames, nChannels int, withCounter bool) *Integration {
	n := nFrames * nChannels
	d := &Integration{
		Instrument:  in,
		Channels:    make([]Channel, nChannels),
		Valid:       make([]bool, nFrames),
		Data:        make([]float64, n),
		SampleFlags: make([]SampleFlag, n),
		FrameFlags:  make([]FrameFlag, nFrames),
		Weight:      make([]float64, nFrames),
		Dependents:  make([]float64, nFrames),
	}
	if withCounter {
		d.Counter = make([]uint8, n)
	}
	for c := range d.Channels {
		d.Channels[c].Index = c
	}
	for t := range d.Valid {
		d.Valid[t] = true
		d.Weight[t] = 1
	}
	return d
}

// AllocAstrometry allocates the per frame astrometry slices.
func (d *Integration) AllocAstrometry() {
	n := d.Size()
	d.UTC = make([]float64, n)
	d.Equatorial = make([]Equatorial, n)
	d.EquatorialOffset = make([]Offset, n)
	d.HorizontalOffset = make([]Offset, n)
	d.ParallacticAngle = make([]unit.Angle, n)
}

// Size returns the number of frame slots, present or not.
func (d *Integration) Size() int { return len(d.Valid) }

// ChannelCount returns the number of channels.
func (d *Integration) ChannelCount() int { return len(d.Channels) }

// Index returns the sample index of channel c in frame t.
func (d *Integration) Index(t, c int) int { return t*len(d.Channels) + c }

// Present reports whether frame t holds data.
func (d *Integration) Present(t int) bool { return d.Valid[t] }

// HasCounter reports whether jump counter data were recorded.
func (d *Integration) HasCounter() bool { return d.Counter != nil }

// CounterAt returns the jump counter of channel c in frame t.
func (d *Integration) CounterAt(t, c int) int {
	return int(d.Counter[d.Index(t, c)])
}

// FirstFrameFrom returns the first present frame at or after t,
// or Size() if there is none.
func (d *Integration) FirstFrameFrom(t int) int {
	if t < 0 {
		t = 0
	}
	for ; t < len(d.Valid); t++ {
		if d.Valid[t] {
			return t
		}
	}
	return len(d.Valid)
}

// FirstFrame returns the first present frame, or Size() if there is none.
func (d *Integration) FirstFrame() int { return d.FirstFrameFrom(0) }

// AddFrameDependents adds dp degrees of freedom to frame t.
func (d *Integration) AddFrameDependents(t int, dp float64) {
	d.Dependents[t] += dp
}

// AddChannelDependents adds dp degrees of freedom to channel c.
func (d *Integration) AddChannelDependents(c int, dp float64) {
	d.Channels[c].Dependents += dp
}

// Validate checks that slice lengths agree with each other and that jump
// counters lie below the instrument's jump range.
func (d *Integration) Validate() error {
	if err := d.Instrument.Validate(); err != nil {
		return err
	}
	nt, nc := len(d.Valid), len(d.Channels)
	if nt == 0 || nc == 0 {
		return errors.New("integration has no frames or no channels")
	}
	n := nt * nc
	switch {
	case len(d.Data) != n, len(d.SampleFlags) != n:
		return fmt.Errorf("integration: sample storage %d, want %d", len(d.Data), n)
	case d.Counter != nil && len(d.Counter) != n:
		return fmt.Errorf("integration: counter storage %d, want %d", len(d.Counter), n)
	case len(d.FrameFlags) != nt, len(d.Weight) != nt, len(d.Dependents) != nt:
		return errors.New("integration: per frame storage does not match frame count")
	}
	if d.UTC != nil {
		if len(d.UTC) != nt || len(d.Equatorial) != nt ||
			len(d.EquatorialOffset) != nt || len(d.HorizontalOffset) != nt ||
			len(d.ParallacticAngle) != nt {
			return errors.New("integration: astrometry does not match frame count")
		}
	}
	for i, n := range d.Counter {
		if int(n) >= d.Instrument.JumpRange {
			return fmt.Errorf("integration: frame %d channel %d counter %d out of range %d",
				i/nc, i%nc, n, d.Instrument.JumpRange)
		}
	}
	for c, ch := range d.Channels {
		if ch.Index != c {
			return fmt.Errorf("integration: channel %d carries index %d", c, ch.Index)
		}
	}
	for t, w := range d.Weight {
		if !(w >= 0) {
			return fmt.Errorf("integration: frame %d has invalid weight %g", t, w)
		}
	}
	return nil
}
