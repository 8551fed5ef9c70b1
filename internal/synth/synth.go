// Public domain.

// Package synth generates synthetic integrations with known flux jumps and
// pointing drifts.
package synth

import (
	"math"
	"strconv"
	"time"

	"github.com/soniakeys/unit"
	xrand "golang.org/x/exp/rand"

	"github.com/soniakeys/tscorr/internal/drift"
	"github.com/soniakeys/tscorr/internal/jump"
	"github.com/soniakeys/tscorr/internal/readout"
)

// Params describes the integration to generate.
type Params struct {
	Instrument readout.Instrument
	Frames     int
	Channels   int

	Counter  bool    // record jump counters
	JumpRate float64 // probability of a jump per channel per frame
	JumpSize float64 // mean signal step per counter increment
	Noise    float64 // white noise rms
	GapRate  float64 // probability of an absent frame

	StartUTC  float64 // seconds
	Target    readout.Equatorial
	Drifts    int        // drift records
	DriftSize unit.Angle // rms drift per record

	Seed uint64
}

// DefaultParams returns a small integration of a made up instrument.
func DefaultParams() Params {
	return Params{
		Instrument: readout.Instrument{
			Name:             "sim",
			JumpRange:        readout.DefaultJumpRange,
			SamplingInterval: 4 * time.Millisecond,
			Subarrays:        []string{"R0", "R1", "T0", "T1"},
		},
		Frames:    5000,
		Channels:  64,
		Counter:   true,
		JumpRate:  .0005,
		JumpSize:  4,
		Noise:     .2,
		GapRate:   .002,
		StartUTC:  86400 * 20000,
		Target:    readout.Equatorial{RA: unit.AngleFromDeg(83.8), Dec: unit.AngleFromDeg(-5.4)},
		Drifts:    3,
		DriftSize: unit.AngleFromSec(2),
		Seed:      1,
	}
}

// Sim is a generated integration with what is known about it.
type Sim struct {
	Integration *readout.Integration
	Clean       []float64    // samples without jumps
	Table       jump.Table   // true jump sizes
	Header      drift.Header // drift records
}

// Generate builds an integration from p.
//
// Each channel sees a common slow signal plus white noise.  Channels of
// every other subarray are jump free.  Jumps raise or lower the counter by
// one or two and step the signal by the channel's jump size per count.
// Pointing drift records are spread evenly over the integration.
func Generate(p Params) *Sim {
	rnd := xrand.New(&xrand.PCGSource{})
	rnd.Seed(p.Seed)
	in := p.Instrument
	d := readout.New(in, p.Frames, p.Channels, p.Counter)
	s := &Sim{
		Integration: d,
		Clean:       make([]float64, len(d.Data)),
		Table:       make(jump.Table),
		Header:      drift.Header{},
	}
	nSub := len(in.Subarrays)
	if nSub == 0 {
		nSub = 1
	}
	r := in.JumpRange
	for c := range d.Channels {
		ch := &d.Channels[c]
		ch.Sub = c % nSub
		quiet := ch.Sub%2 == 1
		size := 0.
		if !quiet {
			size = p.JumpSize * (.75 + .5*rnd.Float64())
			s.Table[c] = size
		}
		phase := 2 * math.Pi * rnd.Float64()
		count := rnd.Intn(r)
		steps := 0
		for t := 0; t < p.Frames; t++ {
			if !quiet && t > 0 && rnd.Float64() < p.JumpRate {
				n := 1 + rnd.Intn(2)
				if rnd.Intn(2) == 0 {
					n = -n
				}
				steps += n
				count = ((count+n)%r + r) % r
			}
			i := d.Index(t, c)
			s.Clean[i] = math.Sin(phase+float64(t)*.002) + p.Noise*rnd.NormFloat64()
			d.Data[i] = s.Clean[i] + float64(steps)*size
			if d.Counter != nil {
				d.Counter[i] = uint8(count)
			}
		}
	}
	for t := 0; t < p.Frames; t++ {
		if t > 0 && rnd.Float64() < p.GapRate {
			d.Valid[t] = false
		}
		d.Weight[t] = .8 + .4*rnd.Float64()
	}
	astrometry(d, p)
	s.driftRecords(p, rnd)
	return s
}

func astrometry(d *readout.Integration, p Params) {
	d.AllocAstrometry()
	dt := p.Instrument.SamplingInterval.Seconds()
	for t := range d.UTC {
		d.UTC[t] = p.StartUTC + float64(t)*dt
		d.Equatorial[t] = p.Target
		d.ParallacticAngle[t] = unit.AngleFromDeg(-30 + 60*float64(t)/float64(len(d.UTC)))
	}
}

func (s *Sim) driftRecords(p Params, rnd *xrand.Rand) {
	if p.Drifts <= 0 {
		return
	}
	span := float64(p.Frames) * p.Instrument.SamplingInterval.Seconds()
	step := span / float64(p.Drifts+1)
	pos := p.Target
	f := func(x float64) string { return strconv.FormatFloat(x, 'g', -1, 64) }
	for i := 0; i < p.Drifts; i++ {
		n := strconv.Itoa(i)
		before := p.StartUTC + float64(i+1)*step
		after := before + step/10
		next := readout.Equatorial{
			RA: pos.RA + unit.Angle(p.DriftSize.Rad()*rnd.NormFloat64()/
				math.Cos(pos.Dec.Rad())),
			Dec: pos.Dec + unit.Angle(p.DriftSize.Rad()*rnd.NormFloat64()),
		}
		s.Header["DBRA"+n] = f(pos.RA.Deg() / 15)
		s.Header["DBDEC"+n] = f(pos.Dec.Deg())
		s.Header["DARA"+n] = f(next.RA.Deg() / 15)
		s.Header["DADEC"+n] = f(next.Dec.Deg())
		s.Header["DBTIME"+n] = f(before)
		s.Header["DATIME"+n] = f(after)
		pos = next
	}
}
