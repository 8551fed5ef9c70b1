// Public domain.

package reduce_test

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/soniakeys/tscorr/internal/config"
	"github.com/soniakeys/tscorr/internal/drift"
	"github.com/soniakeys/tscorr/internal/jump"
	"github.com/soniakeys/tscorr/internal/reduce"
	"github.com/soniakeys/tscorr/internal/synth"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func sim() *synth.Sim {
	p := synth.DefaultParams()
	p.Frames = 3000
	p.Channels = 24
	p.JumpRate = .001
	return synth.Generate(p)
}

func parse(t *testing.T, yaml string) *config.Config {
	c, err := config.Parse([]byte(yaml))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestReduceLevel(t *testing.T) {
	s := sim()
	d := s.Integration
	r := reduce.New(parse(t, "jumps: {min_length: 200ms}"), nil, quiet)
	sum, err := r.Reduce(d, s.Header)
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("%+v", *sum.Jumps)
	if sum.Jumps.Leveled == 0 || sum.Jumps.Count(jump.Leveled) == 0 {
		t.Fatal("nothing leveled")
	}
	if math.Abs(sum.Dependents-float64(sum.Jumps.Leveled)) > 1e-6 {
		t.Fatalf("dependents %g, leveled blocks %d", sum.Dependents, sum.Jumps.Leveled)
	}
	if sum.DriftStatus != reduce.DriftsCorrected {
		t.Fatalf("drift status %v", sum.DriftStatus)
	}
	if sum.Drifts.Extrapolated == 0 || sum.Drifts.Corrected == 0 {
		t.Fatalf("%+v", sum.Drifts)
	}
	last := d.Size() - 1
	for !d.Present(last) {
		last--
	}
	if d.EquatorialOffset[last].Length() == 0 {
		t.Fatal("last frame not corrected")
	}
}

// With the true jump sizes the precomputed mode recovers the clean signal
// and consumes no degrees of freedom.
func TestReducePrecomputed(t *testing.T) {
	s := sim()
	d := s.Integration
	r := reduce.New(parse(t, "jumps: {mode: precomputed}\ndrifts: {correct: false}"),
		s.Table, quiet)
	sum, err := r.Reduce(d, nil)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Jumps.Count(jump.Precomputed) == 0 || sum.Dependents != 0 {
		t.Fatalf("%+v dependents %g", *sum.Jumps, sum.Dependents)
	}
	if sum.DriftStatus != reduce.DriftsOff {
		t.Fatalf("drift status %v", sum.DriftStatus)
	}
	for f := 0; f < d.Size(); f++ {
		if !d.Present(f) {
			continue
		}
		for c := range d.Channels {
			i := d.Index(f, c)
			if math.Abs(d.Data[i]-s.Clean[i]) > 1e-9 {
				t.Fatalf("frame %d channel %d: %g, clean %g",
					f, c, d.Data[i], s.Clean[i])
			}
		}
	}
}

func TestReduceNoJumpTable(t *testing.T) {
	s := sim()
	r := reduce.New(parse(t, "jumps: {mode: precomputed}"), nil, quiet)
	if _, err := r.Reduce(s.Integration, s.Header); !errors.Is(err, jump.ErrNoJumpTable) {
		t.Fatalf("err = %v, want ErrNoJumpTable", err)
	}
}

func TestReduceEmptyDrifts(t *testing.T) {
	s := sim()
	r := reduce.New(nil, nil, quiet)
	sum, err := r.Reduce(s.Integration, nil)
	if err != nil {
		t.Fatal(err)
	}
	if sum.DriftStatus != reduce.DriftsEmpty {
		t.Fatalf("drift status %v", sum.DriftStatus)
	}
	r.Config = parse(t, "drifts: {require: true}")
	if _, err := r.Reduce(sim().Integration, drift.Header{}); !errors.Is(err, drift.ErrEmptyTable) {
		t.Fatalf("err = %v, want ErrEmptyTable", err)
	}
}

func TestReduceGate(t *testing.T) {
	s := sim()
	d := s.Integration
	r := reduce.New(parse(t, "drifts: {max: 0.01}"), nil, quiet)
	sum, err := r.Reduce(d, s.Header)
	if err != nil {
		t.Fatal(err)
	}
	if sum.DriftStatus != reduce.DriftsGated || sum.MaxDrift <= r.Config.MaxDrift() {
		t.Fatalf("drift status %v, max %g\"", sum.DriftStatus, sum.MaxDrift.Sec())
	}
	for f := range d.EquatorialOffset {
		if d.EquatorialOffset[f].Length() != 0 {
			t.Fatalf("frame %d corrected past the gate", f)
		}
	}
}

func TestReduceNoCounter(t *testing.T) {
	p := synth.DefaultParams()
	p.Frames, p.Channels, p.Counter = 500, 4, false
	s := synth.Generate(p)
	sum, err := reduce.New(nil, nil, quiet).Reduce(s.Integration, s.Header)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Jumps.Count(jump.NoCounterData) != 4 {
		t.Fatalf("statuses %v", sum.Jumps.Status)
	}
}

func TestReduceDisabled(t *testing.T) {
	s := sim()
	r := reduce.New(parse(t, "jumps: {fix: false}\ndrifts: {correct: false}"), nil, quiet)
	sum, err := r.Reduce(s.Integration, s.Header)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Jumps.Count(jump.Disabled) != s.Integration.ChannelCount() {
		t.Fatalf("statuses %v", sum.Jumps.Status)
	}
}

func TestReduceNoFrames(t *testing.T) {
	s := sim()
	d := s.Integration
	for f := range d.Valid {
		d.Valid[f] = false
	}
	sum, err := reduce.New(nil, nil, quiet).Reduce(d, s.Header)
	if err != nil {
		t.Fatal(err)
	}
	if sum.DriftStatus != reduce.DriftsNoFrames {
		t.Fatalf("drift status %v", sum.DriftStatus)
	}
	if sum.Jumps.Leveled != 0 || sum.Dependents != 0 {
		t.Fatalf("leveled %d, dependents %g", sum.Jumps.Leveled, sum.Dependents)
	}
}
