// Public domain.

package jump_test

import (
	"errors"
	"fmt"
	"math"
	"testing"

	xrand "golang.org/x/exp/rand"

	"github.com/soniakeys/tscorr/internal/dependents"
	"github.com/soniakeys/tscorr/internal/jump"
	"github.com/soniakeys/tscorr/internal/readout"
)

func ExampleFixChannel() {
	d := oneChannel(
		[]uint8{0, 0, 0, 1, 1, 1, 1, 1, 0, 0},
		[]float64{5, 5, 5, 9, 9, 9, 9, 9, 5, 5})
	l := dependents.New("jumps", d)
	l.Clear(nil, 0, d.Size())
	r, _ := jump.FixChannel(d, l, 0, 0, 3)
	l.Apply(nil, 0, d.Size())
	fmt.Printf("%+v\n", r)
	fmt.Println(channelValues(d, 0))
	fmt.Println(d.SampleFlags[7]&readout.SampleJump != 0,
		d.SampleFlags[8]&readout.SampleJump != 0,
		d.SampleFlags[9]&readout.SampleJump != 0)
	fmt.Println(d.Channels[0].Dependents)
	// Output:
	// {Perturbed:true Blocks:3 Leveled:2 Flagged:1 Insufficient:0}
	// [0 0 0 0 0 0 0 0 5 5]
	// false true true
	// 2
}

func TestEndToEndLedger(t *testing.T) {
	d := oneChannel(
		[]uint8{0, 0, 0, 1, 1, 1, 1, 1, 0, 0},
		[]float64{5, 5, 5, 9, 9, 9, 9, 9, 5, 5})
	l := dependents.New("jumps", d)
	l.Clear(nil, 0, d.Size())
	if _, err := jump.FixChannel(d, l, 0, 0, 3); err != nil {
		t.Fatal(err)
	}
	l.Apply(nil, 0, d.Size())
	want := []float64{1. / 3, 1. / 3, 1. / 3, .2, .2, .2, .2, .2, 0, 0}
	for f, w := range want {
		if math.Abs(d.Dependents[f]-w) > 1e-12 {
			t.Fatalf("frame %d dependents %g, want %g", f, d.Dependents[f], w)
		}
	}
}

func TestFlagLevelBoundary(t *testing.T) {
	const minLevel = 4
	for _, tc := range []struct {
		n    int
		want jump.Action
	}{
		{minLevel, jump.BlockLeveled},
		{minLevel - 1, jump.BlockFlagged},
	} {
		values := make([]float64, tc.n)
		for i := range values {
			values[i] = 3
		}
		d := oneChannel(make([]uint8, tc.n), values)
		l := dependents.New("jumps", d)
		l.Clear(nil, 0, tc.n)
		a, err := jump.FixBlock(d, l, 0, jump.Block{From: 0, To: tc.n}, minLevel)
		if err != nil {
			t.Fatal(err)
		}
		if a != tc.want {
			t.Fatalf("block of %d frames: %v, want %v", tc.n, a, tc.want)
		}
		switch a {
		case jump.BlockLeveled:
			if d.Data[0] != 0 || l.Channel(0) != 1 {
				t.Fatalf("leveled block: data %v, channel dof %g",
					d.Data, l.Channel(0))
			}
		case jump.BlockFlagged:
			if d.Data[0] != 3 || l.Channel(0) != 0 {
				t.Fatal("flagged block changed data or ledger")
			}
			for f := 0; f < tc.n; f++ {
				if d.SampleFlags[f]&readout.SampleJump == 0 {
					t.Fatalf("frame %d not flagged", f)
				}
			}
		}
	}
}

func TestLevelIdempotent(t *testing.T) {
	rnd := xrand.New(&xrand.PCGSource{})
	rnd.Seed(11)
	const n = 50
	d := oneChannel(make([]uint8, n), make([]float64, n))
	for f := 0; f < n; f++ {
		d.Data[f] = 100 + 10*rnd.NormFloat64()
		d.Weight[f] = .5 + rnd.Float64()
	}
	d.SampleFlags[7] = readout.SampleSpike
	d.FrameFlags[9] = readout.FrameSkipModeling
	d.Valid[12] = false
	l := dependents.New("jumps", d)
	l.Clear(nil, 0, n)
	b := jump.Block{From: 0, To: n}
	first, err := jump.Level(d, l, 0, b)
	if err != nil {
		t.Fatal(err)
	}
	second, err := jump.Level(d, l, 0, b)
	if err != nil {
		t.Fatal(err)
	}
	t.Log("first mean", first, "second mean", second)
	if math.Abs(second) > 1e-9 {
		t.Fatalf("second leveling removed %g", second)
	}
}

func TestLevelExcludesFlagged(t *testing.T) {
	d := oneChannel(make([]uint8, 4), []float64{1, 1, 100, 1})
	d.SampleFlags[2] = readout.SampleSpike
	l := dependents.New("jumps", d)
	l.Clear(nil, 0, 4)
	ave, err := jump.Level(d, l, 0, jump.Block{From: 0, To: 4})
	if err != nil {
		t.Fatal(err)
	}
	if ave != 1 {
		t.Fatalf("mean %g, want 1", ave)
	}
	// the flagged sample is corrected too, but consumes no dof
	if d.Data[2] != 99 {
		t.Fatalf("flagged sample %g, want 99", d.Data[2])
	}
	if l.Frame(2) != 0 || math.Abs(l.Frame(0)-1./3) > 1e-12 {
		t.Fatalf("frame dof %g %g", l.Frame(0), l.Frame(2))
	}
}

func TestLevelInsufficient(t *testing.T) {
	d := oneChannel(make([]uint8, 3), []float64{4, 4, 4})
	for f := range d.Weight {
		d.Weight[f] = 0
	}
	l := dependents.New("jumps", d)
	l.Clear(nil, 0, 3)
	a, err := jump.FixBlock(d, l, 0, jump.Block{From: 0, To: 3}, 1)
	if !errors.Is(err, jump.ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
	if a != jump.BlockUnchanged || d.Data[0] != 4 || l.Channel(0) != 0 {
		t.Fatal("zero weight block was changed")
	}
}

// Each leveled block must contribute exactly one degree of freedom,
// spread over its frames.
func TestDependentsConservation(t *testing.T) {
	rnd := xrand.New(&xrand.PCGSource{})
	rnd.Seed(5)
	const n = 400
	d := oneChannel(make([]uint8, n), make([]float64, n))
	var v uint8
	for f := 0; f < n; f++ {
		if rnd.Float64() < .03 {
			v++
		}
		d.Counter[f] = v
		d.Data[f] = rnd.NormFloat64() + 20*float64(v)
		d.Weight[f] = rnd.Float64()
		if rnd.Float64() < .05 {
			d.SampleFlags[f] = readout.SampleSpike
		}
	}
	l := dependents.New("jumps", d)
	l.Clear(nil, 0, n)
	r, err := jump.FixChannel(d, l, 0, 0, 8)
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for f := 0; f < n; f++ {
		sum += l.Frame(f)
	}
	t.Logf("%+v", r)
	if r.Leveled == 0 {
		t.Fatal("nothing leveled")
	}
	if math.Abs(sum-float64(r.Leveled)) > 1e-9 {
		t.Fatalf("frame dof sum %g, leveled blocks %d", sum, r.Leveled)
	}
	if l.Channel(0) != float64(r.Leveled) {
		t.Fatalf("channel dof %g, leveled blocks %d", l.Channel(0), r.Leveled)
	}
}

func TestFixChannelConsistent(t *testing.T) {
	d := oneChannel([]uint8{4, 4, 4, 4}, []float64{1, 2, 3, 4})
	l := dependents.New("jumps", d)
	l.Clear(nil, 0, 4)
	r, err := jump.FixChannel(d, l, 0, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if r.Perturbed || r.Blocks != 1 || d.Data[3] != 4 {
		t.Fatalf("single block channel touched: %+v %v", r, d.Data)
	}
}

func TestFixChannelFrom(t *testing.T) {
	d := oneChannel(
		[]uint8{0, 0, 1, 1, 1, 2, 2, 2},
		[]float64{0, 0, 3, 3, 3, 6, 6, 6})
	l := dependents.New("jumps", d)
	l.Clear(nil, 0, d.Size())
	r, _ := jump.FixChannel(d, l, 0, 3, 2)
	// resuming at frame 3 leaves frames before it alone
	if r.Blocks != 2 || d.Data[2] != 3 || d.Data[3] != 0 || d.Data[7] != 0 {
		t.Fatalf("%+v %v", r, d.Data)
	}
}
