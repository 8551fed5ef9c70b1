// Public domain.

// Package jump detects and removes flux jumps from detector time streams.
//
// Each channel carries a small hardware counter that ticks whenever the
// read-out resets its flux quantum.  Where the counter changes, the signal
// steps.  Two ways of removing the steps are offered: leveling each run of
// constant counter value on its own weighted mean, or subtracting the
// counter change times a calibrated step size.
package jump

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/soniakeys/tscorr/internal/dependents"
	"github.com/soniakeys/tscorr/internal/readout"
)

// Mode selects how jumps are removed.
type Mode int

const (
	LevelMode       Mode = iota // segment and level
	PrecomputedMode             // subtract counter delta times calibrated size
)

func (m Mode) String() string {
	if m == PrecomputedMode {
		return "precomputed"
	}
	return "level"
}

// Group is the jump policy for one subarray.
type Group struct {
	Fix  bool
	Mode Mode
}

// Status is the outcome of a jump pass for one channel.
type Status int

const (
	Disabled      Status = iota // fixing turned off for the channel's group
	NoCounterData               // nothing to detect with
	Consistent                  // no jumps seen
	Leveled                     // blocks leveled or flagged
	Precomputed                 // calibrated steps subtracted
	Skipped                     // jumps seen but no calibrated size
)

var statusNames = [...]string{"disabled", "no-counter", "consistent",
	"leveled", "precomputed", "skipped"}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Engine runs jump detection and correction over an integration.
type Engine struct {
	// Groups holds the policy per subarray, indexed by Channel.Sub.
	// Channels of subarrays beyond the slice use Default.
	Groups  []Group
	Default Group

	MinLevelFrames int // blocks shorter than this are flagged
	From           int // first frame to correct, for resuming mid integration
	Workers        int // 0 means GOMAXPROCS
	Log            *slog.Logger
}

// Report summarizes one pass.
type Report struct {
	Status       []Status // by channel
	Jumping      int      // channels with jumps
	Perturbed    int      // channels actually corrected
	Leveled      int      // blocks
	Flagged      int      // blocks
	Insufficient int      // blocks without usable data
}

// Count returns the number of channels with status s.
func (r *Report) Count(s Status) (n int) {
	for _, cs := range r.Status {
		if cs == s {
			n++
		}
	}
	return
}

func (e *Engine) group(c *readout.Channel) Group {
	if c.Sub >= 0 && c.Sub < len(e.Groups) {
		return e.Groups[c.Sub]
	}
	return e.Default
}

func (e *Engine) logger() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

// Run detects jumps in every channel and corrects the channels whose
// group has fixing enabled.  Degrees of freedom used by leveling go to
// ledger l, which Run clears before and applies after the parallel part.
//
// Run returns an error only for configuration problems: precomputed mode
// requested with no channel carrying a calibrated jump size gives
// ErrNoJumpTable.  Data problems are logged and reported per channel.
func (e *Engine) Run(d *readout.Integration, l *dependents.Ledger) (*Report, error) {
	if err := e.checkTable(d); err != nil {
		return nil, err
	}
	log := e.logger()
	rep := &Report{Status: make([]Status, d.ChannelCount())}
	if !d.HasCounter() {
		log.Warn("jumps: "+ErrNoCounterData.Error(),
			"instrument", d.Instrument.Name)
		for c := range rep.Status {
			rep.Status[c] = NoCounterData
		}
		return rep, nil
	}
	rep.Jumping = Detect(d)

	from := d.FirstFrameFrom(e.From)
	l.Clear(nil, from, d.Size())
	results := make([]ChannelResult, d.ChannelCount())
	e.parallel(d.ChannelCount(), func(c int) {
		rep.Status[c], results[c] = e.fixChannel(d, l, c, from)
	})
	l.Apply(nil, from, d.Size())

	for c, r := range results {
		if r.Perturbed {
			rep.Perturbed++
		}
		rep.Leveled += r.Leveled
		rep.Flagged += r.Flagged
		rep.Insufficient += r.Insufficient
		if r.Insufficient > 0 {
			log.Warn("jumps: blocks left uncorrected",
				"channel", c, "blocks", r.Insufficient,
				"reason", ErrInsufficientData.Error())
		}
	}
	log.Info("jumps: pass done",
		"channels", d.ChannelCount(), "jumping", rep.Jumping,
		"corrected", rep.Perturbed, "leveled", rep.Leveled,
		"flagged", rep.Flagged)
	return rep, nil
}

// checkTable finds precomputed groups with no calibration to work with.
func (e *Engine) checkTable(d *readout.Integration) error {
	need := false
	for i := range d.Channels {
		if g := e.group(&d.Channels[i]); g.Fix && g.Mode == PrecomputedMode {
			need = true
			break
		}
	}
	if !need {
		return nil
	}
	for i := range d.Channels {
		if d.Channels[i].JumpSize != 0 {
			return nil
		}
	}
	return ErrNoJumpTable
}

func (e *Engine) fixChannel(d *readout.Integration, l *dependents.Ledger, c, from int) (Status, ChannelResult) {
	ch := &d.Channels[c]
	g := e.group(ch)
	switch {
	case !g.Fix:
		return Disabled, ChannelResult{}
	case !ch.HasJumps:
		return Consistent, ChannelResult{}
	case g.Mode == PrecomputedMode:
		if ch.JumpSize == 0 {
			return Skipped, ChannelResult{}
		}
		SubtractSteps(d, c, from)
		return Precomputed, ChannelResult{Perturbed: true}
	}
	r, err := FixChannel(d, l, c, from, e.MinLevelFrames)
	if err != nil {
		return NoCounterData, r
	}
	if !r.Perturbed {
		return Consistent, r
	}
	return Leveled, r
}

// parallel calls f for each of n channels on a fixed pool of workers and
// returns when all calls are done.
func (e *Engine) parallel(n int, f func(c int)) {
	maxWorkers := e.Workers
	if maxWorkers <= 0 {
		maxWorkers = runtime.GOMAXPROCS(0)
	}
	if maxWorkers > n {
		maxWorkers = n
	}
	chCh := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < maxWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range chCh {
				f(c)
			}
		}()
	}
	for c := 0; c < n; c++ {
		chCh <- c
	}
	close(chCh)
	wg.Wait()
}

// Detect sets HasJumps on every channel whose counter differs anywhere from
// its value in the first present frame, and returns the number of such
// channels.  Without counter data nothing is marked.
func Detect(d *readout.Integration) (jumping int) {
	if !d.HasCounter() {
		return 0
	}
	t0 := d.FirstFrame()
	for c := range d.Channels {
		ch := &d.Channels[c]
		ch.HasJumps = false
		if t0 == d.Size() {
			continue
		}
		base := d.CounterAt(t0, c)
		for t := t0 + 1; t < d.Size(); t++ {
			if d.Present(t) && d.CounterAt(t, c) != base {
				ch.HasJumps = true
				jumping++
				break
			}
		}
	}
	return
}

// SubtractSteps removes the calibrated jump steps of channel c from frames
// at and after from.  The counter baseline is the first present frame of the
// integration.  A channel with zero jump size is left alone.
func SubtractSteps(d *readout.Integration, c, from int) {
	size := d.Channels[c].JumpSize
	t0 := d.FirstFrame()
	if size == 0 || t0 == d.Size() {
		return
	}
	r := d.Instrument.JumpRange
	base := d.CounterAt(t0, c)
	for t := d.FirstFrameFrom(from); t < d.Size(); t++ {
		if !d.Present(t) {
			continue
		}
		if n := Delta(d.CounterAt(t, c), base, r); n != 0 {
			d.Data[d.Index(t, c)] -= float64(n) * size
		}
	}
}
