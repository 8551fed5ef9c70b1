// Public domain.

// Package dependents keeps account of the degrees of freedom that
// corrections consume from the data.
//
// Every correction pass that fits parameters to the time stream owns a
// Ledger.  Workers add fractional amounts per channel and per frame while
// the pass runs; when the pass is done the amounts are committed to the
// integration, where the noise model picks them up.  Running the same
// pass again first retracts what it committed the previous time, so
// repeated iterations never count a pass twice.
package dependents

import (
	"math"
	"sync/atomic"
)

// Target receives committed degrees of freedom.
type Target interface {
	Size() int
	ChannelCount() int
	AddFrameDependents(t int, dp float64)
	AddChannelDependents(c int, dp float64)
}

type state int

const (
	fresh state = iota
	cleared
	applied
)

// Ledger accumulates the degrees of freedom of one named pass.
//
// AddChannel and AddFrame may be called concurrently.  Clear and Apply
// must not overlap with any Add call.
type Ledger struct {
	Name   string
	target Target
	state  state

	forChannel []atomicFloat
	forFrame   []atomicFloat

	// amounts last committed to target, retracted by Clear
	doneChannel []float64
	doneFrame   []float64
}

// New creates a ledger for pass name over target.
func New(name string, target Target) *Ledger {
	nc, nt := target.ChannelCount(), target.Size()
	return &Ledger{
		Name:        name,
		target:      target,
		forChannel:  make([]atomicFloat, nc),
		forFrame:    make([]atomicFloat, nt),
		doneChannel: make([]float64, nc),
		doneFrame:   make([]float64, nt),
	}
}

// Clear prepares the ledger for a pass over frames [from, to) of the
// listed channels.  A nil channel list means all channels.  Amounts
// previous passes committed for the listed channels, and for every frame
// wherever the earlier range lay, are retracted from the target.
// Clear is idempotent.
func (l *Ledger) Clear(channels []int, from, to int) {
	from, to = l.clip(from, to)
	l.eachChannel(channels, func(c int) {
		if dp := l.doneChannel[c]; dp != 0 {
			l.target.AddChannelDependents(c, -dp)
			l.doneChannel[c] = 0
		}
		l.forChannel[c].store(0)
	})
	for t, dp := range l.doneFrame {
		if dp != 0 {
			l.target.AddFrameDependents(t, -dp)
			l.doneFrame[t] = 0
		}
	}
	for t := from; t < to; t++ {
		l.forFrame[t].store(0)
	}
	l.state = cleared
}

// AddChannel adds dp degrees of freedom consumed from channel c.
func (l *Ledger) AddChannel(c int, dp float64) { l.forChannel[c].add(dp) }

// AddFrame adds dp degrees of freedom consumed from frame t.
func (l *Ledger) AddFrame(t int, dp float64) { l.forFrame[t].add(dp) }

// Channel returns the amount accumulated for channel c in this pass.
func (l *Ledger) Channel(c int) float64 { return l.forChannel[c].load() }

// Frame returns the amount accumulated for frame t in this pass.
func (l *Ledger) Frame(t int) float64 { return l.forFrame[t].load() }

// Apply commits the accumulated amounts for frames [from, to) of the
// listed channels to the target and closes the pass.  Without a
// preceding Clear, Apply does nothing and returns false.
func (l *Ledger) Apply(channels []int, from, to int) bool {
	if l.state != cleared {
		return false
	}
	from, to = l.clip(from, to)
	l.eachChannel(channels, func(c int) {
		dp := l.forChannel[c].load()
		if dp != 0 {
			l.target.AddChannelDependents(c, dp)
		}
		l.doneChannel[c] += dp
	})
	for t := from; t < to; t++ {
		dp := l.forFrame[t].load()
		if dp != 0 {
			l.target.AddFrameDependents(t, dp)
		}
		l.doneFrame[t] += dp
	}
	l.state = applied
	return true
}

func (l *Ledger) clip(from, to int) (int, int) {
	if from < 0 {
		from = 0
	}
	if n := len(l.forFrame); to > n {
		to = n
	}
	return from, to
}

func (l *Ledger) eachChannel(channels []int, f func(int)) {
	if channels == nil {
		for c := range l.forChannel {
			f(c)
		}
		return
	}
	for _, c := range channels {
		f(c)
	}
}

// atomicFloat is a float64 with lock-free add.
type atomicFloat struct {
	bits atomic.Uint64
}

func (a *atomicFloat) load() float64 { return math.Float64frombits(a.bits.Load()) }

func (a *atomicFloat) store(v float64) { a.bits.Store(math.Float64bits(v)) }

func (a *atomicFloat) add(v float64) {
	for {
		old := a.bits.Load()
		nv := math.Float64bits(math.Float64frombits(old) + v)
		if a.bits.CompareAndSwap(old, nv) {
			return
		}
	}
}
