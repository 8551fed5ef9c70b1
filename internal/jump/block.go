// Public domain.

package jump

import (
	"errors"

	"github.com/soniakeys/tscorr/internal/dependents"
	"github.com/soniakeys/tscorr/internal/readout"
)

// Action says what was done to a block.
type Action int

const (
	BlockUnchanged Action = iota // no usable data, left as is
	BlockFlagged                 // too short, samples flagged
	BlockLeveled                 // weighted mean removed
)

func (a Action) String() string {
	switch a {
	case BlockFlagged:
		return "flagged"
	case BlockLeveled:
		return "leveled"
	}
	return "unchanged"
}

// FixBlock corrects block b of channel c.  Blocks shorter than
// minLevelFrames are flagged with SampleJump; longer blocks are leveled.
//
// The error is ErrInsufficientData, wrapped in a *ChannelError, when a
// block to level has no usable weight.  The block is then BlockUnchanged.
func FixBlock(d *readout.Integration, l *dependents.Ledger, c int, b Block, minLevelFrames int) (Action, error) {
	if b.Len() < minLevelFrames {
		FlagBlock(d, c, b)
		return BlockFlagged, nil
	}
	if _, err := Level(d, l, c, b); err != nil {
		return BlockUnchanged, err
	}
	return BlockLeveled, nil
}

// FlagBlock marks every present sample of channel c in block b as a jump.
func FlagBlock(d *readout.Integration, c int, b Block) {
	for t := b.From; t < b.To; t++ {
		if d.Present(t) {
			d.SampleFlags[d.Index(t, c)] |= readout.SampleJump
		}
	}
}

// Level removes the weighted mean of channel c over block b and returns it.
//
// The mean uses only usable samples.  It is subtracted from every present
// sample of the block, flagged ones included.  One degree of freedom is
// charged to the channel and spread over the frames that made the mean,
// in proportion to their weight.
func Level(d *readout.Integration, l *dependents.Ledger, c int, b Block) (float64, error) {
	var sum, sumw float64
	for t := b.From; t < b.To; t++ {
		if !d.SampleUsable(t, c) {
			continue
		}
		w := d.Weight[t]
		sum += w * d.Data[d.Index(t, c)]
		sumw += w
	}
	if sumw == 0 {
		return 0, &ChannelError{Channel: c, From: b.From, To: b.To,
			Err: ErrInsufficientData}
	}
	ave := sum / sumw
	l.AddChannel(c, 1)
	for t := b.From; t < b.To; t++ {
		if !d.Present(t) {
			continue
		}
		if d.SampleUsable(t, c) {
			l.AddFrame(t, d.Weight[t]/sumw)
		}
		d.Data[d.Index(t, c)] -= ave
	}
	return ave, nil
}

// ChannelResult summarizes the jump fix of one channel.
type ChannelResult struct {
	Perturbed    bool // more than one block, so jumps were corrected
	Blocks       int
	Leveled      int
	Flagged      int
	Insufficient int
}

// FixChannel levels or flags every block of channel c from the first
// present frame at or after from to the end of the integration.
//
// A channel whose counter never moves is one block and is left alone;
// Perturbed is then false.  Blocks without usable data are counted in
// Insufficient and do not stop the channel.  The only error returned is
// ErrNoCounterData.
func FixChannel(d *readout.Integration, l *dependents.Ledger, c, from, minLevelFrames int) (ChannelResult, error) {
	var r ChannelResult
	s, err := NewSegmenter(d, c, from, d.Size())
	if err != nil {
		return r, err
	}
	first, ok := s.Next()
	if !ok {
		return r, nil
	}
	second, ok := s.Next()
	if !ok {
		r.Blocks = 1
		return r, nil
	}
	r.Perturbed = true
	for _, b := range append([]Block{first, second}, s.Blocks()...) {
		r.Blocks++
		switch a, err := FixBlock(d, l, c, b, minLevelFrames); {
		case errors.Is(err, ErrInsufficientData):
			r.Insufficient++
		case a == BlockLeveled:
			r.Leveled++
		case a == BlockFlagged:
			r.Flagged++
		}
	}
	return r, nil
}
