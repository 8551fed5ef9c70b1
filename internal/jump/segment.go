// Public domain.

package jump

import "github.com/soniakeys/tscorr/internal/readout"

// Block is a run of frames [From, To) over which one channel's jump
// counter holds still.
type Block struct {
	From, To int
}

// Len returns the number of frame slots in the block.
func (b Block) Len() int { return b.To - b.From }

// Segmenter walks one channel's counter trace and yields its blocks in
// order.  Absent frames neither open nor close a block.
type Segmenter struct {
	data     *readout.Integration
	channel  int
	from, to int

	// iteration state
	start     int // first frame of the open block
	next      int // next frame to examine
	jumpStart int // counter value of the open block
	done      bool
}

// NewSegmenter returns a segmenter for channel c over frames [from, to).
// The first block starts at the first present frame at or after from.
//
// If the integration has no counter data the returned segmenter yields
// nothing and the error is ErrNoCounterData.
func NewSegmenter(d *readout.Integration, c, from, to int) (*Segmenter, error) {
	if to > d.Size() {
		to = d.Size()
	}
	s := &Segmenter{data: d, channel: c, from: from, to: to}
	if !d.HasCounter() {
		s.done = true
		return s, &ChannelError{Channel: c, Err: ErrNoCounterData}
	}
	s.Reset()
	return s, nil
}

// Reset restarts iteration from the first block.
func (s *Segmenter) Reset() {
	if !s.data.HasCounter() {
		return
	}
	s.start = s.data.FirstFrameFrom(s.from)
	s.done = s.start >= s.to
	if !s.done {
		s.jumpStart = s.data.CounterAt(s.start, s.channel)
		s.next = s.start + 1
	}
}

// Next returns the next block.  The second result is false when the
// channel's range is exhausted.
func (s *Segmenter) Next() (Block, bool) {
	if s.done {
		return Block{}, false
	}
	d := s.data
	for t := s.next; t < s.to; t++ {
		if !d.Present(t) {
			continue
		}
		if v := d.CounterAt(t, s.channel); v != s.jumpStart {
			b := Block{s.start, t}
			s.start = t
			s.jumpStart = v
			s.next = t + 1
			return b, true
		}
	}
	// trailing block always closes at the end of the range
	s.done = true
	return Block{s.start, s.to}, true
}

// Blocks collects all remaining blocks.
func (s *Segmenter) Blocks() []Block {
	var bs []Block
	for b, ok := s.Next(); ok; b, ok = s.Next() {
		bs = append(bs, b)
	}
	return bs
}
