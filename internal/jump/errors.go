// Public domain.

package jump

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCounterData means the integration recorded no jump counter, so
	// jumps can be neither detected nor corrected.
	ErrNoCounterData = errors.New("no jump counter data available")

	// ErrInsufficientData means a block had no usable weight to level with.
	ErrInsufficientData = errors.New("no usable samples in block")

	// ErrNoJumpTable means precomputed jump correction was requested
	// without a jump size table.
	ErrNoJumpTable = errors.New("precomputed jump correction requested without a jump table")
)

// ChannelError ties an error to a channel and, when known, a block.
type ChannelError struct {
	Channel  int
	From, To int // block, zero if not block specific
	Err      error
}

func (e *ChannelError) Error() string {
	if e.From == 0 && e.To == 0 {
		return fmt.Sprintf("channel %d: %v", e.Channel, e.Err)
	}
	return fmt.Sprintf("channel %d block [%d,%d): %v",
		e.Channel, e.From, e.To, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }
