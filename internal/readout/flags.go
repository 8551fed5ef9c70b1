// Public domain.

package readout

// FrameFlag marks a whole frame.
type FrameFlag uint16

const (
	FrameSkipModeling FrameFlag = 1 << iota // exclude from all modeling
	FrameSkipWeighting                      // exclude from noise weighting
	FrameSkipSource                         // exclude from source modeling
	FrameChopTransit                        // chopper in transit
)

// ModelingFlags are the frame flags that exclude a frame from statistics
// such as block means.
const ModelingFlags = FrameSkipModeling | FrameChopTransit

// SampleFlag marks one channel in one frame.
type SampleFlag uint16

const (
	SampleSpike       SampleFlag = 1 << iota // spike or glitch
	SampleJump                               // phase or level jump, not leveled
	SampleSkip                               // unusable for any purpose
	SampleSourceBlank                        // bright source, blanked from noise modeling
)

// SampleBadFlags are the sample flags that exclude a sample from statistics.
const SampleBadFlags = SampleSpike | SampleJump | SampleSkip

// Usable reports whether a sample with frame flags ff and sample flags sf
// may contribute to statistics.
func Usable(ff FrameFlag, sf SampleFlag) bool {
	return ff&ModelingFlags == 0 && sf&SampleBadFlags == 0
}

// SampleUsable reports whether channel c of frame t may contribute to
// statistics.  The frame must be present and carry positive weight.
func (d *Integration) SampleUsable(t, c int) bool {
	return d.Valid[t] && d.Weight[t] > 0 &&
		Usable(d.FrameFlags[t], d.SampleFlags[d.Index(t, c)])
}
