// Public domain.

package jump_test

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/soniakeys/tscorr/internal/readout"
)

var testInstrument = readout.Instrument{
	Name:             "test",
	JumpRange:        128,
	SamplingInterval: 4 * time.Millisecond,
	Subarrays:        []string{"R0", "T0"},
}

// oneChannel builds a single channel integration from a counter trace and
// sample values.
func oneChannel(counter []uint8, values []float64) *readout.Integration {
	d := readout.New(testInstrument, len(values), 1, true)
	copy(d.Counter, counter)
	copy(d.Data, values)
	return d
}

// channelValues extracts the samples of channel c.
func channelValues(d *readout.Integration, c int) []float64 {
	v := make([]float64, d.Size())
	for t := range v {
		v[t] = d.Data[d.Index(t, c)]
	}
	return v
}

// recorder is a slog.Handler that keeps records for inspection.
type recorder struct {
	mu      sync.Mutex
	records []slog.Record
}

func (r *recorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *recorder) Handle(_ context.Context, rec slog.Record) error {
	r.mu.Lock()
	r.records = append(r.records, rec.Clone())
	r.mu.Unlock()
	return nil
}

func (r *recorder) WithAttrs([]slog.Attr) slog.Handler { return r }
func (r *recorder) WithGroup(string) slog.Handler      { return r }

func (r *recorder) count(level slog.Level) (n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.Level == level {
			n++
		}
	}
	return
}

func newRecorder() (*recorder, *slog.Logger) {
	r := new(recorder)
	return r, slog.New(r)
}
