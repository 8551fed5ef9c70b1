// Public domain.

// Package reduce runs the read-out corrections on one integration.
package reduce

import (
	"fmt"
	"log/slog"

	sexa "github.com/soniakeys/sexagesimal"
	"github.com/soniakeys/unit"

	"github.com/soniakeys/tscorr/internal/config"
	"github.com/soniakeys/tscorr/internal/dependents"
	"github.com/soniakeys/tscorr/internal/drift"
	"github.com/soniakeys/tscorr/internal/jump"
	"github.com/soniakeys/tscorr/internal/readout"
)

// DriftStatus is the outcome of the drift pass.
type DriftStatus int

const (
	DriftsOff          DriftStatus = iota // not requested
	DriftsCorrected                       // table applied
	DriftsEmpty                           // no usable drift data
	DriftsGated                           // largest drift over the configured maximum
	DriftsNoTimestamps                    // frames carry no UTC
	DriftsNoFrames                        // no frame present to correct
)

var driftNames = [...]string{"off", "corrected", "empty", "gated", "no-utc",
	"no-frames"}

func (s DriftStatus) String() string {
	if s >= 0 && int(s) < len(driftNames) {
		return driftNames[s]
	}
	return fmt.Sprintf("DriftStatus(%d)", int(s))
}

// Summary reports what Reduce did.
type Summary struct {
	Jumps       *jump.Report
	DriftStatus DriftStatus
	Drifts      drift.Result
	MaxDrift    unit.Angle
	Dependents  float64 // frame degrees of freedom committed, all passes
}

// Reducer holds what is shared by the reduction of many integrations.
type Reducer struct {
	Config *config.Config
	Table  jump.Table // calibrated jump sizes, may be nil
	Log    *slog.Logger
}

// New returns a reducer.  A nil config means config.Default(), a nil
// logger slog.Default().
func New(c *config.Config, t jump.Table, log *slog.Logger) *Reducer {
	if c == nil {
		c = config.Default()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Reducer{Config: c, Table: t, Log: log}
}

// Reduce corrects integration d in place: jump detection and correction,
// then drift correction from the records of header h, which may be nil.
//
// Data problems are logged and reported in the summary.  Returned errors
// are configuration errors: jump.ErrNoJumpTable for precomputed mode
// without calibration, and drift.ErrEmptyTable when drift correction is
// required and there is nothing to correct with.
func (r *Reducer) Reduce(d *readout.Integration, h drift.Header) (*Summary, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	log := r.Log.With("instrument", d.Instrument.Name)
	if r.Table != nil {
		n := r.Table.Apply(d)
		log.Debug("jumps: calibration applied", "channels", n)
	}
	e := r.Config.Engine(d.Instrument)
	e.Log = log
	s := new(Summary)
	var err error
	if s.Jumps, err = e.Run(d, dependents.New("jumps", d)); err != nil {
		return nil, fmt.Errorf("jumps: %w", err)
	}
	if err = r.drifts(d, h, s, log); err != nil {
		return nil, err
	}
	for t := range d.Dependents {
		s.Dependents += d.Dependents[t]
	}
	return s, nil
}

func (r *Reducer) drifts(d *readout.Integration, h drift.Header, s *Summary, log *slog.Logger) error {
	c := r.Config.Drifts
	if !c.Correct {
		return nil
	}
	empty := func() error {
		s.DriftStatus = DriftsEmpty
		if c.Require {
			return fmt.Errorf("drifts: %w", drift.ErrEmptyTable)
		}
		log.Warn("drifts: " + drift.ErrEmptyTable.Error())
		return nil
	}
	tab := drift.Parse(h, log)
	s.MaxDrift = tab.MaxDrift()
	t0 := d.FirstFrame()
	switch {
	case tab.Len() == 0:
		return empty()
	case d.UTC == nil:
		s.DriftStatus = DriftsNoTimestamps
		log.Warn("drifts: " + drift.ErrNoTimestamps.Error())
		return nil
	case t0 == d.Size():
		s.DriftStatus = DriftsNoFrames
		log.Warn("drifts: no frames present")
		return nil
	}
	if limit := r.Config.MaxDrift(); limit > 0 && s.MaxDrift > limit {
		s.DriftStatus = DriftsGated
		log.Warn("drifts: too large, not corrected",
			"max", fmtAngle(s.MaxDrift), "limit", fmtAngle(limit))
		return nil
	}
	if tab.Validate(d.UTC[t0]); tab.Len() == 0 {
		return empty()
	}
	res, err := tab.Correct(d)
	if err != nil {
		return fmt.Errorf("drifts: %w", err)
	}
	s.Drifts = res
	s.DriftStatus = DriftsCorrected
	log.Info("drifts: pass done", "data", tab.Len(), "frames", res.Corrected,
		"extrapolated", res.Extrapolated, "max", fmtAngle(s.MaxDrift))
	return nil
}

func fmtAngle(a unit.Angle) string {
	return fmt.Sprintf("%.1s", sexa.FmtAngle(a))
}
