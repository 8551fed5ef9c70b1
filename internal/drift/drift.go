// Public domain.

// Package drift corrects frame astrometry for slow pointing drifts.
//
// Drifts are measured now and then during an observation as a position
// before and after a realignment.  Each measurement becomes a Datum whose
// offset is ramped in linearly across its time bracket.
package drift

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"

	sexa "github.com/soniakeys/sexagesimal"
	"github.com/soniakeys/unit"

	"github.com/soniakeys/tscorr/internal/readout"
)

var (
	ErrEmptyTable   = errors.New("no drift data")
	ErrNotValidated = errors.New("drift table not validated")
	ErrNoTimestamps = errors.New("integration has no timestamps")
)

// Datum is one drift measurement.
type Datum struct {
	Start, End float64        // UTC bracket [Start, End), seconds
	Next       float64        // before time of the following record, +Inf if none
	Delta      readout.Offset // drift accumulated across the bracket
	Size       unit.Angle     // great circle length of the drift
}

// Span returns the length of the bracket in seconds.
func (dt *Datum) Span() float64 { return dt.End - dt.Start }

// Table is an ordered list of drift data.
type Table struct {
	Data      []Datum
	Log       *slog.Logger
	validated bool
}

// NewTable returns an unvalidated table holding data.
func NewTable(data []Datum, log *slog.Logger) *Table {
	if log == nil {
		log = slog.Default()
	}
	return &Table{Data: data, Log: log}
}

// record keys, suffixed with the record index
const (
	keyBeforeRA   = "DBRA"
	keyBeforeDec  = "DBDEC"
	keyAfterRA    = "DARA"
	keyAfterDec   = "DADEC"
	keyBeforeTime = "DBTIME"
	keyAfterTime  = "DATIME"
)

// rawRecord is a drift record as found in the header.
type rawRecord struct {
	before, after          readout.Equatorial
	beforeTime, afterTime float64
}

// readRecord reads record i.  The result is false if any key is missing.
func readRecord(h Header, i int) (r rawRecord, ok bool) {
	n := strconv.Itoa(i)
	var v [6]float64
	for k, key := range []string{keyBeforeRA, keyBeforeDec, keyAfterRA,
		keyAfterDec, keyBeforeTime, keyAfterTime} {
		if v[k], ok = h.Float(key + n); !ok {
			return
		}
	}
	r.before = readout.Equatorial{
		RA:  unit.AngleFromDeg(v[0] * 15),
		Dec: unit.AngleFromDeg(v[1]),
	}
	r.after = readout.Equatorial{
		RA:  unit.AngleFromDeg(v[2] * 15),
		Dec: unit.AngleFromDeg(v[3]),
	}
	r.beforeTime, r.afterTime = v[4], v[5]
	return r, true
}

func finite(f ...float64) bool {
	for _, x := range f {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Parse builds a table from the drift records of header h.
//
// Records are numbered from 0.  Reading stops at the first index missing
// any of the six record keys.  A record with a non-finite offset or time is
// logged and left out; it still sets Next of the record before it.
func Parse(h Header, log *slog.Logger) *Table {
	t := NewTable(nil, log)
	var raw []rawRecord
	for i := 0; ; i++ {
		r, ok := readRecord(h, i)
		if !ok {
			break
		}
		raw = append(raw, r)
	}
	for i, r := range raw {
		next := math.Inf(1)
		if i+1 < len(raw) {
			next = raw[i+1].beforeTime
		}
		delta := tangentOffset(r.before, r.after)
		if !finite(delta.X.Rad(), delta.Y.Rad(), r.beforeTime, r.afterTime) {
			t.Log.Warn("drifts: rejected record", "index", i)
			continue
		}
		t.Data = append(t.Data, Datum{
			Start: r.beforeTime,
			End:   r.afterTime,
			Next:  next,
			Delta: delta,
			Size:  Separation(r.before, r.after),
		})
	}
	t.Log.Debug("drifts: parsed", "records", len(raw), "kept", len(t.Data))
	return t
}

// Len returns the number of data in the table.
func (t *Table) Len() int { return len(t.Data) }

// MaxDrift returns the largest drift size in the table.
func (t *Table) MaxDrift() (m unit.Angle) {
	for i := range t.Data {
		if s := t.Data[i].Size; s > m {
			m = s
		}
	}
	return
}

// Validate orders the table and links the brackets.
//
// Data are sorted by start time.  Each bracket then starts where the
// previous datum's next record begins, and the first starts at firstUTC,
// the time of the first frame of the integration.  Brackets left with zero
// or negative span are logged and dropped.
func (t *Table) Validate(firstUTC float64) {
	d := t.Data
	sort.SliceStable(d, func(i, j int) bool { return d[i].Start < d[j].Start })
	for i := 1; i < len(d); i++ {
		d[i].Start = d[i-1].Next
	}
	if len(d) > 0 {
		d[0].Start = firstUTC
	}
	kept := d[:0]
	for i := range d {
		if d[i].Span() <= 0 {
			t.Log.Warn("drifts: dropped empty bracket", "index", i,
				"start", d[i].Start, "end", d[i].End)
			continue
		}
		kept = append(kept, d[i])
	}
	if len(kept) > 0 && kept[0].Start > firstUTC {
		kept[0].Start = firstUTC
	}
	t.Data = kept
	t.validated = true
}

// Result summarizes a correction pass.
type Result struct {
	Corrected        int // frames corrected
	Extrapolated     int // of those, frames past the last bracket
	ExtrapolatedFrom int // first extrapolated frame, -1 if none
}

// Correct adds the drift of each present frame of d to its astrometry.
//
// Frames must be in time order.  Within a bracket the datum's offset is
// scaled by the fractional position of the frame time in the bracket.
// Frames after the last bracket get the full offset of the last datum, and
// the first of them is logged.  The offset is added to the equatorial
// offset, to the equatorial position with RA scaled by 1/cos(Dec), and,
// rotated by the parallactic angle, to the horizontal offset.
//
// An empty table logs a warning and changes nothing.
func (t *Table) Correct(d *readout.Integration) (Result, error) {
	res := Result{ExtrapolatedFrom: -1}
	if !t.validated {
		return res, ErrNotValidated
	}
	if len(t.Data) == 0 {
		t.Log.Warn("drifts: " + ErrEmptyTable.Error())
		return res, nil
	}
	if d.UTC == nil {
		return res, ErrNoTimestamps
	}
	last := &t.Data[len(t.Data)-1]
	i := 0
	for f := 0; f < d.Size(); f++ {
		if !d.Present(f) {
			continue
		}
		utc := d.UTC[f]
		if res.ExtrapolatedFrom < 0 {
			for i < len(t.Data) && utc >= t.Data[i].End {
				i++
			}
			if i == len(t.Data) {
				res.ExtrapolatedFrom = f
				t.Log.Info("drifts: extrapolating past last datum",
					"frame", f, "utc", utc,
					"drift", fmtAngle(last.Size))
			}
		}
		var off readout.Offset
		if res.ExtrapolatedFrom >= 0 {
			off = last.Delta
			res.Extrapolated++
		} else {
			dt := &t.Data[i]
			x := (utc - dt.Start) / dt.Span()
			off = dt.Delta.Scale(math.Max(0, math.Min(1, x)))
		}
		apply(d, f, off)
		res.Corrected++
	}
	return res, nil
}

func apply(d *readout.Integration, f int, off readout.Offset) {
	if d.EquatorialOffset != nil {
		d.EquatorialOffset[f].Add(off)
	}
	if d.Equatorial != nil {
		p := &d.Equatorial[f]
		p.RA += unit.Angle(off.X.Rad() / math.Cos(p.Dec.Rad()))
		p.Dec += off.Y
	}
	if d.HorizontalOffset != nil {
		var pa unit.Angle
		if d.ParallacticAngle != nil {
			pa = d.ParallacticAngle[f]
		}
		d.HorizontalOffset[f].Add(off.Rotate(pa))
	}
}

func fmtAngle(a unit.Angle) string {
	return fmt.Sprintf("%.1s", sexa.FmtAngle(a))
}
