// Public domain.

package jump

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/soniakeys/tscorr/internal/readout"
)

// Table maps channel index to calibrated jump size, the signal step per
// counter increment.
type Table map[int]float64

// ReadTableFile reads a jump size table from file fn.
func ReadTableFile(fn string) (Table, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ReadTable(f)
	if err != nil {
		return nil, errors.New(fn + ": " + err.Error())
	}
	return t, nil
}

// ReadTable reads a jump size table.
//
// Each data line holds a channel index and a jump size separated by white
// space.  Further fields are ignored.  Lines that do not parse as data,
// such as comments or column headings, are quietly skipped.  A table with
// no data at all is an error.
func ReadTable(r io.Reader) (Table, error) {
	t := make(Table)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		f := strings.Fields(sc.Text())
		if len(f) < 2 {
			continue
		}
		c, err := strconv.Atoi(f[0])
		if err != nil || c < 0 {
			continue
		}
		size, err := strconv.ParseFloat(f[1], 64)
		if err != nil || math.IsNaN(size) || math.IsInf(size, 0) {
			continue
		}
		t[c] = size
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(t) == 0 {
		return nil, errors.New("no jump sizes in table")
	}
	return t, nil
}

// Apply copies jump sizes to the channels of d.  Channels missing from the
// table get size 0, meaning not affected by jumps.  Apply returns the number
// of channels that received a nonzero size.
func (t Table) Apply(d *readout.Integration) (n int) {
	for c := range d.Channels {
		size := t[c]
		d.Channels[c].JumpSize = size
		if size != 0 {
			n++
		}
	}
	return
}

// Write writes t in the format read by ReadTable, ordered by channel.
func (t Table) Write(w io.Writer) error {
	cs := make([]int, 0, len(t))
	for c := range t {
		cs = append(cs, c)
	}
	sort.Ints(cs)
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# channel  jump size")
	for _, c := range cs {
		fmt.Fprintf(bw, "%-10d %g\n", c, t[c])
	}
	return bw.Flush()
}
