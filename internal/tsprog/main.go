// Public domain.

// Package tsprog implements the tscorr command.
package tsprog

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/soniakeys/exit"

	"github.com/soniakeys/tscorr/internal/config"
	"github.com/soniakeys/tscorr/internal/drift"
	"github.com/soniakeys/tscorr/internal/jump"
	"github.com/soniakeys/tscorr/internal/readout"
	"github.com/soniakeys/tscorr/internal/reduce"
)

const versionString = "tscorr version 0.1 Go source."
const copyrightString = "Public domain."

// HeaderExt is the extension of the drift header file read next to each
// integration file.
const HeaderExt = ".hdr"

func Main() {
	defer exit.Handler()

	cl := parseCommandLine()
	log := newLogger(cl.verbose)
	cfg := readConfig(cl)
	tab := readTable(cl, cfg)
	r := reduce.New(cfg, tab, log)
	if cl.out != "" {
		if err := os.MkdirAll(cl.out, 0o755); err != nil {
			exit.Log(err)
		}
	}

	// prCh keeps results in submission order.  it is buffered so a fast
	// worker can drop off a result without waiting for workers ahead of it.
	maxWorkers := runtime.GOMAXPROCS(0)
	if maxWorkers > len(cl.files) {
		maxWorkers = len(cl.files)
	}
	prCh := make(chan chan *result, maxWorkers*2)
	jobCh := make(chan *job)

	// dispatcher.  each file gets a return channel that works like a
	// ticket for picking up its result.
	go func() {
		for _, fn := range cl.files {
			rch := make(chan *result, 1)
			jobCh <- &job{fn, rch}
			prCh <- rch
		}
		close(jobCh)
		close(prCh)
	}()
	for n := 0; n < maxWorkers; n++ {
		go worker(r, cl.out, jobCh)
	}

	printHeadings()
	var tot totals
	for rch := range prCh {
		res := <-rch
		fmt.Println(res.line)
		tot.add(res)
	}
	fmt.Println(tot)
	if tot.failed > 0 {
		exit.Log(fmt.Sprintf("%d of %d files failed", tot.failed, tot.files))
	}
}

type job struct {
	fn  string
	rch chan *result
}

type result struct {
	line    string
	err     error
	frames  int
	samples int
	sum     *reduce.Summary
}

// worker reduces files until the job channel closes.
func worker(r *reduce.Reducer, out string, jobCh chan *job) {
	for j := range jobCh {
		j.rch <- reduceFile(r, j.fn, out) // buffered
	}
}

func reduceFile(r *reduce.Reducer, fn, out string) *result {
	name := filepath.Base(fn)
	fail := func(err error) *result {
		return &result{line: fmt.Sprintf("%-24s error: %v", name, err), err: err}
	}
	d, _, err := readout.ReadFile(fn)
	if err != nil {
		return fail(err)
	}
	h, err := readHeader(fn)
	if err != nil {
		return fail(err)
	}
	sum, err := r.Reduce(d, h)
	if err != nil {
		return fail(err)
	}
	if out != "" {
		if err := readout.WriteFile(filepath.Join(out, name), d); err != nil {
			return fail(err)
		}
	}
	j := sum.Jumps
	return &result{
		line: fmt.Sprintf("%-24s %8s %4d/%-4d %5d %5d  %-9s %s",
			name, humanize.Comma(int64(d.Size())),
			j.Jumping, d.ChannelCount(), j.Leveled, j.Flagged,
			sum.DriftStatus, fmtDrift(sum)),
		frames:  d.Size(),
		samples: d.Size() * d.ChannelCount(),
		sum:     sum,
	}
}

func fmtDrift(s *reduce.Summary) string {
	if s.DriftStatus == reduce.DriftsOff || s.DriftStatus == reduce.DriftsEmpty {
		return "-"
	}
	return fmt.Sprintf("%.1f\"", s.MaxDrift.Sec())
}

// readHeader reads the drift header next to integration file fn.  A missing
// header is not an error; the drift pass decides what an empty table means.
func readHeader(fn string) (drift.Header, error) {
	hfn := strings.TrimSuffix(fn, filepath.Ext(fn)) + HeaderExt
	h, err := drift.ReadHeaderFile(hfn)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return h, err
}

type totals struct {
	files, failed          int
	frames, samples        int
	jumping, leveled, flag int
}

func (t *totals) add(r *result) {
	t.files++
	if r.err != nil {
		t.failed++
		return
	}
	t.frames += r.frames
	t.samples += r.samples
	t.jumping += r.sum.Jumps.Jumping
	t.leveled += r.sum.Jumps.Leveled
	t.flag += r.sum.Jumps.Flagged
}

func (t totals) String() string {
	return fmt.Sprintf("%d files, %s frames, %s samples; "+
		"%s jumping channels, %s blocks leveled, %s flagged",
		t.files, humanize.Comma(int64(t.frames)), humanize.Comma(int64(t.samples)),
		humanize.Comma(int64(t.jumping)), humanize.Comma(int64(t.leveled)),
		humanize.Comma(int64(t.flag)))
}

func printHeadings() {
	fmt.Println(versionString)
	fmt.Printf("%-24s %8s %9s %5s %5s  %-9s %s\n",
		"Integration", "Frames", "Jumping", "Level", "Flag", "Drifts", "Max")
}

type commandLine struct {
	config  string // -c
	table   string // -j
	out     string // -o
	verbose bool   // -v
	files   []string
}

func parseCommandLine() *commandLine {
	var cl commandLine
	dh := flag.Bool("h", false, "")
	flag.StringVar(&cl.config, "c", "", "")
	flag.StringVar(&cl.table, "j", "", "")
	flag.StringVar(&cl.out, "o", "", "")
	flag.BoolVar(&cl.verbose, "v", false, "")
	flag.Usage = func() {
		os.Stderr.WriteString(`
Usage: tscorr [options] <file> ...   correct integration files
       tscorr -h                     display help and quick reference

Options:
       -c <config-file>
       -j <jump-table-file>
       -o <output-directory>
       -v                            debug logging
`)
	}
	flag.Parse()
	switch {
	case *dh:
		printHelp()
		os.Exit(0)
	case flag.NArg() == 0:
		flag.Usage()
		os.Exit(1)
	}
	cl.files = flag.Args()
	return &cl
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr,
		&slog.HandlerOptions{Level: level}))
}

func readConfig(cl *commandLine) *config.Config {
	if cl.config == "" {
		return config.Default()
	}
	c, err := config.Load(cl.config)
	if err != nil {
		exit.Log(err)
	}
	return c
}

// readTable reads the jump size table named on the command line, or else
// in the config file.  No table is fine unless precomputed mode needs one,
// which the jump engine reports.
func readTable(cl *commandLine, c *config.Config) jump.Table {
	fn := cl.table
	if fn == "" {
		fn = c.Jumps.Table
	}
	if fn == "" {
		return nil
	}
	t, err := jump.ReadTableFile(fn)
	if err != nil {
		exit.Log(err)
	}
	return t
}

func printHelp() {
	fmt.Println(versionString)
	fmt.Println(copyrightString)
	fmt.Println(`
Tscorr removes flux jumps from detector time streams and corrects frame
astrometry for pointing drifts.  Input is one or more integration files as
written by tssim.  Drift records are read from a header file of the same
name with extension .hdr, if present.  Output is one line per integration
and a summary.  With -o, corrected integrations are written to the output
directory.

Config file (YAML):
   jumps:
     fix: <bool>                 all subarrays, overrides subarrays
     subarrays: {<name>: <bool>}
     min_length: <duration>      shorter blocks are flagged, not leveled
     mode: level | precomputed   all subarrays, overrides modes
     modes: {<name>: <mode>}     unset subarrays are leveled
     table: <file>               jump sizes, "<channel> <size>" lines
   drifts:
     correct: <bool>
     require: <bool>             missing drift data is an error
     max: <arcsec>               larger drifts are not corrected
   workers: <n>

For full documentation:
   go doc github.com/soniakeys/tscorr`)
}
