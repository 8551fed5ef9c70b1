// Public domain.

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/soniakeys/exit"

	"github.com/soniakeys/tscorr/internal/readout"
	"github.com/soniakeys/tscorr/internal/synth"
)

const versionString = "tssim version 0.1 Go source."
const copyrightString = "Public domain."

func main() {
	defer exit.Handler()

	p := synth.DefaultParams()
	n := flag.Int("n", 1, "number of integrations")
	out := flag.String("o", ".", "output directory")
	flag.IntVar(&p.Frames, "f", p.Frames, "frames per integration")
	flag.IntVar(&p.Channels, "c", p.Channels, "channels per integration")
	flag.Float64Var(&p.JumpRate, "r", p.JumpRate, "jump probability per channel per frame")
	flag.Uint64Var(&p.Seed, "s", p.Seed, "random seed of the first integration")
	noCounter := flag.Bool("nocounter", false, "record no jump counters")
	tableFn := flag.String("j", "", "jump size table to write")
	vers := flag.Bool("v", false, "display version and copyright")
	flag.Usage = func() {
		os.Stderr.WriteString(`Usage:
  tssim [options]     Write synthetic integrations.
  tssim -v            Display version and copyright.

Options:
`)
		flag.PrintDefaults()
		os.Stderr.WriteString(`
For full documentation:
   go doc github.com/soniakeys/tscorr/tssim
`)
	}
	flag.Parse()
	if *vers {
		fmt.Println(versionString)
		fmt.Println(copyrightString)
		os.Exit(0)
	}
	if flag.NArg() > 0 || *n < 1 || p.Frames < 1 || p.Channels < 1 {
		flag.Usage()
		os.Exit(1)
	}
	p.Counter = !*noCounter
	if err := os.MkdirAll(*out, 0o755); err != nil {
		exit.Log(err)
	}
	seed := p.Seed
	for i := 0; i < *n; i++ {
		p.Seed = seed + uint64(i)
		s := synth.Generate(p)
		base := filepath.Join(*out, "scan"+strconv.Itoa(i))
		if err := readout.WriteFile(base+".tsd", s.Integration); err != nil {
			exit.Log(err)
		}
		if err := writeHeader(base+".hdr", s); err != nil {
			exit.Log(err)
		}
		if i == 0 && *tableFn != "" {
			if err := writeTable(*tableFn, s); err != nil {
				exit.Log(err)
			}
		}
		fmt.Printf("%s.tsd  %s frames, %d channels, %d drift records\n",
			base, humanize.Comma(int64(p.Frames)), p.Channels, p.Drifts)
	}
}

func writeHeader(fn string, s *synth.Sim) error {
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	if err = s.Header.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeTable(fn string, s *synth.Sim) error {
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	if err = s.Table.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
