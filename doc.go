/*
Command tscorr removes flux jumps from detector time streams and corrects
frame astrometry for slow pointing drifts.

Contents

Version 0.1

  Program overview
  Installing
  Command line usage
  Configuration
  File formats
  Algorithm outline


Program overview

Input is one or more integration files, each a contiguous block of frames
across all detector channels of an instrument.  Output is one line per
integration summarizing what was corrected, and a total line.  With -o,
corrected integrations are written to an output directory under their
original file names.

Sample run:

The companion program tssim writes synthetic integrations.  Type

  tssim -n 3 -o sim

to write sim/scan0.tsd through sim/scan2.tsd and drift headers
sim/scan0.hdr through sim/scan2.hdr.  Then "tscorr sim/*.tsd" gives
output like

  tscorr version 0.1 Go source.
  Integration                Frames   Jumping Level  Flag  Drifts    Max
  scan0.tsd                   5,000   15/64      42     3  corrected 4.9"
  scan1.tsd                   5,000   18/64      51     1  corrected 3.3"
  scan2.tsd                   5,000   14/64      37     2  corrected 2.6"
  3 files, 15,000 frames, 960,000 samples; 47 jumping channels, 130 blocks leveled, 6 flagged

Jumping is the number of channels whose jump counter moved, out of all
channels.  Level and Flag count blocks leveled and blocks flagged as
described under Algorithm outline.  Max is the largest drift in the drift
header, in arc seconds.

Diagnostics go to stderr as structured log lines.  Use -v to see debug
detail.


Installing

You need Go 1.22 or later.  Then

  go install github.com/soniakeys/tscorr@latest
  go install github.com/soniakeys/tscorr/tssim@latest


Command line usage

Invoking the program without command line arguments (or with invalid
arguments) shows this usage prompt.

  Usage: tscorr [options] <file> ...   correct integration files
         tscorr -h                     display help and quick reference

  Options:
         -c <config-file>
         -j <jump-table-file>
         -o <output-directory>
         -v                            debug logging

The help information lists a quick reference to configuration keys.


Configuration

The optional configuration file is YAML.  All keys are optional.  The
defaults are shown.

  jumps:
    fix:                 # unset
    subarrays: {}
    min_length: 5s
    mode:                # unset
    modes: {}
    table: ""
  drifts:
    correct: true
    require: false
    max: 60
  workers: 0

jumps.fix, if set, turns jump correction on or off for all subarrays and
takes precedence over jumps.subarrays, which turns it on or off by subarray
name.  Subarrays not listed are corrected.

jumps.min_length is a duration.  It is converted to frames with the
sampling interval of the instrument.  Blocks shorter than this are flagged
rather than leveled.

jumps.mode is level or precomputed.  If set it applies to all subarrays and
takes precedence over jumps.modes, which sets the mode by subarray name.
Subarrays not listed are leveled.  Precomputed mode requires a jump size
table, named either with jumps.table or with -j.  The command line takes
precedence.

drifts.require makes a missing or empty drift header an error rather than
a warning.  drifts.max is in arc seconds.  If any drift in an integration's
header is larger, drift correction is skipped for the integration.  Zero
disables the check.

workers is the number of goroutines used for the channels of one
integration.  Zero means one per available CPU.  Integration files are
also reduced concurrently.


File formats

Integration files are binary, in the Go "gob" format, as written by tssim
or by tscorr -o.  They are not human readable.

The drift header for an integration file is a text file with the same name
and the extension .hdr.  Lines have the form

  KEY = VALUE / comment

Drift records are numbered from 0 and have these keys, shown for record 0:

  DBRA0     RA before the drift, hours
  DBDEC0    Dec before the drift, degrees
  DARA0     RA after, hours
  DADEC0    Dec after, degrees
  DBTIME0   UTC before, seconds
  DATIME0   UTC after, seconds

Records are read up to the first index with any key missing.

The jump size table is a text file with lines of a channel index and a
jump size in data units per counter step.  Other lines are ignored.

  # channel  jump size
  0          3.91
  2          4.37


Algorithm outline

1.  Each channel has a hardware counter that moves whenever its read-out
loses or gains a flux quantum.  A channel whose counter differs anywhere
from its value in the first frame has jumps.  Counters wrap around; a
difference is taken as the nearest count modulo the counter range.

2.  In level mode each jumping channel is cut into blocks over which its
counter holds still.  Absent frames are skipped.  A block shorter than
jumps.min_length is flagged so that later processing ignores its samples.
A longer block has its weighted mean removed.  The mean uses only samples
of frames with positive weight and no excluding flags.

3.  Every mean removed costs one degree of freedom of the channel.  It is
spread over the frames that made the mean in proportion to their weight
and recorded with the integration, for noise estimates downstream.

4.  In precomputed mode the counter difference from the first frame times
the channel's calibrated jump size is subtracted from each sample.  This
costs no degrees of freedom.  Channels without a jump size are left alone.

5.  Drift records become brackets of time, each running from a record's
before time to its after time.  The first bracket starts with the first
frame of the integration instead.  Within a bracket, a frame is corrected
by the record's drift scaled by how far into the bracket the frame lies.
Frames after the last bracket get the full last drift.  The correction is
applied to the equatorial offset and position of the frame, and, rotated
by the parallactic angle, to its horizontal offset.

-------------
Public domain.
*/
package main
