/*
Command tssim writes synthetic integrations for tscorr.

Usage

Command line options:

  tssim                 Write one integration, scan0.tsd, in the current directory.
  tssim -n <count>      Number of integrations.
  tssim -o <dir>        Output directory.
  tssim -f <frames>     Frames per integration.
  tssim -c <channels>   Channels per integration.
  tssim -r <rate>       Jump probability per channel per frame.
  tssim -s <seed>       Random seed of the first integration.
  tssim -nocounter      Record no jump counters.
  tssim -j <file>       Also write the true jump sizes as a jump size table.
  tssim -v              Display version and copyright.

Output

For each integration n, tssim writes scanN.tsd, the integration in the Go
"gob" format read by tscorr, and scanN.hdr, a text header holding drift
records.  Each integration is seeded with the seed plus n, so output is
repeatable.

Half of the subarrays of the made up instrument are jump free.  The others
jump at random by one or two counter steps.  The jump size table written
with -j holds the sizes of the first integration; tscorr -j with
precomputed mode then recovers the jump free signal of that integration.

-------------
Public domain.
*/
package main
