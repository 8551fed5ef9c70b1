// Public domain.

package main

import "github.com/soniakeys/tscorr/internal/tsprog"

func main() {
	tsprog.Main()
}
