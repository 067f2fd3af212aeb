// Command nebula-run drives a scheduler engine from the command line: a
// handful of demo items, a configurable rate, and either a headless run or
// a live progress bar tracking frame count (shown only when a frame target
// is set). Interpolation is not shown on the bar.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
