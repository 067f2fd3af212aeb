// Command nebula-serve runs a scheduler engine as a long-lived process,
// exposing it over HTTP: health and stats, a Prometheus scrape endpoint, an
// operator stop request, and a WebSocket feed of lifecycle events.
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
