// Command plunk links locally built packages into consumer projects without
// a registry round-trip: publish a package into the local store, inject it
// into one or more consumers, and optionally keep them in sync with a
// debounced file watcher.
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
