// Command gbnfplay is an interactive playground for grammar-constrained
// decoding: it builds a grammar and a vocabulary, then lets a human step
// through decoding by typing vocabulary tokens one at a time, watching the
// admissible-token set shrink and grow after each one. It exists so a
// person can exercise the engine with their own eyes; it is not a target
// for the matching engine itself.
package main

import (
	"fmt"
	"os"

	"github.com/jmorganca/gbnf/cmd/gbnfplay/playcmd"
)

func main() {
	if err := playcmd.NewCLI().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
