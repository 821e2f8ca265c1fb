// Command books searches OpenAlex for books by subject from the command line.
//
// Usage:
//
//	books [--config FILE] search --subjects Marketing,Chemistry [flags]
package main

import (
	"fmt"
	"os"
)

// version is set with ldflags at build time.
var version = "dev"

func main() {
	if err := newRootCmd(newSearcher).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
