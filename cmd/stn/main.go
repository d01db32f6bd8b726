package main

import (
	"fmt"
	"os"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	root, e := newRootCmd()
	err := root.Execute()
	if cerr := e.close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "Error closing: %v\n", cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}
