// firvault - FIR records service: case registration with FIR number
// allocation over a primary database with automatic fallback.
//
// Usage:
//
//	firvault [--config path] [--dev] <command>
//
// Commands:
//
//	serve                           HTTP API
//	ping                            check primary and fallback pools
//	schema apply                    create tables on every pool in its own dialect
//	allocate --station N [--year Y] print the next FIR number candidate
//	station add CODE NAME           register a police station
//	query --role R SQL [PARAM...]   run a read-only report query
//
// Environment: FIRVAULT_* variables override the config file; a .env file
// in the working directory is loaded first.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
