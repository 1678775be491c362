// Command cosim drives device models from the command line, standing in for
// a hardware simulator.
package main

import (
	"github.com/sarchlab/cosim/cmd/cosim/cmd"
	"github.com/tebeka/atexit"
)

func main() {
	if err := cmd.Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
