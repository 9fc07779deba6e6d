// Command v2p resolves virtual addresses to physical addresses and DRAM
// locations using the Linux pagemap interface.
package main

import (
	"github.com/tebeka/atexit"

	"github.com/sarchlab/v2p/v2p/cmd"
)

func main() {
	atexit.Exit(cmd.Execute())
}
