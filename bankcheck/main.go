// Command bankcheck verifies the memories of an accelerator board through
// its DMA controller.
package main

import "github.com/sarchlab/bankcheck/bankcheck/cmd"

func main() {
	cmd.Execute()
}
