// Package main is the entry of the bootchain command.
package main

import (
	"github.com/tebeka/atexit"

	"github.com/sarchlab/bootchain/bootchain/cmd"
)

func main() {
	cmd.Execute()
	atexit.Exit(0)
}
