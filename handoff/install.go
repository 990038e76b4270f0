package handoff

import (
	"fmt"

	"github.com/sarchlab/bootchain/imgdesc"
)

// Install writes the descriptor table into the stage's own memory at addr
// and returns the initial state pointing at it. This is where the table
// lives before any publish.
func Install(
	memory Memory,
	addr uint64,
	table imgdesc.DescriptorTable,
) (State, error) {
	if err := table.Validate(); err != nil {
		return State{}, configDefect("install", err)
	}

	if err := memory.Write(addr, table.Encode()); err != nil {
		return State{}, fmt.Errorf("writing descriptor table at 0x%x: %w",
			addr, err)
	}

	return NewState(addr, len(table)), nil
}
