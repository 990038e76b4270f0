// Package populate provides the populators that finalize the execution
// parameters before they are handed to the next stage.
package populate

import (
	"fmt"

	"github.com/sarchlab/bootchain/imgdesc"
)

// Noop leaves the parameters as derived.
type Noop struct{}

// FinalizeParams does nothing.
func (Noop) FinalizeParams(*imgdesc.ExecutionParamsBlock) error {
	return nil
}

// Finalizer is anything that can finalize a parameters block.
type Finalizer interface {
	FinalizeParams(params *imgdesc.ExecutionParamsBlock) error
}

// Chain runs populators one after another and stops at the first error.
type Chain []Finalizer

// FinalizeParams runs every populator of the chain.
func (c Chain) FinalizeParams(params *imgdesc.ExecutionParamsBlock) error {
	for _, p := range c {
		if err := p.FinalizeParams(params); err != nil {
			return err
		}
	}

	return nil
}

// ImageArgs is the execution state set for one image.
type ImageArgs struct {
	// Args maps argument indices to values.
	Args map[int]uint64

	// SPSR overrides the saved program status when non-zero.
	SPSR uint32
}

// ArgsPopulator sets entry point arguments per image, e.g. passing the
// address of the hardware configuration to the runtime firmware.
type ArgsPopulator struct {
	images map[imgdesc.ImageID]ImageArgs

	// Required lists images that must be in the parameters block.
	Required []imgdesc.ImageID
}

// NewArgsPopulator creates an empty ArgsPopulator.
func NewArgsPopulator() *ArgsPopulator {
	return &ArgsPopulator{images: make(map[imgdesc.ImageID]ImageArgs)}
}

// SetArg sets the argument at index for an image.
func (p *ArgsPopulator) SetArg(id imgdesc.ImageID, index int, value uint64) {
	if index < 0 || index >= imgdesc.NumEPArgs {
		panic(fmt.Sprintf("argument index %d out of range", index))
	}

	a := p.images[id]
	if a.Args == nil {
		a.Args = make(map[int]uint64)
	}

	a.Args[index] = value
	p.images[id] = a
}

// SetSPSR overrides the saved program status of an image.
func (p *ArgsPopulator) SetSPSR(id imgdesc.ImageID, spsr uint32) {
	a := p.images[id]
	a.SPSR = spsr
	p.images[id] = a
}

// FinalizeParams writes the configured arguments into the matching entries.
func (p *ArgsPopulator) FinalizeParams(
	params *imgdesc.ExecutionParamsBlock,
) error {
	for _, id := range p.Required {
		if !hasEntry(params, id) {
			return fmt.Errorf("%s is not in the parameters", id)
		}
	}

	for i := range params.Entries {
		e := &params.Entries[i]

		a, ok := p.images[e.ImageID]
		if !ok {
			continue
		}

		for index, value := range a.Args {
			e.EPInfo.Args[index] = value
		}

		if a.SPSR != 0 {
			e.EPInfo.SPSR = a.SPSR
		}
	}

	return nil
}

func hasEntry(params *imgdesc.ExecutionParamsBlock, id imgdesc.ImageID) bool {
	for _, e := range params.Entries {
		if e.ImageID == id {
			return true
		}
	}

	return false
}
