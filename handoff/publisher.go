package handoff

import (
	"fmt"

	"github.com/sarchlab/bootchain/imgdesc"
)

const opPublish = "publish"

type publisher struct {
	comp *Comp
}

func (p *publisher) publish(st State) (State, ParamsRef, error) {
	if st.Phase == PhaseFlushed {
		panic(preconditionViolation(opPublish,
			"the reserved region has been flushed to the next stage"))
	}

	layout := p.comp.region.Layout()
	if st.NumDescriptors != layout.NumDescriptors {
		return st, ParamsRef{}, configDefect(opPublish, fmt.Errorf(
			"stage has %d descriptors, region is laid out for %d",
			st.NumDescriptors, layout.NumDescriptors))
	}

	st, err := p.relocateTable(st)
	if err != nil {
		return st, ParamsRef{}, err
	}

	block, err := p.deriveFromRelocatedTable(st)
	if err != nil {
		return st, ParamsRef{}, err
	}

	if err := p.writeParams(block); err != nil {
		return st, ParamsRef{}, err
	}

	block, err = p.populate()
	if err != nil {
		return st, ParamsRef{}, err
	}

	st.Phase = PhasePublished
	st.Published = layout.ParamsAddr()

	ref := ParamsRef{Addr: st.Published, Block: block}
	p.comp.invoke(HookPosPublished, ref)

	return st, ref, nil
}

// relocateTable copies the active table into the region and redirects the
// state to the copy.
func (p *publisher) relocateTable(st State) (State, error) {
	size := imgdesc.TableByteSize(st.NumDescriptors)

	src, err := p.comp.memory.Read(st.ActiveTable, size)
	if err != nil {
		return st, configDefect(opPublish,
			fmt.Errorf("reading descriptor table at 0x%x: %w",
				st.ActiveTable, err))
	}

	if err := p.comp.region.Write(0, src); err != nil {
		return st, configDefect(opPublish, err)
	}

	layout := p.comp.region.Layout()
	p.comp.invoke(HookPosRelocate, Relocation{
		From: st.ActiveTable,
		To:   layout.DescAddr(),
		Size: size,
	})

	st.ActiveTable = layout.DescAddr()
	p.comp.invoke(HookPosRedirect, st)

	return st, nil
}

// deriveFromRelocatedTable builds the parameters from the copy in the region
// so that every entry points into the copy.
func (p *publisher) deriveFromRelocatedTable(
	st State,
) (*imgdesc.ExecutionParamsBlock, error) {
	table, err := p.comp.lookup.activeTable(st)
	if err != nil {
		return nil, configDefect(opPublish, err)
	}

	block, err := imgdesc.DeriveParams(st.ActiveTable, table)
	if err != nil {
		return nil, configDefect(opPublish, err)
	}

	p.comp.invoke(HookPosParamsDerived, block)

	return block, nil
}

func (p *publisher) writeParams(block *imgdesc.ExecutionParamsBlock) error {
	layout := p.comp.region.Layout()

	buf, err := block.Encode(layout.NumDescriptors)
	if err != nil {
		return configDefect(opPublish, err)
	}

	offset := layout.ParamsAddr() - layout.Base
	if err := p.comp.region.Write(offset, buf); err != nil {
		return configDefect(opPublish, err)
	}

	return nil
}

func (p *publisher) readParams() (*imgdesc.ExecutionParamsBlock, error) {
	layout := p.comp.region.Layout()
	offset := layout.ParamsAddr() - layout.Base

	buf, err := p.comp.region.Read(offset, layout.ParamsSize())
	if err != nil {
		return nil, err
	}

	return imgdesc.DecodeParamsBlock(buf, layout.NumDescriptors)
}

// populate lets the populator finalize the copy in the region and writes the
// result back.
func (p *publisher) populate() (*imgdesc.ExecutionParamsBlock, error) {
	block, err := p.readParams()
	if err != nil {
		return nil, configDefect(opPublish, err)
	}

	before := block.Clone()

	if err := p.comp.populator.FinalizeParams(block); err != nil {
		return nil, configDefect(opPublish,
			fmt.Errorf("finalizing parameters: %w", err))
	}

	if err := mustKeepEntries(before, block); err != nil {
		return nil, configDefect(opPublish, err)
	}

	if err := p.writeParams(block); err != nil {
		return nil, err
	}

	return block, nil
}

func mustKeepEntries(before, after *imgdesc.ExecutionParamsBlock) error {
	if len(before.Entries) != len(after.Entries) {
		return fmt.Errorf("populator resized parameters from %d to %d entries",
			len(before.Entries), len(after.Entries))
	}

	for i := range before.Entries {
		b, a := before.Entries[i], after.Entries[i]
		if b.ImageID != a.ImageID || b.DescAddr != a.DescAddr {
			return fmt.Errorf("populator moved entry %d from %s@0x%x to %s@0x%x",
				i, b.ImageID, b.DescAddr, a.ImageID, a.DescAddr)
		}
	}

	return nil
}
