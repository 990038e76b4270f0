package boot

import (
	"errors"
	"fmt"

	"github.com/sarchlab/bootchain/handoff"
	"github.com/sarchlab/bootchain/imgdesc"
)

// ErrBadHandoff is returned when the reserved region does not hold a usable
// handoff.
var ErrBadHandoff = errors.New("reserved region holds no valid handoff")

// Handoff is what the next stage finds in the reserved region.
type Handoff struct {
	Layout handoff.Layout
	Table  imgdesc.DescriptorTable
	Params *imgdesc.ExecutionParamsBlock
}

// Descriptor returns the descriptor an entry of the parameters refers to.
func (h *Handoff) Descriptor(entry imgdesc.ParamsEntry) imgdesc.ImageDescriptor {
	index := (entry.DescAddr - h.Layout.DescAddr()) / imgdesc.DescriptorSize
	return h.Table[index]
}

// ReadHandoff reads the reserved region the way the next stage does, with
// caches off. Every parameters entry must refer to a descriptor of the
// relocated table.
func ReadHandoff(memory handoff.Memory, layout handoff.Layout) (*Handoff, error) {
	n := layout.NumDescriptors

	raw, err := memory.Read(layout.DescAddr(), imgdesc.TableByteSize(n))
	if err != nil {
		return nil, err
	}

	table, err := imgdesc.DecodeTable(raw, n)
	if err != nil {
		return nil, err
	}

	raw, err = memory.Read(layout.ParamsAddr(), layout.ParamsSize())
	if err != nil {
		return nil, err
	}

	params, err := imgdesc.DecodeParamsBlock(raw, n)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadHandoff, err)
	}

	h := &Handoff{Layout: layout, Table: table, Params: params}
	if err := h.check(); err != nil {
		return nil, err
	}

	return h, nil
}

func (h *Handoff) check() error {
	header := h.Params.Header
	if header.Type != imgdesc.ParamTypeBLParams ||
		header.Version != imgdesc.ParamVersion {
		return fmt.Errorf("%w: header type 0x%x version 0x%x",
			ErrBadHandoff, header.Type, header.Version)
	}

	start := h.Layout.DescAddr()
	end := h.Layout.ParamsAddr()

	for _, e := range h.Params.Entries {
		if e.DescAddr < start || e.DescAddr >= end ||
			(e.DescAddr-start)%imgdesc.DescriptorSize != 0 {
			return fmt.Errorf("%w: %s refers to 0x%x outside of the table",
				ErrBadHandoff, e.ImageID, e.DescAddr)
		}

		if d := h.Descriptor(e); d.ID != e.ImageID {
			return fmt.Errorf("%w: %s refers to the descriptor of %s",
				ErrBadHandoff, e.ImageID, d.ID)
		}
	}

	return nil
}
