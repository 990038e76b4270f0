package handoff

import (
	"errors"
	"fmt"

	"github.com/sarchlab/bootchain/imgdesc"
	"github.com/sarchlab/bootchain/mem"
)

// Errors reported by the reserved region.
var (
	ErrRegionTooSmall = errors.New("reserved region is too small")
	ErrNoDescriptors  = errors.New("descriptor count must be at least one")
	ErrOutOfRegion    = errors.New("access outside of the reserved region")
)

// Layout places one descriptor table copy followed by one parameters block
// copy at a fixed address.
type Layout struct {
	Base           uint64
	Size           uint64
	NumDescriptors int
}

// DescAddr returns where the descriptor table copy starts.
func (l Layout) DescAddr() uint64 {
	return l.Base
}

// ParamsAddr returns where the parameters block copy starts, right after the
// descriptor table copy.
func (l Layout) ParamsAddr() uint64 {
	return l.Base + imgdesc.TableByteSize(l.NumDescriptors)
}

// ParamsSize returns the size of the parameters block copy.
func (l Layout) ParamsSize() uint64 {
	return imgdesc.ParamsBlockSize(l.NumDescriptors)
}

// Required returns the number of bytes the two copies occupy.
func (l Layout) Required() uint64 {
	return imgdesc.TableByteSize(l.NumDescriptors) + l.ParamsSize()
}

// Used returns the address range holding the two copies.
func (l Layout) Used() mem.AddressRange {
	return mem.AddressRange{Start: l.Base, Size: l.Required()}
}

// Reserved returns the whole reserved address range.
func (l Layout) Reserved() mem.AddressRange {
	return mem.AddressRange{Start: l.Base, Size: l.Size}
}

// Validate checks that the region can hold the copies.
func (l Layout) Validate() error {
	if l.NumDescriptors < 1 {
		return ErrNoDescriptors
	}

	if l.Size < l.Required() {
		return fmt.Errorf("%w: 0x%x bytes at 0x%x, %d descriptors need 0x%x",
			ErrRegionTooSmall, l.Size, l.Base, l.NumDescriptors, l.Required())
	}

	if l.Base+l.Size < l.Base {
		return fmt.Errorf("%w: region wraps the address space",
			ErrRegionTooSmall)
	}

	return nil
}

// Memory is how the boot stage accesses physical memory.
type Memory interface {
	Read(address uint64, length uint64) ([]byte, error)
	Write(address uint64, data []byte) error
}

// A Region is the reserved region as an arena of fixed capacity. Accesses are
// given as offsets and checked against the region bounds.
type Region struct {
	layout Layout
	memory Memory
}

// NewRegion validates the layout and creates the region over memory.
func NewRegion(layout Layout, memory Memory) (*Region, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	return &Region{layout: layout, memory: memory}, nil
}

// Layout returns the layout of the region.
func (r *Region) Layout() Layout {
	return r.layout
}

func (r *Region) mustBeInside(offset, length uint64) error {
	if !r.layout.Reserved().Contains(r.layout.Base+offset, length) ||
		offset+length < offset {
		return fmt.Errorf("%w: offset 0x%x length 0x%x",
			ErrOutOfRegion, offset, length)
	}

	return nil
}

// Write copies data into the region at offset.
func (r *Region) Write(offset uint64, data []byte) error {
	if err := r.mustBeInside(offset, uint64(len(data))); err != nil {
		return err
	}

	return r.memory.Write(r.layout.Base+offset, data)
}

// Read copies length bytes out of the region at offset.
func (r *Region) Read(offset, length uint64) ([]byte, error) {
	if err := r.mustBeInside(offset, length); err != nil {
		return nil, err
	}

	return r.memory.Read(r.layout.Base+offset, length)
}
