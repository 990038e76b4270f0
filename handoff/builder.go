package handoff

import (
	"github.com/sarchlab/bootchain/imgdesc"
	"github.com/sarchlab/bootchain/mem/cache"
)

// Builder can build handoff components.
type Builder struct {
	memory    cache.DataCache
	layout    Layout
	populator Populator
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithMemory sets the data cache the stage accesses memory through.
func (b Builder) WithMemory(memory cache.DataCache) Builder {
	b.memory = memory
	return b
}

// WithLayout sets the layout of the reserved region.
func (b Builder) WithLayout(layout Layout) Builder {
	b.layout = layout
	return b
}

// WithPopulator sets the populator that finalizes the parameters block.
func (b Builder) WithPopulator(populator Populator) Builder {
	b.populator = populator
	return b
}

// Build creates the component. It fails if the reserved region cannot hold
// the descriptor table and parameters block copies.
func (b Builder) Build(name string) (*Comp, error) {
	if b.memory == nil {
		panic("handoff component must have a memory")
	}

	region, err := NewRegion(b.layout, b.memory)
	if err != nil {
		return nil, err
	}

	c := &Comp{
		name:      name,
		region:    region,
		memory:    b.memory,
		populator: b.populator,
	}

	if c.populator == nil {
		c.populator = keepParams{}
	}

	c.publisher = &publisher{comp: c}
	c.flusher = &flushCoordinator{comp: c}
	c.lookup = &lookupService{comp: c}

	return c, nil
}

type keepParams struct{}

func (keepParams) FinalizeParams(*imgdesc.ExecutionParamsBlock) error {
	return nil
}
