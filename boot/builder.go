package boot

import (
	"github.com/sarchlab/bootchain/handoff"
	"github.com/sarchlab/bootchain/hooking"
	"github.com/sarchlab/bootchain/mem"
	"github.com/sarchlab/bootchain/mem/cache"
	"github.com/sarchlab/bootchain/platform"
	"github.com/sarchlab/bootchain/populate"
)

// Builder can build boot stages.
type Builder struct {
	platform  *platform.Config
	populator handoff.Populator
	hooks     []hooking.Hook
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithPlatform sets the platform the stage runs on.
func (b Builder) WithPlatform(p *platform.Config) Builder {
	b.platform = p
	return b
}

// WithPopulator adds a populator that runs after the platform's own
// argument populator.
func (b Builder) WithPopulator(p handoff.Populator) Builder {
	b.populator = p
	return b
}

// WithHook attaches a hook to the handoff component and the data cache.
func (b Builder) WithHook(h hooking.Hook) Builder {
	b.hooks = append(b.hooks, h)
	return b
}

// Build creates a stage. The platform is validated first; a platform that
// cannot boot is rejected here.
func (b Builder) Build(name string) (*Stage, error) {
	if b.platform == nil {
		panic("boot stage must have a platform")
	}

	if err := b.platform.Validate(); err != nil {
		return nil, err
	}

	table, err := b.platform.DescriptorTable()
	if err != nil {
		return nil, err
	}

	populator, err := b.buildPopulator()
	if err != nil {
		return nil, err
	}

	s := &Stage{
		name:     name,
		platform: b.platform,
		table:    table,
		storage:  mem.NewStorage(b.platform.DRAMSize),
	}

	s.cache = cache.MakeBuilder().
		WithBacking(s.storage).
		WithLog2BlockSize(uint64(b.platform.Cache.Log2BlockSize)).
		WithWayAssociativity(b.platform.Cache.Ways).
		WithByteSize(b.platform.Cache.ByteSize).
		Build(name + ".DCache")

	s.handoff, err = handoff.MakeBuilder().
		WithMemory(s.cache).
		WithLayout(b.platform.Layout()).
		WithPopulator(populator).
		Build(name + ".Handoff")
	if err != nil {
		return nil, err
	}

	for _, h := range b.hooks {
		s.handoff.AcceptHook(h)
		s.cache.AcceptHook(h)
	}

	return s, nil
}

func (b Builder) buildPopulator() (handoff.Populator, error) {
	args, err := b.platform.Populator()
	if err != nil {
		return nil, err
	}

	if b.populator == nil {
		return args, nil
	}

	return populate.Chain{args, b.populator}, nil
}
