package cache

import (
	"fmt"

	"github.com/sarchlab/bootchain/mem"
)

// Builder can build caches.
type Builder struct {
	backing          Backing
	log2BlockSize    uint64
	wayAssociativity int
	byteSize         uint64
}

// MakeBuilder creates a new builder with a 32KB, 4-way cache of 64B lines.
func MakeBuilder() Builder {
	return Builder{
		log2BlockSize:    6,
		wayAssociativity: 4,
		byteSize:         32 * mem.KB,
	}
}

// WithBacking sets the memory below the cache.
func (b Builder) WithBacking(backing Backing) Builder {
	b.backing = backing
	return b
}

// WithLog2BlockSize sets the log2 of the cache line size.
func (b Builder) WithLog2BlockSize(n uint64) Builder {
	b.log2BlockSize = n
	return b
}

// WithWayAssociativity sets the way associativity of the cache.
func (b Builder) WithWayAssociativity(ways int) Builder {
	b.wayAssociativity = ways
	return b
}

// WithByteSize sets the capacity of the cache.
func (b Builder) WithByteSize(byteSize uint64) Builder {
	b.byteSize = byteSize
	return b
}

// Build creates a cache with the given name.
func (b Builder) Build(name string) *Comp {
	if b.backing == nil {
		panic("cache must have a backing memory")
	}

	blockSize := uint64(1) << b.log2BlockSize
	setSize := blockSize * uint64(b.wayAssociativity)

	if b.wayAssociativity <= 0 || b.byteSize < setSize ||
		b.byteSize%setSize != 0 {
		panic(fmt.Sprintf(
			"cache size %d is not a multiple of %d ways of %dB lines",
			b.byteSize, b.wayAssociativity, blockSize))
	}

	numSets := int(b.byteSize / setSize)

	return &Comp{
		name:          name,
		backing:       b.backing,
		log2BlockSize: b.log2BlockSize,
		directory:     newDirectory(numSets, b.wayAssociativity, blockSize),
	}
}
