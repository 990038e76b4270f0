package cache

// A Block of a cache is the information that is associated with a cache line.
type Block struct {
	Tag     uint64
	SetID   int
	WayID   int
	IsValid bool
	IsDirty bool
	Data    []byte

	lastAccess uint64
}

// A Set is a list of blocks where a certain piece of memory can be stored.
type Set struct {
	Blocks []*Block
}

// A directory stores the information about what is stored in the cache.
type directory struct {
	numSets   int
	numWays   int
	blockSize uint64

	sets  []Set
	clock uint64
}

func newDirectory(numSets, numWays int, blockSize uint64) *directory {
	d := &directory{
		numSets:   numSets,
		numWays:   numWays,
		blockSize: blockSize,
		sets:      make([]Set, numSets),
	}

	for setID := range d.sets {
		for wayID := 0; wayID < numWays; wayID++ {
			d.sets[setID].Blocks = append(d.sets[setID].Blocks, &Block{
				SetID: setID,
				WayID: wayID,
				Data:  make([]byte, blockSize),
			})
		}
	}

	return d
}

func (d *directory) setOf(lineAddr uint64) *Set {
	setID := int(lineAddr / d.blockSize % uint64(d.numSets))
	return &d.sets[setID]
}

// lookup finds the block that holds lineAddr, or nil.
func (d *directory) lookup(lineAddr uint64) *Block {
	set := d.setOf(lineAddr)
	for _, block := range set.Blocks {
		if block.IsValid && block.Tag == lineAddr {
			return block
		}
	}

	return nil
}

// findVictim returns an invalid block if there is one, otherwise the least
// recently used block of the set.
func (d *directory) findVictim(lineAddr uint64) *Block {
	set := d.setOf(lineAddr)

	var victim *Block
	for _, block := range set.Blocks {
		if !block.IsValid {
			return block
		}

		if victim == nil || block.lastAccess < victim.lastAccess {
			victim = block
		}
	}

	return victim
}

func (d *directory) touch(block *Block) {
	d.clock++
	block.lastAccess = d.clock
}

func (d *directory) allBlocks() []*Block {
	blocks := make([]*Block, 0, d.numSets*d.numWays)
	for i := range d.sets {
		blocks = append(blocks, d.sets[i].Blocks...)
	}

	return blocks
}
