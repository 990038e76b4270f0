// Package cache models the data cache that sits between a boot stage and the
// DRAM. Stores stay in the cache until a flush cleans them to memory, so a
// reader that bypasses the cache only sees flushed data.
package cache

import (
	"github.com/sarchlab/bootchain/hooking"
)

// HookPosWriteBack marks a dirty line being written back to the backing
// memory. The hook item is the *Block.
var HookPosWriteBack = &hooking.HookPos{Name: "Cache Write Back"}

// HookPosFlushRange marks the completion of a range flush. The hook item is
// the FlushReport.
var HookPosFlushRange = &hooking.HookPos{Name: "Cache Flush Range"}

// Backing is the memory below the cache.
type Backing interface {
	Read(address uint64, length uint64) ([]byte, error)
	Write(address uint64, data []byte) error
}

// A DataCache is what the boot stage reads and writes memory through.
type DataCache interface {
	Read(address uint64, length uint64) ([]byte, error)
	Write(address uint64, data []byte) error

	// FlushRange cleans and invalidates every line overlapping
	// [address, address+size).
	FlushRange(address, size uint64) (FlushReport, error)
}

// FlushReport summarizes a range flush.
type FlushReport struct {
	Start       uint64
	Size        uint64
	LinesClean  int
	LinesCopied int
}

// Comp is a write-back, write-allocate, set-associative data cache.
type Comp struct {
	hooking.HookableBase

	name          string
	backing       Backing
	log2BlockSize uint64
	directory     *directory
}

// Name returns the name of the cache.
func (c *Comp) Name() string {
	return c.name
}

func (c *Comp) blockSize() uint64 {
	return 1 << c.log2BlockSize
}

func (c *Comp) lineAddr(addr uint64) uint64 {
	return addr &^ (c.blockSize() - 1)
}

// Read returns length bytes at address as seen through the cache.
func (c *Comp) Read(address uint64, length uint64) ([]byte, error) {
	res := make([]byte, 0, length)

	err := c.forEachLine(address, length,
		func(block *Block, offset, n uint64) {
			res = append(res, block.Data[offset:offset+n]...)
		})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// Write stores data at address. The data reaches the backing memory only
// after the lines are evicted or flushed.
func (c *Comp) Write(address uint64, data []byte) error {
	written := uint64(0)

	return c.forEachLine(address, uint64(len(data)),
		func(block *Block, offset, n uint64) {
			copy(block.Data[offset:offset+n], data[written:written+n])
			block.IsDirty = true
			written += n
		})
}

func (c *Comp) forEachLine(
	address, length uint64,
	f func(block *Block, offset, n uint64),
) error {
	curr := address
	end := address + length

	for curr < end {
		lineAddr := c.lineAddr(curr)

		block, err := c.fetch(lineAddr)
		if err != nil {
			return err
		}

		offset := curr - lineAddr
		n := min(end-curr, c.blockSize()-offset)
		f(block, offset, n)

		curr += n
	}

	return nil
}

func (c *Comp) fetch(lineAddr uint64) (*Block, error) {
	block := c.directory.lookup(lineAddr)
	if block != nil {
		c.directory.touch(block)
		return block, nil
	}

	block = c.directory.findVictim(lineAddr)
	if err := c.evict(block); err != nil {
		return nil, err
	}

	data, err := c.backing.Read(lineAddr, c.blockSize())
	if err != nil {
		return nil, err
	}

	copy(block.Data, data)
	block.Tag = lineAddr
	block.IsValid = true
	block.IsDirty = false
	c.directory.touch(block)

	return block, nil
}

func (c *Comp) evict(block *Block) error {
	if !block.IsValid {
		return nil
	}

	if err := c.writeBack(block); err != nil {
		return err
	}

	block.IsValid = false

	return nil
}

func (c *Comp) writeBack(block *Block) error {
	if !block.IsDirty {
		return nil
	}

	if err := c.backing.Write(block.Tag, block.Data); err != nil {
		return err
	}

	block.IsDirty = false

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosWriteBack,
		Item:   block,
	})

	return nil
}

// FlushRange cleans every dirty line overlapping [address, address+size) to
// the backing memory and invalidates the lines.
func (c *Comp) FlushRange(address, size uint64) (FlushReport, error) {
	report := FlushReport{Start: address, Size: size}
	if size == 0 {
		return report, nil
	}

	first := c.lineAddr(address)
	last := c.lineAddr(address + size - 1)

	for lineAddr := first; lineAddr <= last; lineAddr += c.blockSize() {
		block := c.directory.lookup(lineAddr)
		if block == nil {
			continue
		}

		if block.IsDirty {
			report.LinesCopied++
		} else {
			report.LinesClean++
		}

		if err := c.evict(block); err != nil {
			return report, err
		}
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosFlushRange,
		Item:   report,
	})

	return report, nil
}

// FlushAll writes back every dirty line and invalidates the cache.
func (c *Comp) FlushAll() error {
	for _, block := range c.directory.allBlocks() {
		if err := c.evict(block); err != nil {
			return err
		}
	}

	return nil
}

// NumDirtyLines returns the number of lines that hold data not yet in the
// backing memory.
func (c *Comp) NumDirtyLines() int {
	n := 0

	for _, block := range c.directory.allBlocks() {
		if block.IsValid && block.IsDirty {
			n++
		}
	}

	return n
}
