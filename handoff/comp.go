// Package handoff publishes the image descriptors and the execution
// parameters of a boot stage into a reserved memory region, and makes the
// region visible to the next stage.
package handoff

import (
	"github.com/sarchlab/bootchain/hooking"
	"github.com/sarchlab/bootchain/imgdesc"
	"github.com/sarchlab/bootchain/mem/cache"
)

// Hook positions of the handoff.
var (
	// HookPosRelocate is hooked after the descriptor table is copied. The
	// item is a Relocation.
	HookPosRelocate = &hooking.HookPos{Name: "Handoff Relocate"}

	// HookPosRedirect is hooked after lookups are redirected. The item is
	// the new State.
	HookPosRedirect = &hooking.HookPos{Name: "Handoff Redirect"}

	// HookPosParamsDerived is hooked after the parameters are derived from
	// the relocated table. The item is the *imgdesc.ExecutionParamsBlock.
	HookPosParamsDerived = &hooking.HookPos{Name: "Handoff Params Derived"}

	// HookPosPublished is hooked when Publish returns. The item is the
	// ParamsRef.
	HookPosPublished = &hooking.HookPos{Name: "Handoff Published"}

	// HookPosFlushed is hooked after the region is flushed. The item is the
	// cache.FlushReport.
	HookPosFlushed = &hooking.HookPos{Name: "Handoff Flushed"}
)

// A Populator fills the execution state of the parameters block copy. It
// must not resize or reorder the entries and must not keep references to
// the block.
type Populator interface {
	FinalizeParams(params *imgdesc.ExecutionParamsBlock) error
}

// Relocation describes the copy of the descriptor table.
type Relocation struct {
	From uint64
	To   uint64
	Size uint64
}

// ParamsRef is the published parameters block.
type ParamsRef struct {
	Addr  uint64
	Block *imgdesc.ExecutionParamsBlock
}

// Comp owns the reserved region of one boot stage and provides the handoff
// operations over it.
type Comp struct {
	hooking.HookableBase

	name      string
	region    *Region
	memory    cache.DataCache
	populator Populator

	publisher *publisher
	flusher   *flushCoordinator
	lookup    *lookupService
}

// Name returns the name of the component.
func (c *Comp) Name() string {
	return c.name
}

// Region returns the reserved region.
func (c *Comp) Region() *Region {
	return c.region
}

// Publish relocates the active descriptor table and the parameters block
// derived from it into the reserved region. It returns the redirected state
// and the published parameters block.
//
// A missing or inconsistent parameters block is returned as a ConfigDefect
// fault. Publishing a flushed state panics.
func (c *Comp) Publish(st State) (State, ParamsRef, error) {
	return c.publisher.publish(st)
}

// FlushForHandoff cleans the published copies out of the data cache. It
// panics if st has not been published.
func (c *Comp) FlushForHandoff(st State) (State, error) {
	return c.flusher.flushForHandoff(st)
}

// RetrieveLoadInfo lists the descriptors of the table st currently points
// at.
func (c *Comp) RetrieveLoadInfo(st State) (imgdesc.LoadInfoView, error) {
	return c.lookup.retrieveLoadInfo(st)
}

func (c *Comp) invoke(pos *hooking.HookPos, item any) {
	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    pos,
		Item:   item,
	})
}
