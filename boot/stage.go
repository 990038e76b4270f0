// Package boot runs one boot stage on a modelled machine: it installs the
// stage's descriptor table, publishes the handoff, flushes it, and hands
// control to the next stage, which reads what it was given from DRAM.
package boot

import (
	"github.com/sarchlab/bootchain/handoff"
	"github.com/sarchlab/bootchain/imgdesc"
	"github.com/sarchlab/bootchain/mem"
	"github.com/sarchlab/bootchain/mem/cache"
	"github.com/sarchlab/bootchain/platform"
)

// ClobberPattern is what the next stage's images leave in the memory the
// finished stage used for its own data.
const ClobberPattern byte = 0xa5

// Stage is a boot stage that hands off to the next one.
type Stage struct {
	name     string
	platform *platform.Config
	table    imgdesc.DescriptorTable

	storage *mem.Storage
	cache   *cache.Comp
	handoff *handoff.Comp
}

// Result is what a stage run produced.
type Result struct {
	State handoff.State

	// LoadInfo is the view of the descriptors the stage loaded images
	// with, before the publish.
	LoadInfo imgdesc.LoadInfoView

	// RelocatedLoadInfo is the same view after the publish.
	RelocatedLoadInfo imgdesc.LoadInfoView

	Params handoff.ParamsRef

	// Next is what the next stage reads from DRAM.
	Next *Handoff
}

// Name returns the name of the stage.
func (s *Stage) Name() string {
	return s.name
}

// Platform returns the platform the stage runs on.
func (s *Stage) Platform() *platform.Config {
	return s.platform
}

// Table returns the stage's descriptor table.
func (s *Stage) Table() imgdesc.DescriptorTable {
	return s.table
}

// Storage returns the DRAM.
func (s *Stage) Storage() *mem.Storage {
	return s.storage
}

// Cache returns the stage's data cache.
func (s *Stage) Cache() *cache.Comp {
	return s.cache
}

// Handoff returns the handoff component.
func (s *Stage) Handoff() *handoff.Comp {
	return s.handoff
}

// Install writes the descriptor table into the stage's RW memory.
func (s *Stage) Install() (handoff.State, error) {
	return handoff.Install(s.cache, s.platform.StageRWBase, s.table)
}

// Run performs the whole handoff. Any error is fatal for the boot.
func (s *Stage) Run() (*Result, error) {
	st, err := s.Install()
	if err != nil {
		return nil, err
	}

	res := &Result{}

	res.LoadInfo, err = s.handoff.RetrieveLoadInfo(st)
	if err != nil {
		return nil, err
	}

	st, res.Params, err = s.handoff.Publish(st)
	if err != nil {
		return nil, err
	}

	res.RelocatedLoadInfo, err = s.handoff.RetrieveLoadInfo(st)
	if err != nil {
		return nil, err
	}

	res.State, err = s.handoff.FlushForHandoff(st)
	if err != nil {
		return nil, err
	}

	if err := s.transfer(); err != nil {
		return nil, err
	}

	res.Next, err = ReadHandoff(s.storage, s.platform.Layout())
	if err != nil {
		return nil, err
	}

	return res, nil
}

// transfer gives the machine to the next stage. Its images overlay the
// stage's RW memory, so the original descriptor table is lost.
func (s *Stage) transfer() error {
	return s.storage.Fill(s.platform.StageRWBase, s.table.ByteSize(),
		ClobberPattern)
}
