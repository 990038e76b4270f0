package tracing

import (
	"fmt"

	"github.com/sarchlab/bootchain/datarecording"
	"github.com/sarchlab/bootchain/handoff"
	"github.com/sarchlab/bootchain/hooking"
	"github.com/sarchlab/bootchain/idgen"
	"github.com/sarchlab/bootchain/imgdesc"
	"github.com/sarchlab/bootchain/mem/cache"
)

const (
	eventTable = "handoff_events"
	paramTable = "handoff_params"
)

type eventEntry struct {
	RunID    string
	Seq      int
	Domain   string
	Position string
	Address  uint64
	Size     uint64
	Detail   string
}

type paramEntry struct {
	RunID    string
	Slot     int
	ImageID  uint32
	Image    string
	DescAddr uint64
	PC       uint64
	SPSR     uint32
	Arg0     uint64
	Arg1     uint64
	Arg2     uint64
	Arg3     uint64
}

// Recorder is a hook that stores the handoff steps into a data recorder.
// Every recorder gets its own run ID so that several runs can share a
// database.
type Recorder struct {
	backend datarecording.DataRecorder
	runID   string
	seq     int
}

// NewRecorder creates a recorder and the tables it writes to.
func NewRecorder(backend datarecording.DataRecorder) *Recorder {
	r := &Recorder{
		backend: backend,
		runID:   idgen.Generate(),
	}

	backend.CreateTable(eventTable, eventEntry{})
	backend.CreateTable(paramTable, paramEntry{})

	return r
}

// RunID returns the identifier of the recorded run.
func (r *Recorder) RunID() string {
	return r.runID
}

// Func records the step.
func (r *Recorder) Func(ctx hooking.HookCtx) {
	if ctx.Pos == nil {
		return
	}

	entry := eventEntry{
		RunID:    r.runID,
		Seq:      r.seq,
		Position: ctx.Pos.Name,
	}

	if ctx.Domain != nil {
		entry.Domain = ctx.Domain.Name()
	}

	switch item := ctx.Item.(type) {
	case handoff.Relocation:
		entry.Address = item.To
		entry.Size = item.Size
		entry.Detail = fmt.Sprintf("from 0x%x", item.From)
	case handoff.State:
		entry.Address = item.ActiveTable
		entry.Detail = item.Phase.String()
	case *imgdesc.ExecutionParamsBlock:
		entry.Size = uint64(len(item.Entries))
		entry.Detail = fmt.Sprint(item.IDs())
	case handoff.ParamsRef:
		entry.Address = item.Addr
		r.recordParams(item.Block)
	case cache.FlushReport:
		entry.Address = item.Start
		entry.Size = item.Size
		entry.Detail = fmt.Sprintf("%d dirty lines", item.LinesCopied)
	default:
		return
	}

	r.seq++
	r.backend.InsertData(eventTable, entry)
}

func (r *Recorder) recordParams(block *imgdesc.ExecutionParamsBlock) {
	for i, e := range block.Entries {
		r.backend.InsertData(paramTable, paramEntry{
			RunID:    r.runID,
			Slot:     i,
			ImageID:  uint32(e.ImageID),
			Image:    e.ImageID.String(),
			DescAddr: e.DescAddr,
			PC:       e.EPInfo.PC,
			SPSR:     e.EPInfo.SPSR,
			Arg0:     e.EPInfo.Args[0],
			Arg1:     e.EPInfo.Args[1],
			Arg2:     e.EPInfo.Args[2],
			Arg3:     e.EPInfo.Args[3],
		})
	}
}
