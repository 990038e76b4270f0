// Package tracing observes the handoff through hooks and reports what
// happened, either to a logger or to a data recorder.
package tracing

import (
	"log"

	"github.com/sarchlab/bootchain/handoff"
	"github.com/sarchlab/bootchain/hooking"
	"github.com/sarchlab/bootchain/imgdesc"
	"github.com/sarchlab/bootchain/mem/cache"
)

// LogHookBase provides the common logic for all log hooks.
type LogHookBase struct {
	*log.Logger
}

// HandoffLogger is a hook that prints every step of the handoff.
type HandoffLogger struct {
	LogHookBase

	// Verbose also prints cache line write backs.
	Verbose bool
}

// NewHandoffLogger returns a new HandoffLogger that writes into logger.
func NewHandoffLogger(logger *log.Logger) *HandoffLogger {
	h := new(HandoffLogger)
	h.Logger = logger

	return h
}

// Func writes the step into the logger.
func (h *HandoffLogger) Func(ctx hooking.HookCtx) {
	name := ""
	if ctx.Domain != nil {
		name = ctx.Domain.Name()
	}

	switch item := ctx.Item.(type) {
	case handoff.Relocation:
		h.Printf("%s: descriptors 0x%x -> 0x%x (0x%x bytes)",
			name, item.From, item.To, item.Size)
	case handoff.State:
		h.Printf("%s: lookups redirected to 0x%x", name, item.ActiveTable)
	case *imgdesc.ExecutionParamsBlock:
		h.Printf("%s: next stage executes %v", name, item.IDs())
	case handoff.ParamsRef:
		h.Printf("%s: params published at 0x%x", name, item.Addr)
	case cache.FlushReport:
		h.Printf("%s: flushed 0x%x+0x%x, %d dirty lines, %d clean lines",
			name, item.Start, item.Size, item.LinesCopied, item.LinesClean)
	case *cache.Block:
		if h.Verbose {
			h.Printf("%s: write back line 0x%x", name, item.Tag)
		}
	}
}
