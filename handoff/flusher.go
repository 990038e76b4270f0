package handoff

import "fmt"

const opFlush = "flush"

type flushCoordinator struct {
	comp *Comp
}

func (f *flushCoordinator) flushForHandoff(st State) (State, error) {
	if !st.IsPublished() {
		panic(preconditionViolation(opFlush,
			"flush requested before the parameters were published"))
	}

	used := f.comp.region.Layout().Used()

	report, err := f.comp.memory.FlushRange(used.Start, used.Size)
	if err != nil {
		return st, fmt.Errorf("flushing 0x%x+0x%x: %w",
			used.Start, used.Size, err)
	}

	st.Phase = PhaseFlushed
	f.comp.invoke(HookPosFlushed, report)

	return st, nil
}
