package handoff

import "fmt"

// Phase is where a stage is in the handoff.
type Phase int

// Phases of a handoff. Flushed is terminal.
const (
	PhaseUnpublished Phase = iota
	PhasePublished
	PhaseFlushed
)

func (p Phase) String() string {
	switch p {
	case PhaseUnpublished:
		return "unpublished"
	case PhasePublished:
		return "published"
	case PhaseFlushed:
		return "flushed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// State is the handoff state of one boot stage. It is passed into and
// returned from every handoff operation rather than kept globally.
type State struct {
	Phase Phase

	// ActiveTable is the address of the descriptor table every lookup
	// reads. Publish redirects it to the reserved region.
	ActiveTable uint64

	// NumDescriptors is the build-time descriptor count.
	NumDescriptors int

	// Published is the address of the parameters block copy, zero until
	// the first publish.
	Published uint64
}

// NewState creates the state of a stage whose descriptor table of n
// descriptors lives at tableAddr.
func NewState(tableAddr uint64, n int) State {
	return State{
		Phase:          PhaseUnpublished,
		ActiveTable:    tableAddr,
		NumDescriptors: n,
	}
}

// IsPublished tells if the parameters block has been published.
func (s State) IsPublished() bool {
	return s.Phase != PhaseUnpublished && s.Published != 0
}
