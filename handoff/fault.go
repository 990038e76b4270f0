package handoff

import (
	"errors"
	"fmt"
)

// FaultKind classifies the failures of the handoff. Every fault is fatal to
// the boot stage.
type FaultKind int

// Kinds of faults.
const (
	// ConfigDefect means data that must be derivable from the platform
	// configuration is absent or inconsistent.
	ConfigDefect FaultKind = iota

	// PreconditionViolation means the handoff operations were called out of
	// order.
	PreconditionViolation
)

func (k FaultKind) String() string {
	switch k {
	case ConfigDefect:
		return "config defect"
	case PreconditionViolation:
		return "precondition violation"
	default:
		return fmt.Sprintf("FaultKind(%d)", int(k))
	}
}

// Sentinels to match faults with errors.Is.
var (
	ErrConfigDefect          = errors.New("config defect")
	ErrPreconditionViolation = errors.New("precondition violation")
)

// A Fault is an unrecoverable handoff failure.
type Fault struct {
	Kind  FaultKind
	Op    string
	Cause error
}

func (f *Fault) Error() string {
	if f.Cause == nil {
		return fmt.Sprintf("handoff %s: %s", f.Op, f.Kind)
	}

	return fmt.Sprintf("handoff %s: %s: %v", f.Op, f.Kind, f.Cause)
}

func (f *Fault) Unwrap() error {
	return f.Cause
}

// Is matches the sentinel of the fault kind.
func (f *Fault) Is(target error) bool {
	switch f.Kind {
	case ConfigDefect:
		return target == ErrConfigDefect
	case PreconditionViolation:
		return target == ErrPreconditionViolation
	}

	return false
}

func configDefect(op string, cause error) *Fault {
	return &Fault{Kind: ConfigDefect, Op: op, Cause: cause}
}

func preconditionViolation(op string, format string, args ...any) *Fault {
	return &Fault{
		Kind:  PreconditionViolation,
		Op:    op,
		Cause: fmt.Errorf(format, args...),
	}
}
