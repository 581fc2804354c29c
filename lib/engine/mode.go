package engine

import "fmt"

// Mode selects the concurrency-control protocol of a TxnProcessor.
type Mode int

const (
	// ModeSerial executes transactions one at a time.
	ModeSerial Mode = iota
	// ModeLockingExclusiveOnly runs strict 2PL with exclusive locks only.
	ModeLockingExclusiveOnly
	// ModeLocking runs strict 2PL with shared read locks.
	ModeLocking
	// ModeOCC runs optimistic concurrency control with serial validation.
	ModeOCC
	// ModeParallelOCC runs optimistic concurrency control with
	// validation on the worker goroutines.
	ModeParallelOCC
	// ModeMVCC runs snapshot reads against multi-version storage.
	ModeMVCC
)

func (m Mode) String() string {
	switch m {
	case ModeSerial:
		return "serial"
	case ModeLockingExclusiveOnly:
		return "locking-exclusive"
	case ModeLocking:
		return "locking"
	case ModeOCC:
		return "occ"
	case ModeParallelOCC:
		return "pocc"
	case ModeMVCC:
		return "mvcc"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// AllModes lists every supported mode, in protocol order. Used by the
// benchmark command and the conformance tests to iterate all schedulers.
func AllModes() []Mode {
	return []Mode{
		ModeSerial,
		ModeLockingExclusiveOnly,
		ModeLocking,
		ModeOCC,
		ModeParallelOCC,
		ModeMVCC,
	}
}

// ParseMode converts a mode name as accepted on the command line
// (e.g. "serial", "locking", "mvcc") into a Mode.
func ParseMode(s string) (Mode, error) {
	for _, m := range AllModes() {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown scheduler mode %q", s)
}
