package strategy

import "sync"

// RunState represents the lifecycle state of a strategy run.
type RunState int

const (
	Idle RunState = iota
	Validating
	Fetching
	Computing
	Detecting
	Deciding
	Signalling
	Quiet
	Failed
)

// String stringifies the provided run state.
func (s RunState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Fetching:
		return "fetching"
	case Computing:
		return "computing"
	case Detecting:
		return "detecting"
	case Deciding:
		return "deciding"
	case Signalling:
		return "signalling"
	case Quiet:
		return "quiet"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// stateTracker tracks the current run state of a strategy.
type stateTracker struct {
	mtx   sync.RWMutex
	state RunState
}

// set transitions the tracker to the provided state.
func (t *stateTracker) set(state RunState) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	t.state = state
}

// current returns the current state.
func (t *stateTracker) current() RunState {
	t.mtx.RLock()
	defer t.mtx.RUnlock()

	return t.state
}
