package agent

// State is the lifecycle state of an Agent.
//
// Transitions:
//
//	Uninitialized -> Loading        (Initialize called)
//	Loading       -> Ready          (initialization succeeded)
//	Loading       -> Failed         (any initialization step errored)
//	Ready         -> Failed         (unrecoverable runtime fault)
//
// Failed is terminal; a fresh instance is required to retry.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
