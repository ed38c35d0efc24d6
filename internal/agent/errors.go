package agent

import "errors"

// Sentinel errors for agent operations.
var (
	// ErrNotReady indicates a query method was called before initialization
	// completed. The caller must await Initialize.
	ErrNotReady = errors.New("agent is not ready")

	// ErrAlreadyInitialized indicates Initialize was called more than once.
	// A failed agent cannot be retried; construct a fresh instance.
	ErrAlreadyInitialized = errors.New("agent already initialized")

	// ErrInitialization wraps any failure during Initialize. There is no
	// partial-success mode: either the agent is fully Ready or unusable.
	ErrInitialization = errors.New("initialization failed")

	// ErrGeneration wraps a failed chain invocation. Fatal for that call;
	// there is no automatic per-query retry.
	ErrGeneration = errors.New("generation failed")
)
