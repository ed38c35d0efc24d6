// Package agent implements the orchestrator of the retrieval-augmented
// conversation pipeline.
//
// The Agent owns one vector index and one embedding capability for its
// lifetime. Initialize drives the staged startup sequence with progress
// reporting; afterwards each question is routed to either the
// context-grounded chain (with retrieved chunks in the system prompt) or
// the default chain (an explicit ungrounded bypass), streaming generated
// tokens to subscribed listeners as they arrive.
package agent
