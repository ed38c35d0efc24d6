package agent

import "sync"

// TokenEvent is one event on the generation token stream.
// A stream is a sequence of text events terminated by exactly one event
// with Done or Err set.
type TokenEvent struct {
	Text string // token text; empty on terminal events
	Err  error  // non-nil if generation failed after this point
	Done bool   // true when generation completed successfully
}

// TokenSink receives token events in generation order.
// Sinks are invoked synchronously on the generation path and must be fast.
type TokenSink func(TokenEvent)

// StreamingCallback is the legacy single-slot token callback.
// Registering a new one replaces the previous.
type StreamingCallback func(text string)

// tokenStream fans generation events out to any number of subscribed
// sinks plus the optional single-slot callback.
type tokenStream struct {
	mu     sync.RWMutex
	sinks  map[int]TokenSink
	nextID int
	slot   StreamingCallback
}

// subscribe registers a sink and returns its unsubscribe function.
func (s *tokenStream) subscribe(sink TokenSink) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sinks == nil {
		s.sinks = make(map[int]TokenSink)
	}
	id := s.nextID
	s.nextID++
	s.sinks[id] = sink

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.sinks, id)
	}
}

// setSlot replaces the single-slot callback. nil clears it.
func (s *tokenStream) setSlot(cb StreamingCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slot = cb
}

// publish delivers one event to all current listeners.
// Events within one generation arrive in order because publish is called
// sequentially from the generation callback.
func (s *tokenStream) publish(ev TokenEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sink := range s.sinks {
		sink(ev)
	}
	if s.slot != nil && ev.Text != "" {
		s.slot(ev.Text)
	}
}
