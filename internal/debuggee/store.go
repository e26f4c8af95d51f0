// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package debuggee

import (
	"sync/atomic"

	"github.com/google/go-dap"

	"github.com/microsoft/dapmirror/internal/pubsub"
)

// Store holds the current snapshot of the debuggee state.
// Apply must only be called from a single goroutine (the session event loop);
// Snapshot and Subscribe are safe to call from anywhere.
type Store struct {
	current atomic.Pointer[Debuggee]
	subs    *pubsub.SubscriptionSet[*Debuggee]
}

func NewStore() *Store {
	s := &Store{
		subs: pubsub.NewSubscriptionSet[*Debuggee](),
	}
	s.current.Store(New())
	return s
}

// Snapshot returns the current state. The returned value must not be modified.
func (s *Store) Snapshot() *Debuggee {
	return s.current.Load()
}

// Apply advances the state with msg. If the state changed, subscribers are notified
// with the new snapshot and the second result is true.
func (s *Store) Apply(msg dap.Message) (*Debuggee, bool) {
	prev := s.current.Load()
	next := ApplyMessage(prev, msg)
	if next == prev {
		return prev, false
	}

	s.current.Store(next)
	s.subs.Notify(next)
	return next, true
}

// Subscribe delivers every subsequent snapshot to sink, in order.
// The sink is closed when the subscription is cancelled or the store is closed.
func (s *Store) Subscribe(sink chan<- *Debuggee) *pubsub.Subscription[*Debuggee] {
	return s.subs.Subscribe(sink)
}

// Close cancels all subscriptions.
func (s *Store) Close() {
	s.subs.CancelAll()
}
