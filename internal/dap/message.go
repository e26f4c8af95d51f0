// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package dap

import (
	"sort"
	"sync"

	"github.com/google/go-dap"
)

// PendingRequests is a thread-safe map of requests awaiting a response, keyed by request sequence number.
type PendingRequests struct {
	mu       sync.Mutex
	requests map[int]dap.RequestMessage
}

// NewPendingRequests creates a new empty pending request map.
func NewPendingRequests() *PendingRequests {
	return &PendingRequests{
		requests: make(map[int]dap.RequestMessage),
	}
}

// Add records a request that was sent to the debug adapter.
func (m *PendingRequests) Add(req dap.RequestMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[req.GetSeq()] = req
}

// Take retrieves and removes a pending request from the map.
// Returns nil if no request exists for the given sequence number.
func (m *PendingRequests) Take(seq int) dap.RequestMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[seq]
	if !ok {
		return nil
	}

	delete(m.requests, seq)
	return req
}

// Len returns the number of pending requests.
func (m *PendingRequests) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Drain clears the map and returns the requests that never received a response, ordered by sequence number.
func (m *PendingRequests) Drain() []dap.RequestMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	drained := make([]dap.RequestMessage, 0, len(m.requests))
	for _, req := range m.requests {
		drained = append(drained, req)
	}
	sort.Slice(drained, func(i, j int) bool { return drained[i].GetSeq() < drained[j].GetSeq() })

	m.requests = make(map[int]dap.RequestMessage)
	return drained
}

// sequenceCounter provides thread-safe sequence number generation.
type sequenceCounter struct {
	mu  sync.Mutex
	seq int
}

// newSequenceCounter creates a new sequence counter starting at 0.
// The first number handed out by Next() is 1.
func newSequenceCounter() *sequenceCounter {
	return &sequenceCounter{seq: 0}
}

// Next returns the next sequence number.
func (c *sequenceCounter) Next() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *sequenceCounter) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}
