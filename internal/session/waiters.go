// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package session

import (
	"context"
	"slices"
	"sync"

	"github.com/google/go-dap"
)

// waiter receives the first message that matches its predicate.
type waiter struct {
	matches func(dap.Message) bool

	// Buffered (capacity 1). Closed without a value if the session ends first.
	result chan dap.Message
}

type waiterList struct {
	mu      sync.Mutex
	waiters []*waiter
	closed  bool
}

func (wl *waiterList) add(matches func(dap.Message) bool) *waiter {
	w := &waiter{
		matches: matches,
		result:  make(chan dap.Message, 1),
	}

	wl.mu.Lock()
	defer wl.mu.Unlock()

	if wl.closed {
		close(w.result)
	} else {
		wl.waiters = append(wl.waiters, w)
	}
	return w
}

func (wl *waiterList) remove(w *waiter) {
	wl.mu.Lock()
	defer wl.mu.Unlock()
	wl.waiters = slices.DeleteFunc(wl.waiters, func(other *waiter) bool { return other == w })
}

// deliver hands msg to every waiter that matches it. Each waiter is satisfied at most once.
func (wl *waiterList) deliver(msg dap.Message) {
	wl.mu.Lock()
	defer wl.mu.Unlock()

	wl.waiters = slices.DeleteFunc(wl.waiters, func(w *waiter) bool {
		if !w.matches(msg) {
			return false
		}
		w.result <- msg
		return true
	})
}

func (wl *waiterList) closeAll() {
	wl.mu.Lock()
	defer wl.mu.Unlock()

	for _, w := range wl.waiters {
		close(w.result)
	}
	wl.waiters = nil
	wl.closed = true
}

func (wl *waiterList) await(ctx context.Context, w *waiter) (dap.Message, error) {
	select {
	case msg, ok := <-w.result:
		if !ok {
			return nil, ErrSessionClosed
		}
		return msg, nil
	case <-ctx.Done():
		wl.remove(w)
		return nil, ctx.Err()
	}
}

func responseTo(seq int) func(dap.Message) bool {
	return func(msg dap.Message) bool {
		resp, isResp := msg.(dap.ResponseMessage)
		return isResp && resp.GetResponse().RequestSeq == seq
	}
}
