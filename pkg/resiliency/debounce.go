/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package resiliency

import (
	"context"
	"sync"
	"time"
)

// DebounceLatest calls an action with the most recent argument passed to Run,
// after the specified delay, but only if no new calls arrive in the meantime.
// If new calls keep arriving, the action is delayed further, but no more than maxDelay.
// The action is executed in a separate goroutine; Run never waits for it.
type DebounceLatest[T any] struct {
	delay     time.Duration
	maxDelay  time.Duration
	timer     *time.Timer
	threshold time.Time
	running   bool
	latest    T
	m         *sync.Mutex
	action    func(T)
}

func NewDebounceLatest[T any](action func(T), delay, maxDelay time.Duration) *DebounceLatest[T] {
	if maxDelay < delay {
		maxDelay = delay
	}

	return &DebounceLatest[T]{
		delay:    delay,
		maxDelay: maxDelay,
		action:   action,
		m:        &sync.Mutex{},
	}
}

func (dl *DebounceLatest[T]) Run(ctx context.Context, arg T) {
	dl.m.Lock()
	defer dl.m.Unlock()

	dl.latest = arg

	if !dl.running {
		dl.running = true
		dl.timer = time.NewTimer(dl.delay)
		dl.threshold = time.Now().Add(dl.maxDelay)
		go dl.execWhenTimerFires(ctx, dl.timer)
	} else if time.Now().Add(dl.delay).Before(dl.threshold) {
		dl.timer.Reset(dl.delay)
	}
}

func (dl *DebounceLatest[T]) execWhenTimerFires(ctx context.Context, timer *time.Timer) {
	select {
	case <-timer.C:
		arg := dl.stopCurrentRun()
		dl.action(arg)
	case <-ctx.Done():
		_ = dl.stopCurrentRun()
	}
}

func (dl *DebounceLatest[T]) stopCurrentRun() T {
	dl.m.Lock()
	defer dl.m.Unlock()
	dl.timer.Stop()
	dl.running = false
	dl.threshold = time.Time{}
	arg := dl.latest
	dl.latest = *new(T)
	return arg
}
