/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package pubsub

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/smallnest/chanx"
)

type HandleT uint32

const (
	InvalidHandle HandleT = 0
)

var (
	nextHandle = InvalidHandle
)

// Subscription delivers notifications to a sink channel in order.
// Notifications are buffered without limit, so Notify never waits for the subscriber.
// The sink is closed after the subscription is cancelled and all buffered notifications were delivered.
type Subscription[NotificationT any] struct {
	Handle HandleT
	buffer *chanx.UnboundedChan[NotificationT]
	owner  *SubscriptionSet[NotificationT]
	lock   *sync.Mutex
}

func NewSubscription[NotificationT any](owner *SubscriptionSet[NotificationT], sink chan<- NotificationT) *Subscription[NotificationT] {
	buffer := chanx.NewUnboundedChan[NotificationT](context.Background(), 1)

	go func() {
		defer close(sink)
		for n := range buffer.Out {
			sink <- n
		}
	}()

	return &Subscription[NotificationT]{
		Handle: HandleT(atomic.AddUint32((*uint32)(&nextHandle), 1)),
		buffer: buffer,
		owner:  owner,
		lock:   &sync.Mutex{},
	}
}

func (es *Subscription[NotificationT]) Cancel() {
	es.lock.Lock()

	handle := es.Handle
	if handle != InvalidHandle {
		// Make sure onSubscriptionCancelled is called after the subscription lock is released.
		defer es.owner.onSubscriptionCancelled(handle)
	}
	defer es.lock.Unlock()

	if handle != InvalidHandle {
		es.Handle = InvalidHandle
		close(es.buffer.In)
	}
}

// Notify queues a notification for delivery. It is a no-op if the subscription has been cancelled.
func (es *Subscription[NotificationT]) Notify(n NotificationT) {
	es.lock.Lock()
	defer es.lock.Unlock()

	if es.Handle == InvalidHandle {
		return
	}

	es.buffer.In <- n
}

func (es *Subscription[NotificationT]) Cancelled() bool {
	es.lock.Lock()
	defer es.lock.Unlock()
	return es.Handle == InvalidHandle
}
