/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package pubsub

import (
	"maps"
	"slices"
	"sync"
)

// The subscription set helps manage a set of subscriptions that share the same source of notifications.
type SubscriptionSet[NotificationT any] struct {
	// The set of subscriptions.
	subscriptions map[HandleT]*Subscription[NotificationT]

	// The mutex that makes the subscription set goroutine-safe.
	mutex *sync.Mutex
}

func NewSubscriptionSet[NotificationT any]() *SubscriptionSet[NotificationT] {
	return &SubscriptionSet[NotificationT]{
		subscriptions: make(map[HandleT]*Subscription[NotificationT]),
		mutex:         &sync.Mutex{},
	}
}

// Subscribe starts delivering notifications to sink. The sink is closed when the subscription is cancelled.
func (ss *SubscriptionSet[NotificationT]) Subscribe(sink chan<- NotificationT) *Subscription[NotificationT] {
	sub := NewSubscription(ss, sink)

	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	ss.subscriptions[sub.Handle] = sub
	return sub
}

func (ss *SubscriptionSet[NotificationT]) Notify(n NotificationT) {
	ss.mutex.Lock()
	currentSubs := slices.Collect(maps.Values(ss.subscriptions))
	ss.mutex.Unlock()

	for _, sub := range currentSubs {
		sub.Notify(n)
	}
}

func (ss *SubscriptionSet[NotificationT]) Len() int {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()
	return len(ss.subscriptions)
}

func (ss *SubscriptionSet[NotificationT]) CancelAll() {
	ss.mutex.Lock()
	currentSubs := slices.Collect(maps.Values(ss.subscriptions))
	clear(ss.subscriptions)
	ss.mutex.Unlock()

	for _, sub := range currentSubs {
		sub.Cancel()
	}
}

func (ss *SubscriptionSet[NotificationT]) onSubscriptionCancelled(handle HandleT) {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()
	delete(ss.subscriptions, handle) // This is a no-op if the handle does not exist.
}
