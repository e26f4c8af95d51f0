/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package pubsub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNotifyDoesNotWaitForSubscriber(t *testing.T) {
	t.Parallel()

	ss := NewSubscriptionSet[int]()
	sink := make(chan int) // unbuffered, nobody reading yet
	sub := ss.Subscribe(sink)
	require.Equal(t, 1, ss.Len())

	done := make(chan struct{})
	go func() {
		for i := 1; i <= 100; i++ {
			ss.Notify(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		require.Fail(t, "Notify blocked on a slow subscriber")
	}

	for i := 1; i <= 100; i++ {
		require.Equal(t, i, <-sink, "notifications must be delivered in order")
	}

	sub.Cancel()
	_, open := <-sink
	require.False(t, open, "sink should be closed after cancellation")
	require.Equal(t, 0, ss.Len())
	require.True(t, sub.Cancelled())
}

func TestCancelledSubscriptionIgnoresNotifications(t *testing.T) {
	t.Parallel()

	ss := NewSubscriptionSet[string]()
	sink := make(chan string, 10)
	sub := ss.Subscribe(sink)

	ss.Notify("before")
	sub.Cancel()
	sub.Notify("after")
	sub.Cancel() // Double cancel is safe

	var received []string
	for s := range sink {
		received = append(received, s)
	}
	require.Equal(t, []string{"before"}, received)
}

func TestCancelAll(t *testing.T) {
	t.Parallel()

	ss := NewSubscriptionSet[int]()
	sinks := []chan int{make(chan int, 1), make(chan int, 1)}
	for _, s := range sinks {
		ss.Subscribe(s)
	}

	ss.Notify(42)
	ss.CancelAll()
	require.Equal(t, 0, ss.Len())

	for _, s := range sinks {
		require.Equal(t, 42, <-s)
		_, open := <-s
		require.False(t, open)
	}
}
