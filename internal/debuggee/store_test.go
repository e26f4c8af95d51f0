// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package debuggee

import (
	"testing"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldap "github.com/microsoft/dapmirror/internal/dap"
)

func TestStoreNotifiesOnlyOnChange(t *testing.T) {
	t.Parallel()

	s := NewStore()
	initial := s.Snapshot()
	require.NotNil(t, initial)

	sink := make(chan *Debuggee, 10)
	sub := s.Subscribe(sink)

	_, changed := s.Apply(&dap.InitializedEvent{Event: event("initialized")})
	assert.False(t, changed)
	assert.Same(t, initial, s.Snapshot())

	b := internaldap.NewRequestBuilder()
	next, changed := s.Apply(b.Threads())
	require.True(t, changed)
	assert.Same(t, next, s.Snapshot())
	assert.Same(t, next, <-sink)

	sub.Cancel()
	_, open := <-sink
	assert.False(t, open)
}

func TestStoreCloseCancelsSubscriptions(t *testing.T) {
	t.Parallel()

	s := NewStore()
	sink := make(chan *Debuggee, 1)
	sub := s.Subscribe(sink)

	s.Close()
	assert.True(t, sub.Cancelled())
	_, open := <-sink
	assert.False(t, open)

	// Applying after close still updates the snapshot
	_, changed := s.Apply(outputEvent("console", "bye\n"))
	assert.True(t, changed)
	assert.Len(t, s.Snapshot().Outputs, 1)
}
