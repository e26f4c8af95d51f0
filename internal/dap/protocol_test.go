/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"testing"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	t.Run("typed response", func(t *testing.T) {
		t.Parallel()
		msg, err := Classify([]byte(`{"seq":4,"type":"response","request_seq":2,"command":"threads","success":true,"body":{"threads":[{"id":1,"name":"main"}]}}`))
		require.NoError(t, err)

		resp, ok := As[*dap.ThreadsResponse](msg)
		require.True(t, ok)
		assert.Equal(t, 2, resp.RequestSeq)
		require.Len(t, resp.Body.Threads, 1)
		assert.Equal(t, "main", resp.Body.Threads[0].Name)
	})

	t.Run("failed response decodes as error response", func(t *testing.T) {
		t.Parallel()
		msg, err := Classify([]byte(`{"seq":5,"type":"response","request_seq":3,"command":"variables","success":false,"message":"not available"}`))
		require.NoError(t, err)

		_, ok := As[*dap.ErrorResponse](msg)
		require.True(t, ok)

		resp, ok := IsResponse(msg, "variables")
		require.True(t, ok)
		assert.False(t, resp.GetResponse().Success)
	})

	t.Run("typed event", func(t *testing.T) {
		t.Parallel()
		msg, err := Classify([]byte(`{"seq":6,"type":"event","event":"thread","body":{"reason":"started","threadId":3}}`))
		require.NoError(t, err)

		evt, ok := As[*dap.ThreadEvent](msg)
		require.True(t, ok)
		assert.Equal(t, "started", evt.Body.Reason)
		assert.Equal(t, 3, evt.Body.ThreadId)
	})

	t.Run("unknown event decodes as generic event", func(t *testing.T) {
		t.Parallel()
		msg, err := Classify([]byte(`{"seq":7,"type":"event","event":"botframework/custom","body":{"x":1}}`))
		require.NoError(t, err)

		evt, ok := IsEvent(msg, "botframework/custom")
		require.True(t, ok)
		assert.Equal(t, 7, evt.GetSeq())

		generic, isGeneric := msg.(*GenericEvent)
		require.True(t, isGeneric, "got %T", msg)
		assert.JSONEq(t, `{"x":1}`, string(generic.Body))
	})

	t.Run("unknown request decodes as generic request", func(t *testing.T) {
		t.Parallel()
		msg, err := Classify([]byte(`{"seq":8,"type":"request","command":"customCommand","arguments":{}}`))
		require.NoError(t, err)

		_, ok := IsRequest(msg, "customCommand")
		require.True(t, ok)
		assert.IsType(t, &GenericRequest{}, msg)
	})

	malformed := map[string]string{
		"not json":         `{"seq":`,
		"unknown type":     `{"seq":1,"type":"banana"}`,
		"missing type":     `{"seq":1,"command":"threads"}`,
		"missing command":  `{"seq":1,"type":"request"}`,
		"missing event":    `{"seq":1,"type":"event"}`,
		"wrong body shape": `{"seq":1,"type":"response","request_seq":1,"command":"threads","success":true,"body":{"threads":"nope"}}`,
		"json array":       `[1,2,3]`,
	}
	for name, raw := range malformed {
		t.Run("malformed "+name, func(t *testing.T) {
			t.Parallel()
			msg, err := Classify([]byte(raw))
			require.Error(t, err)
			assert.Nil(t, msg)
			assert.ErrorIs(t, err, ErrMalformedMessage)
			assert.True(t, IsProtocolError(err))
		})
	}
}

func TestPredicatesNarrowByName(t *testing.T) {
	t.Parallel()

	b := NewRequestBuilder()
	req := b.StackTrace(1)

	_, ok := IsRequest(req, "stackTrace")
	assert.True(t, ok)
	_, ok = IsRequest(req, "threads")
	assert.False(t, ok)
	_, ok = IsResponse(req, "stackTrace")
	assert.False(t, ok)
	_, ok = IsEvent(req, "stackTrace")
	assert.False(t, ok)

	evt := &dap.StoppedEvent{Event: dap.Event{Event: "stopped"}}
	_, ok = IsEvent(evt, "stopped")
	assert.True(t, ok)
	_, ok = IsEvent(evt, "continued")
	assert.False(t, ok)

	_, ok = As[*dap.ContinuedEvent](evt)
	assert.False(t, ok)
}

func newResponse(requestSeq int, command string, success bool) *dap.Response {
	return &dap.Response{
		ProtocolMessage: dap.ProtocolMessage{Seq: 100 + requestSeq, Type: "response"},
		RequestSeq:      requestSeq,
		Command:         command,
		Success:         success,
	}
}

func TestCorrelateOutOfOrder(t *testing.T) {
	t.Parallel()

	b := NewRequestBuilder()
	pending := NewPendingRequests()

	first, second, third := b.StackTrace(1), b.Scopes(10), b.Variables(7)
	for _, req := range []dap.RequestMessage{first, second, third} {
		pending.Add(req)
	}
	require.Equal(t, []int{1, 2, 3}, []int{first.Seq, second.Seq, third.Seq})

	c, err := Correlate(newResponse(2, "scopes", true), pending)
	require.NoError(t, err)
	assert.Same(t, second, c.Request)

	c, err = Correlate(newResponse(1, "stackTrace", true), pending)
	require.NoError(t, err)
	assert.Same(t, first, c.Request)

	c, err = Correlate(newResponse(3, "variables", false), pending)
	require.NoError(t, err)
	assert.Same(t, third, c.Request)

	assert.Equal(t, 0, pending.Len())
}

func TestCorrelateUnmatched(t *testing.T) {
	t.Parallel()

	b := NewRequestBuilder()
	pending := NewPendingRequests()
	pending.Add(b.Threads())

	_, err := Correlate(newResponse(42, "threads", true), pending)
	require.ErrorIs(t, err, ErrUnmatchedResponse)
	assert.True(t, IsProtocolError(err))

	// Responding twice to the same request is a desynchronization too
	_, err = Correlate(newResponse(1, "threads", true), pending)
	require.NoError(t, err)
	_, err = Correlate(newResponse(1, "threads", true), pending)
	require.ErrorIs(t, err, ErrUnmatchedResponse)

	pending.Add(b.Pause(1))
	_, err = Correlate(newResponse(2, "continue", true), pending)
	require.ErrorIs(t, err, ErrUnmatchedResponse)
}

func TestFailureMessage(t *testing.T) {
	t.Parallel()

	withMessage := newResponse(1, "scopes", false)
	withMessage.Message = "frame is gone"
	assert.Equal(t, "frame is gone", FailureMessage(withMessage))

	formatted := &dap.ErrorResponse{
		Response: *newResponse(2, "variables", false),
		Body: dap.ErrorResponseBody{
			Error: &dap.ErrorMessage{
				Format:    "cannot evaluate {expr}",
				Variables: map[string]string{"expr": "x.y"},
			},
		},
	}
	assert.Equal(t, "cannot evaluate x.y", FailureMessage(formatted))

	assert.Equal(t, "request failed", FailureMessage(newResponse(3, "threads", false)))
	assert.Equal(t, "request failed", FailureMessage(nil))
}
