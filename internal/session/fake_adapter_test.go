// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package session

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/require"

	internaldap "github.com/microsoft/dapmirror/internal/dap"
)

const messageTimeout = 5 * time.Second

// fakeTransport is an in-memory transport. The test plays the debug adapter.
type fakeTransport struct {
	fromAdapter chan dap.Message
	readErrors  chan error
	toAdapter   chan dap.Message
	closed      chan struct{}
	closeOnce   sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		fromAdapter: make(chan dap.Message, 100),
		readErrors:  make(chan error, 1),
		toAdapter:   make(chan dap.Message, 100),
		closed:      make(chan struct{}),
	}
}

func (ft *fakeTransport) ReadMessage() (dap.Message, error) {
	select {
	case msg, ok := <-ft.fromAdapter:
		if !ok {
			return nil, io.EOF
		}
		return msg, nil
	case readErr := <-ft.readErrors:
		return nil, readErr
	case <-ft.closed:
		return nil, internaldap.ErrTransportClosed
	}
}

func (ft *fakeTransport) WriteMessage(msg dap.Message) error {
	select {
	case ft.toAdapter <- msg:
		return nil
	case <-ft.closed:
		return internaldap.ErrTransportClosed
	}
}

func (ft *fakeTransport) Close() error {
	ft.closeOnce.Do(func() { close(ft.closed) })
	return nil
}

// fakeAdapter helps a test play the role of the debug adapter.
type fakeAdapter struct {
	t         *testing.T
	transport *fakeTransport
	seq       int
}

func newFakeAdapter(t *testing.T) *fakeAdapter {
	return &fakeAdapter{t: t, transport: newFakeTransport()}
}

// expectRequest returns the next request sent by the session and verifies its command.
func (fa *fakeAdapter) expectRequest(command string) dap.RequestMessage {
	fa.t.Helper()

	select {
	case msg := <-fa.transport.toAdapter:
		req, isReq := msg.(dap.RequestMessage)
		require.True(fa.t, isReq, "session sent a %T", msg)
		require.Equal(fa.t, command, req.GetRequest().Command)
		return req
	case <-time.After(messageTimeout):
		require.FailNow(fa.t, "timed out waiting for request", "command: %s", command)
		return nil
	}
}

func (fa *fakeAdapter) expectNoRequest(within time.Duration) {
	fa.t.Helper()

	select {
	case msg := <-fa.transport.toAdapter:
		require.FailNow(fa.t, "unexpected request", "%T", msg)
	case <-time.After(within):
	}
}

// send decodes an adapter message from its JSON form and delivers it to the session.
func (fa *fakeAdapter) send(envelope map[string]any) {
	fa.t.Helper()

	fa.seq++
	envelope["seq"] = fa.seq
	raw, marshalErr := json.Marshal(envelope)
	require.NoError(fa.t, marshalErr)

	msg, classifyErr := internaldap.Classify(raw)
	require.NoError(fa.t, classifyErr)
	fa.transport.fromAdapter <- msg
}

func (fa *fakeAdapter) respond(req dap.RequestMessage, body any) {
	fa.t.Helper()
	fa.respondToSeq(req.GetSeq(), req.GetRequest().Command, body)
}

func (fa *fakeAdapter) respondToSeq(requestSeq int, command string, body any) {
	fa.t.Helper()

	envelope := map[string]any{
		"type":        "response",
		"request_seq": requestSeq,
		"command":     command,
		"success":     true,
	}
	if body != nil {
		envelope["body"] = body
	}
	fa.send(envelope)
}

func (fa *fakeAdapter) fail(req dap.RequestMessage, message string) {
	fa.t.Helper()

	fa.send(map[string]any{
		"type":        "response",
		"request_seq": req.GetSeq(),
		"command":     req.GetRequest().Command,
		"success":     false,
		"message":     message,
	})
}

func (fa *fakeAdapter) event(name string, body any) {
	fa.t.Helper()

	envelope := map[string]any{
		"type":  "event",
		"event": name,
	}
	if body != nil {
		envelope["body"] = body
	}
	fa.send(envelope)
}

type thread struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// completeHandshake plays the adapter side of a successful handshake.
func (fa *fakeAdapter) completeHandshake(threads ...thread) {
	fa.t.Helper()

	initReq := fa.expectRequest("initialize")
	fa.respond(initReq, map[string]any{"supportsConfigurationDoneRequest": true})
	fa.event("initialized", nil)

	fa.respond(fa.expectRequest("configurationDone"), nil)
	fa.respond(fa.expectRequest("attach"), nil)
	fa.respond(fa.expectRequest("threads"), map[string]any{"threads": threads})
}

func (fa *fakeAdapter) closeConnection() {
	close(fa.transport.fromAdapter)
}

func waitForResult(t *testing.T, result <-chan error) error {
	t.Helper()

	select {
	case err := <-result:
		return err
	case <-time.After(messageTimeout):
		require.FailNow(t, "timed out waiting for the session to end")
		return nil
	}
}

func waitForReady(t *testing.T, s *Session) {
	t.Helper()

	select {
	case <-s.Ready():
	case <-time.After(messageTimeout):
		require.FailNow(t, "timed out waiting for the session to become ready")
	}
}

func describe(msg dap.Message) string {
	return fmt.Sprintf("%T(seq=%d)", msg, msg.GetSeq())
}
