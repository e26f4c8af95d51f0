// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package dapmirror

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/require"

	internaldap "github.com/microsoft/dapmirror/internal/dap"
	"github.com/microsoft/dapmirror/internal/debuggee"
)

// mirror is a debuggee state driven by a test that plays both the client and the debug adapter.
type mirror struct {
	t        *testing.T
	requests *internaldap.RequestBuilder
	state    *debuggee.Debuggee
	calls    []string
	seq      int
}

func newMirror(t *testing.T) *mirror {
	return &mirror{
		t:        t,
		requests: internaldap.NewRequestBuilder(),
		state:    debuggee.New(),
	}
}

func (m *mirror) apply(msg dap.Message) {
	m.state = debuggee.ApplyMessage(m.state, msg)
}

func (m *mirror) fromAdapter(envelope map[string]any) {
	m.t.Helper()

	m.seq++
	envelope["seq"] = m.seq
	raw, marshalErr := json.Marshal(envelope)
	require.NoError(m.t, marshalErr)
	msg, classifyErr := internaldap.Classify(raw)
	require.NoError(m.t, classifyErr)
	m.apply(msg)
}

func (m *mirror) respond(req dap.RequestMessage, body any) {
	m.t.Helper()
	m.fromAdapter(map[string]any{
		"type":        "response",
		"request_seq": req.GetSeq(),
		"command":     req.GetRequest().Command,
		"success":     true,
		"body":        body,
	})
}

func (m *mirror) fail(req dap.RequestMessage, message string) {
	m.t.Helper()
	m.fromAdapter(map[string]any{
		"type":        "response",
		"request_seq": req.GetSeq(),
		"command":     req.GetRequest().Command,
		"success":     false,
		"message":     message,
	})
}

func (m *mirror) event(name string, body any) {
	m.t.Helper()
	m.fromAdapter(map[string]any{"type": "event", "event": name, "body": body})
}

// send applies a request as the session would, and returns it so that the test can answer it.
func (m *mirror) send(req dap.RequestMessage) dap.RequestMessage {
	m.apply(req)
	return req
}

func (m *mirror) loadThreads(threads ...map[string]any) {
	m.t.Helper()
	m.respond(m.send(m.requests.Threads()), map[string]any{"threads": threads})
}

// Loader implementation that records calls and applies the requests to the state.

func (m *mirror) LoadStackFrames(threadID int) error {
	m.calls = append(m.calls, fmt.Sprintf("stackTrace %d", threadID))
	m.send(m.requests.StackTrace(threadID))
	return nil
}

func (m *mirror) LoadScopes(frameID int) error {
	m.calls = append(m.calls, fmt.Sprintf("scopes %d", frameID))
	m.send(m.requests.Scopes(frameID))
	return nil
}

func (m *mirror) LoadVariables(variablesReference int) error {
	m.calls = append(m.calls, fmt.Sprintf("variables %d", variablesReference))
	m.send(m.requests.Variables(variablesReference))
	return nil
}

func (m *mirror) takeCalls() []string {
	calls := m.calls
	m.calls = nil
	return calls
}

var _ Loader = (*mirror)(nil)
