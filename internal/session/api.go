// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package session

import (
	"context"
	"fmt"

	"github.com/google/go-dap"

	"github.com/microsoft/dapmirror/internal/debuggee"
)

// Dispatch queues a request for the debug adapter. Dispatch does not wait for the request to be sent.
// The event loop gives the request the next sequence number of the session when it sends it, so that
// requests reach the adapter in sequence order; the request must not be modified after Dispatch.
func (s *Session) Dispatch(req dap.RequestMessage) error {
	return s.enqueue(dispatchItem{
		command: req.GetRequest().Command,
		request: req,
	})
}

// Call sends a request and waits for its response. A response with success=false is
// returned as is, without an error. The request is numbered as with Dispatch.
func (s *Session) Call(ctx context.Context, req dap.RequestMessage) (dap.ResponseMessage, error) {
	return s.call(ctx, dispatchItem{
		command: req.GetRequest().Command,
		request: req,
	})
}

func (s *Session) call(ctx context.Context, item dispatchItem) (dap.ResponseMessage, error) {
	// Both the sequence number and the messages checked by the waiter are only touched by the event loop.
	seq := 0
	item.sent = func(req dap.RequestMessage) { seq = req.GetSeq() }
	w := s.expect(func(msg dap.Message) bool {
		return seq != 0 && responseTo(seq)(msg)
	})

	if enqueueErr := s.enqueue(item); enqueueErr != nil {
		s.waiters.remove(w)
		return nil, enqueueErr
	}

	msg, awaitErr := s.await(ctx, w)
	if awaitErr != nil {
		return nil, awaitErr
	}

	resp, isResp := msg.(dap.ResponseMessage)
	if !isResp {
		return nil, fmt.Errorf("unexpected reply to %s request: %T", item.command, msg)
	}
	return resp, nil
}

// send queues a request that the event loop builds when it is sent.
func (s *Session) send(command string, build func() dap.RequestMessage) error {
	return s.enqueue(dispatchItem{command: command, build: build})
}

// LoadThreads requests the thread list, unless a threads request is already in flight.
func (s *Session) LoadThreads() error {
	return s.enqueue(dispatchItem{
		command: "threads",
		build:   func() dap.RequestMessage { return s.requests.Threads() },
		inFlight: func(d *debuggee.Debuggee) bool {
			return d.Threads.InFlight()
		},
	})
}

// LoadStackFrames requests the call stack of a thread, unless it is already being loaded.
func (s *Session) LoadStackFrames(threadID int) error {
	return s.enqueue(dispatchItem{
		command: "stackTrace",
		build:   func() dap.RequestMessage { return s.requests.StackTrace(threadID) },
		inFlight: func(d *debuggee.Debuggee) bool {
			t := d.Thread(threadID)
			return t != nil && t.StackFrames.InFlight()
		},
	})
}

// LoadScopes requests the scopes of a stack frame, unless they are already being loaded.
func (s *Session) LoadScopes(frameID int) error {
	return s.enqueue(dispatchItem{
		command: "scopes",
		build:   func() dap.RequestMessage { return s.requests.Scopes(frameID) },
		inFlight: func(d *debuggee.Debuggee) bool {
			f := d.FindFrame(frameID)
			return f != nil && f.Scopes.InFlight()
		},
	})
}

// LoadVariables requests the children of a scope or structured variable,
// unless they are already being loaded.
func (s *Session) LoadVariables(variablesReference int) error {
	return s.enqueue(dispatchItem{
		command: "variables",
		build:   func() dap.RequestMessage { return s.requests.Variables(variablesReference) },
		inFlight: func(d *debuggee.Debuggee) bool {
			vars, found := d.VariablesByReference(variablesReference)
			return found && vars.InFlight()
		},
	})
}

func (s *Session) Pause(threadID int) error {
	return s.send("pause", func() dap.RequestMessage { return s.requests.Pause(threadID) })
}

func (s *Session) Next(threadID int) error {
	return s.send("next", func() dap.RequestMessage { return s.requests.Next(threadID) })
}

func (s *Session) Continue(threadID int) error {
	return s.send("continue", func() dap.RequestMessage { return s.requests.Continue(threadID) })
}

func (s *Session) StepIn(threadID int) error {
	return s.send("stepIn", func() dap.RequestMessage { return s.requests.StepIn(threadID) })
}

func (s *Session) StepOut(threadID int) error {
	return s.send("stepOut", func() dap.RequestMessage { return s.requests.StepOut(threadID) })
}

// Disconnect asks the debug adapter to end the session, leaving the debuggee running,
// and waits for the adapter to acknowledge.
func (s *Session) Disconnect(ctx context.Context) error {
	resp, callErr := s.call(ctx, dispatchItem{
		command: "disconnect",
		build:   func() dap.RequestMessage { return s.requests.Disconnect() },
	})
	if callErr != nil {
		return callErr
	}
	if !resp.GetResponse().Success {
		return fmt.Errorf("disconnect request failed: %s", failureMessage(resp))
	}
	return nil
}
