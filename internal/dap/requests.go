/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"encoding/json"
	"fmt"

	"github.com/google/go-dap"
)

const (
	clientID   = "dapmirror"
	clientName = "DAP mirror"
)

// RequestBuilder creates outgoing request envelopes with sequence numbers unique to one session.
// A RequestBuilder is safe for concurrent use.
type RequestBuilder struct {
	seq *sequenceCounter
}

// NewRequestBuilder creates a builder with a fresh sequence counter. The first request gets seq 1.
func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{seq: newSequenceCounter()}
}

// LastSeq returns the sequence number of the most recently built request (0 if none).
func (b *RequestBuilder) LastSeq() int {
	return b.seq.Current()
}

// Renumber gives req the next sequence number of the builder, replacing the one it was created with.
func (b *RequestBuilder) Renumber(req dap.RequestMessage) {
	req.GetRequest().Seq = b.seq.Next()
}

func (b *RequestBuilder) newRequest(command string) dap.Request {
	return dap.Request{
		ProtocolMessage: dap.ProtocolMessage{
			Seq:  b.seq.Next(),
			Type: messageTypeRequest,
		},
		Command: command,
	}
}

// BuildRequest creates a request for an arbitrary command. The arguments are serialized to JSON
// and the envelope is decoded back so the result has the typed go-dap shape when the command is known.
func (b *RequestBuilder) BuildRequest(command string, arguments any) (dap.RequestMessage, error) {
	envelope := struct {
		dap.Request
		Arguments any `json:"arguments,omitempty"`
	}{
		Request:   b.newRequest(command),
		Arguments: arguments,
	}

	raw, marshalErr := json.Marshal(envelope)
	if marshalErr != nil {
		return nil, fmt.Errorf("failed to serialize '%s' request: %w", command, marshalErr)
	}

	msg, classifyErr := Classify(raw)
	if classifyErr != nil {
		return nil, fmt.Errorf("failed to build '%s' request: %w", command, classifyErr)
	}

	req, ok := msg.(dap.RequestMessage)
	if !ok {
		return nil, fmt.Errorf("%w: '%s' did not decode as a request", ErrMalformedMessage, command)
	}
	return req, nil
}

// Initialize creates the request that opens the session handshake.
func (b *RequestBuilder) Initialize(adapterID string) *dap.InitializeRequest {
	return &dap.InitializeRequest{
		Request: b.newRequest("initialize"),
		Arguments: dap.InitializeRequestArguments{
			ClientID:        clientID,
			ClientName:      clientName,
			AdapterID:       adapterID,
			Locale:          "en-us",
			LinesStartAt1:   true,
			ColumnsStartAt1: true,
			PathFormat:      "path",
		},
	}
}

// SetExceptionBreakpoints enables the given exception filters.
func (b *RequestBuilder) SetExceptionBreakpoints(filters []string) *dap.SetExceptionBreakpointsRequest {
	if filters == nil {
		filters = []string{}
	}
	return &dap.SetExceptionBreakpointsRequest{
		Request: b.newRequest("setExceptionBreakpoints"),
		Arguments: dap.SetExceptionBreakpointsArguments{
			Filters: filters,
		},
	}
}

func (b *RequestBuilder) ConfigurationDone() *dap.ConfigurationDoneRequest {
	return &dap.ConfigurationDoneRequest{
		Request: b.newRequest("configurationDone"),
	}
}

// Attach creates an attach request. The adapter-specific arguments only carry breakOnStart.
func (b *RequestBuilder) Attach(breakOnStart bool) *dap.AttachRequest {
	args, _ := json.Marshal(struct {
		BreakOnStart bool `json:"breakOnStart"`
	}{BreakOnStart: breakOnStart})

	return &dap.AttachRequest{
		Request:   b.newRequest("attach"),
		Arguments: args,
	}
}

func (b *RequestBuilder) Threads() *dap.ThreadsRequest {
	return &dap.ThreadsRequest{
		Request: b.newRequest("threads"),
	}
}

func (b *RequestBuilder) StackTrace(threadID int) *dap.StackTraceRequest {
	return &dap.StackTraceRequest{
		Request: b.newRequest("stackTrace"),
		Arguments: dap.StackTraceArguments{
			ThreadId: threadID,
		},
	}
}

func (b *RequestBuilder) Scopes(frameID int) *dap.ScopesRequest {
	return &dap.ScopesRequest{
		Request: b.newRequest("scopes"),
		Arguments: dap.ScopesArguments{
			FrameId: frameID,
		},
	}
}

func (b *RequestBuilder) Variables(variablesReference int) *dap.VariablesRequest {
	return &dap.VariablesRequest{
		Request: b.newRequest("variables"),
		Arguments: dap.VariablesArguments{
			VariablesReference: variablesReference,
		},
	}
}

func (b *RequestBuilder) Pause(threadID int) *dap.PauseRequest {
	return &dap.PauseRequest{
		Request: b.newRequest("pause"),
		Arguments: dap.PauseArguments{
			ThreadId: threadID,
		},
	}
}

func (b *RequestBuilder) Next(threadID int) *dap.NextRequest {
	return &dap.NextRequest{
		Request: b.newRequest("next"),
		Arguments: dap.NextArguments{
			ThreadId: threadID,
		},
	}
}

func (b *RequestBuilder) Continue(threadID int) *dap.ContinueRequest {
	return &dap.ContinueRequest{
		Request: b.newRequest("continue"),
		Arguments: dap.ContinueArguments{
			ThreadId: threadID,
		},
	}
}

func (b *RequestBuilder) StepIn(threadID int) *dap.StepInRequest {
	return &dap.StepInRequest{
		Request: b.newRequest("stepIn"),
		Arguments: dap.StepInArguments{
			ThreadId: threadID,
		},
	}
}

func (b *RequestBuilder) StepOut(threadID int) *dap.StepOutRequest {
	return &dap.StepOutRequest{
		Request: b.newRequest("stepOut"),
		Arguments: dap.StepOutArguments{
			ThreadId: threadID,
		},
	}
}

// Disconnect asks the adapter to end the session without terminating the debuggee.
func (b *RequestBuilder) Disconnect() *dap.DisconnectRequest {
	return &dap.DisconnectRequest{
		Request: b.newRequest("disconnect"),
		Arguments: &dap.DisconnectArguments{
			TerminateDebuggee: false,
		},
	}
}
