// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package debuggee

import (
	"sync/atomic"

	"github.com/google/go-dap"
)

var responseSeq atomic.Int32

func responseTo(req dap.RequestMessage) dap.Response {
	r := req.GetRequest()
	return dap.Response{
		ProtocolMessage: dap.ProtocolMessage{Seq: 10000 + int(responseSeq.Add(1)), Type: "response"},
		RequestSeq:      r.Seq,
		Command:         r.Command,
		Success:         true,
	}
}

func threadsResponse(req *dap.ThreadsRequest, threads ...dap.Thread) *dap.ThreadsResponse {
	return &dap.ThreadsResponse{
		Response: responseTo(req),
		Body:     dap.ThreadsResponseBody{Threads: threads},
	}
}

func stackTraceResponse(req *dap.StackTraceRequest, frames ...dap.StackFrame) *dap.StackTraceResponse {
	return &dap.StackTraceResponse{
		Response: responseTo(req),
		Body:     dap.StackTraceResponseBody{StackFrames: frames, TotalFrames: len(frames)},
	}
}

func scopesResponse(req *dap.ScopesRequest, scopes ...dap.Scope) *dap.ScopesResponse {
	return &dap.ScopesResponse{
		Response: responseTo(req),
		Body:     dap.ScopesResponseBody{Scopes: scopes},
	}
}

func variablesResponse(req *dap.VariablesRequest, vars ...dap.Variable) *dap.VariablesResponse {
	return &dap.VariablesResponse{
		Response: responseTo(req),
		Body:     dap.VariablesResponseBody{Variables: vars},
	}
}

func errorResponse(req dap.RequestMessage, message string) *dap.ErrorResponse {
	resp := responseTo(req)
	resp.Success = false
	resp.Message = message
	return &dap.ErrorResponse{Response: resp}
}

func event(name string) dap.Event {
	return dap.Event{ProtocolMessage: dap.ProtocolMessage{Type: "event"}, Event: name}
}

func stoppedEvent(threadID int, all bool) *dap.StoppedEvent {
	return &dap.StoppedEvent{
		Event: event("stopped"),
		Body:  dap.StoppedEventBody{Reason: "pause", ThreadId: threadID, AllThreadsStopped: all},
	}
}

func continuedEvent(threadID int, all bool) *dap.ContinuedEvent {
	return &dap.ContinuedEvent{
		Event: event("continued"),
		Body:  dap.ContinuedEventBody{ThreadId: threadID, AllThreadsContinued: all},
	}
}

func threadEvent(reason string, threadID int) *dap.ThreadEvent {
	return &dap.ThreadEvent{
		Event: event("thread"),
		Body:  dap.ThreadEventBody{Reason: reason, ThreadId: threadID},
	}
}

func outputEvent(category, output string) *dap.OutputEvent {
	return &dap.OutputEvent{
		Event: event("output"),
		Body:  dap.OutputEventBody{Category: category, Output: output},
	}
}

func applyAll(d *Debuggee, msgs ...dap.Message) *Debuggee {
	for _, msg := range msgs {
		d = ApplyMessage(d, msg)
	}
	return d
}
