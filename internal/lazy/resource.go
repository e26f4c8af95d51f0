/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

// Package lazy implements the state machine shared by every piece of debuggee state that is
// loaded from the debug adapter on demand (thread lists, stack traces, scopes, variables).
//
// A resource starts Pending, moves to Started when a matching request is sent, and then to
// Success or Failure when the response to that exact request arrives. Resources are immutable:
// Advance returns the same pointer when a message does not affect the resource, and a new
// resource otherwise.
package lazy

import (
	"fmt"

	"github.com/google/go-dap"

	internaldap "github.com/microsoft/dapmirror/internal/dap"
	"github.com/microsoft/dapmirror/pkg/immutable"
)

type State int

const (
	// Pending means the resource was never requested (or was invalidated).
	Pending State = iota
	// Started means a request is in flight and no response to it has been seen yet.
	Started
	// Success means the most recently answered request succeeded.
	Success
	// Failure means the most recently answered request failed.
	Failure
)

func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Started:
		return "Started"
	case Success:
		return "Success"
	case Failure:
		return "Failure"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Resource is a remotely loaded collection of items. A nil *Resource is Pending.
type Resource[E comparable] struct {
	state    State
	request  dap.RequestMessage
	response dap.ResponseMessage
	items    []E
}

// Spec describes how a particular resource reacts to protocol messages.
type Spec[E comparable] struct {
	// Command is the DAP command that loads the resource.
	Command string

	// BelongsTo reports whether a request for Command targets this resource (e.g. the right thread id).
	BelongsTo func(req dap.RequestMessage) bool

	// Fetch converts a successful response into items. prev holds the items of the previous
	// successful load (nil if there was none) so that unchanged items can be reused.
	Fetch func(resp dap.ResponseMessage, prev []E) []E

	// Fold lets a successfully loaded resource react to any other message, typically by forwarding
	// it to nested resources. Optional. Must return items unchanged (same slice) when the message is irrelevant.
	Fold func(items []E, msg dap.Message) []E
}

// Advance computes the next state of r after msg. It returns r itself when msg is irrelevant.
func Advance[E comparable](r *Resource[E], msg dap.Message, spec Spec[E]) *Resource[E] {
	next := r

	// Outgoing requests must be correlated before responses, so that a request and its response
	// delivered back-to-back are both observed.
	if req, isReq := internaldap.IsRequest(msg, spec.Command); isReq && spec.BelongsTo(req) {
		next = next.withRequest(req)
	}

	if resp, isResp := internaldap.IsResponse(msg, spec.Command); isResp && next.awaits(resp) {
		next = next.resolve(resp, spec)
	}

	if next.State() == Success && spec.Fold != nil {
		if folded := spec.Fold(next.items, msg); !immutable.SameSlice(folded, next.items) {
			updated := *next
			updated.items = folded
			next = &updated
		}
	}

	return next
}

func (r *Resource[E]) withRequest(req dap.RequestMessage) *Resource[E] {
	if r == nil {
		return &Resource[E]{state: Started, request: req}
	}

	// Keep the outcome of the previous request; only the request being tracked changes.
	updated := *r
	updated.request = req
	return &updated
}

// awaits reports whether resp answers the retained request and that request has not been answered yet.
func (r *Resource[E]) awaits(resp dap.ResponseMessage) bool {
	if r == nil || r.request == nil {
		return false
	}

	requestSeq := resp.GetResponse().RequestSeq
	if requestSeq != r.request.GetSeq() {
		return false
	}

	return r.response == nil || r.response.GetResponse().RequestSeq != requestSeq
}

func (r *Resource[E]) resolve(resp dap.ResponseMessage, spec Spec[E]) *Resource[E] {
	if !resp.GetResponse().Success {
		return &Resource[E]{state: Failure, request: r.request, response: resp}
	}

	var prev []E
	if r.state == Success {
		prev = r.items
	}

	return &Resource[E]{
		state:    Success,
		request:  r.request,
		response: resp,
		items:    spec.Fetch(resp, prev),
	}
}

func (r *Resource[E]) State() State {
	if r == nil {
		return Pending
	}
	return r.state
}

// Request returns the most recent request that targeted this resource, or nil if there was none.
func (r *Resource[E]) Request() dap.RequestMessage {
	if r == nil {
		return nil
	}
	return r.request
}

// Response returns the response of the last resolved request (Success or Failure), or nil.
// After a refresh request is sent, the response of the previous request remains available.
func (r *Resource[E]) Response() dap.ResponseMessage {
	if r == nil {
		return nil
	}
	return r.response
}

// Items returns the loaded items. Only meaningful when the state is Success.
func (r *Resource[E]) Items() []E {
	if r == nil || r.state != Success {
		return nil
	}
	return r.items
}

// InFlight reports whether the most recent request has not been answered yet.
// True in the Started state, and also after a refresh request in the Success or Failure state.
func (r *Resource[E]) InFlight() bool {
	if r == nil || r.request == nil {
		return false
	}
	return r.response == nil || r.response.GetResponse().RequestSeq != r.request.GetSeq()
}

// FailureMessage describes why the resource failed to load. Empty unless the state is Failure.
func (r *Resource[E]) FailureMessage() string {
	if r.State() != Failure {
		return ""
	}
	return internaldap.FailureMessage(r.response)
}

func (r *Resource[E]) String() string {
	switch r.State() {
	case Success:
		return fmt.Sprintf("Success(%d items)", len(r.items))
	case Failure:
		return fmt.Sprintf("Failure(%s)", r.FailureMessage())
	default:
		return r.State().String()
	}
}
