/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

// Package debuggee maintains an immutable mirror of the state of a program being debugged,
// driven entirely by the DAP messages exchanged with the debug adapter.
//
// Every level of the tree (threads, stack frames, scopes, variables) is a lazy.Resource that only
// reacts to the requests and responses addressed to it. Applying a message that is irrelevant to a
// part of the tree returns that part unchanged, by reference, so consumers can detect changes with
// pointer comparisons.
package debuggee

import (
	"github.com/google/go-dap"

	internaldap "github.com/microsoft/dapmirror/internal/dap"
	"github.com/microsoft/dapmirror/internal/lazy"
	"github.com/microsoft/dapmirror/pkg/immutable"
)

// Debuggee is the root of the mirrored state. There is exactly one per debug session.
type Debuggee struct {
	Threads *lazy.Resource[*Thread]
	Outputs []*OutputRecord

	// Capabilities reported by the debug adapter in response to initialize. Nil until then.
	Capabilities *dap.Capabilities

	// Terminated is set once the adapter reports that the debuggee has exited or the session ended.
	Terminated bool
}

// New returns the state of a session that has not exchanged any messages yet.
func New() *Debuggee {
	return &Debuggee{}
}

// ApplyMessage computes the state after msg (an outgoing request or an incoming response or event).
// It never modifies d. If msg does not affect the state, d itself is returned.
func ApplyMessage(d *Debuggee, msg dap.Message) *Debuggee {
	if d == nil {
		d = New()
	}

	return immutable.MergeFieldsUnlessUnchanged(d,
		immutable.Field(
			func(d *Debuggee) **lazy.Resource[*Thread] { return &d.Threads },
			func(threads *lazy.Resource[*Thread]) *lazy.Resource[*Thread] {
				return lazy.Advance(threads, msg, threadsSpec)
			},
		),
		immutable.SliceField(
			func(d *Debuggee) *[]*OutputRecord { return &d.Outputs },
			func(outputs []*OutputRecord) []*OutputRecord {
				if evt, ok := internaldap.As[*dap.OutputEvent](msg); ok {
					return immutable.Append(outputs, &OutputRecord{Remote: evt.Body})
				}
				return outputs
			},
		),
		immutable.Field(
			func(d *Debuggee) **dap.Capabilities { return &d.Capabilities },
			func(caps *dap.Capabilities) *dap.Capabilities {
				if resp, ok := internaldap.As[*dap.InitializeResponse](msg); ok && resp.Success {
					body := resp.Body
					return &body
				}
				return caps
			},
		),
		immutable.Field(
			func(d *Debuggee) *bool { return &d.Terminated },
			func(terminated bool) bool {
				if _, ok := internaldap.As[*dap.TerminatedEvent](msg); ok {
					return true
				}
				if _, ok := internaldap.As[*dap.ExitedEvent](msg); ok {
					return true
				}
				return terminated
			},
		),
	)
}

// Thread returns the thread with the given id, if the thread list is loaded and contains it.
func (d *Debuggee) Thread(id int) *Thread {
	if d == nil {
		return nil
	}
	for _, t := range d.Threads.Items() {
		if t.Remote.Id == id {
			return t
		}
	}
	return nil
}

// Frame returns a loaded stack frame of a thread.
func (d *Debuggee) Frame(threadID, frameID int) *StackFrame {
	t := d.Thread(threadID)
	if t == nil {
		return nil
	}
	for _, f := range t.StackFrames.Items() {
		if f.Remote.Id == frameID {
			return f
		}
	}
	return nil
}

// FindFrame returns a loaded stack frame with the given id, searching all threads.
func (d *Debuggee) FindFrame(frameID int) *StackFrame {
	if d == nil {
		return nil
	}
	for _, t := range d.Threads.Items() {
		for _, f := range t.StackFrames.Items() {
			if f.Remote.Id == frameID {
				return f
			}
		}
	}
	return nil
}

// VariablesByReference returns the variables resource tracked for the given variables reference,
// whether it hangs off a scope or a structured variable. The second result is false when no
// loaded scope or variable has that reference.
func (d *Debuggee) VariablesByReference(ref int) (*lazy.Resource[*Variable], bool) {
	if d == nil || ref == 0 {
		return nil, false
	}

	var searchVariables func(vars []*Variable) (*lazy.Resource[*Variable], bool)
	searchVariables = func(vars []*Variable) (*lazy.Resource[*Variable], bool) {
		for _, v := range vars {
			if v.Remote.VariablesReference == ref {
				return v.Variables, true
			}
			if found, ok := searchVariables(v.Variables.Items()); ok {
				return found, true
			}
		}
		return nil, false
	}

	for _, t := range d.Threads.Items() {
		for _, f := range t.StackFrames.Items() {
			for _, s := range f.Scopes.Items() {
				if s.Remote.VariablesReference == ref {
					return s.Variables, true
				}
				if found, ok := searchVariables(s.Variables.Items()); ok {
					return found, true
				}
			}
		}
	}

	return nil, false
}

// Scope returns a loaded scope of a stack frame by name.
func (d *Debuggee) Scope(frameID int, name string) *Scope {
	f := d.FindFrame(frameID)
	if f == nil {
		return nil
	}
	for _, s := range f.Scopes.Items() {
		if s.Remote.Name == name {
			return s
		}
	}
	return nil
}
