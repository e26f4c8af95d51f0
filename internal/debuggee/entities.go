/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package debuggee

import (
	"github.com/google/go-dap"

	internaldap "github.com/microsoft/dapmirror/internal/dap"
	"github.com/microsoft/dapmirror/internal/lazy"
	"github.com/microsoft/dapmirror/pkg/immutable"
)

// Variable is a variable as reported by the debug adapter, plus its lazily loaded children.
type Variable struct {
	Remote dap.Variable

	// Children of a structured variable. Always nil (Pending) for leaf variables.
	Variables *lazy.Resource[*Variable]
}

// Scope is a named group of variables in a stack frame (locals, globals, registers...).
type Scope struct {
	Remote    dap.Scope
	Variables *lazy.Resource[*Variable]
}

type StackFrame struct {
	Remote dap.StackFrame
	Scopes *lazy.Resource[*Scope]
}

type Thread struct {
	Remote  dap.Thread
	Stopped bool

	// Stop is the most recent stopped event for the thread, nil while it runs. Every stopped event
	// yields a new record, even when the thread was already stopped (e.g. after a step).
	Stop *StopRecord

	StackFrames *lazy.Resource[*StackFrame]
}

// StopRecord is one stopped event that applied to a thread.
type StopRecord struct {
	Remote dap.StoppedEventBody
}

// OutputRecord is one piece of output emitted by the debuggee or the debug adapter.
type OutputRecord struct {
	Remote dap.OutputEventBody
}

// HasChildren reports whether the variable is structured (has a non-zero variables reference).
func (v *Variable) HasChildren() bool {
	return v.Remote.VariablesReference != 0
}

func (v *Variable) apply(msg dap.Message) *Variable {
	if !v.HasChildren() {
		return v
	}

	return immutable.MergeFieldsUnlessUnchanged(v,
		immutable.Field(
			func(v *Variable) **lazy.Resource[*Variable] { return &v.Variables },
			func(vars *lazy.Resource[*Variable]) *lazy.Resource[*Variable] {
				return lazy.Advance(vars, msg, variablesSpec(v.Remote.VariablesReference))
			},
		),
	)
}

func (s *Scope) apply(msg dap.Message) *Scope {
	if s.Remote.VariablesReference == 0 {
		return s
	}

	return immutable.MergeFieldsUnlessUnchanged(s,
		immutable.Field(
			func(s *Scope) **lazy.Resource[*Variable] { return &s.Variables },
			func(vars *lazy.Resource[*Variable]) *lazy.Resource[*Variable] {
				return lazy.Advance(vars, msg, variablesSpec(s.Remote.VariablesReference))
			},
		),
	)
}

func (f *StackFrame) apply(msg dap.Message) *StackFrame {
	return immutable.MergeFieldsUnlessUnchanged(f,
		immutable.Field(
			func(f *StackFrame) **lazy.Resource[*Scope] { return &f.Scopes },
			func(scopes *lazy.Resource[*Scope]) *lazy.Resource[*Scope] {
				return lazy.Advance(scopes, msg, scopesSpec(f.Remote.Id))
			},
		),
	)
}

func (t *Thread) apply(msg dap.Message) *Thread {
	stop := t.stoppedBy(msg)
	continues := t.continuedBy(msg)

	return immutable.MergeFieldsUnlessUnchanged(t,
		immutable.Field(
			func(t *Thread) *bool { return &t.Stopped },
			func(stopped bool) bool {
				if stop != nil {
					return true
				}
				if continues {
					return false
				}
				return stopped
			},
		),
		immutable.Field(
			func(t *Thread) **StopRecord { return &t.Stop },
			func(prev *StopRecord) *StopRecord {
				if stop != nil {
					return stop
				}
				if continues {
					return nil
				}
				return prev
			},
		),
		immutable.Field(
			func(t *Thread) **lazy.Resource[*StackFrame] { return &t.StackFrames },
			func(frames *lazy.Resource[*StackFrame]) *lazy.Resource[*StackFrame] {
				if continues {
					// Frames of a running thread are stale; drop them so that a late stackTrace
					// response for the previous stop has no request to attach to.
					return nil
				}
				return lazy.Advance(frames, msg, stackTraceSpec(t.Remote.Id))
			},
		),
	)
}

func (t *Thread) stoppedBy(msg dap.Message) *StopRecord {
	evt, ok := internaldap.As[*dap.StoppedEvent](msg)
	if !ok || (evt.Body.ThreadId != t.Remote.Id && !evt.Body.AllThreadsStopped) {
		return nil
	}
	return &StopRecord{Remote: evt.Body}
}

func (t *Thread) continuedBy(msg dap.Message) bool {
	evt, ok := internaldap.As[*dap.ContinuedEvent](msg)
	if !ok {
		return false
	}
	return evt.Body.ThreadId == t.Remote.Id || evt.Body.AllThreadsContinued
}

func newVariable(r dap.Variable) *Variable {
	return &Variable{Remote: r}
}

func newScope(r dap.Scope) *Scope {
	return &Scope{Remote: r}
}

func newStackFrame(r dap.StackFrame) *StackFrame {
	return &StackFrame{Remote: r}
}

func newThread(r dap.Thread) *Thread {
	return &Thread{Remote: r}
}

var variableReconciler = reconciler[*Variable, dap.Variable, string]{
	key:    func(r dap.Variable) string { return r.Name },
	remote: func(v *Variable) dap.Variable { return v.Remote },
	fresh:  newVariable,
	carry: func(prev *Variable, r dap.Variable) *Variable {
		if r.VariablesReference != prev.Remote.VariablesReference {
			// The children belong to another reference now; what was loaded no longer applies.
			return newVariable(r)
		}
		return &Variable{Remote: r, Variables: prev.Variables}
	},
}

var scopeReconciler = reconciler[*Scope, dap.Scope, string]{
	key:    func(r dap.Scope) string { return r.Name },
	remote: func(s *Scope) dap.Scope { return s.Remote },
	fresh:  newScope,
	carry: func(prev *Scope, r dap.Scope) *Scope {
		if r.VariablesReference != prev.Remote.VariablesReference {
			return newScope(r)
		}
		return &Scope{Remote: r, Variables: prev.Variables}
	},
}

var stackFrameReconciler = reconciler[*StackFrame, dap.StackFrame, int]{
	key:    func(r dap.StackFrame) int { return r.Id },
	remote: func(f *StackFrame) dap.StackFrame { return f.Remote },
	fresh:  newStackFrame,
	carry: func(prev *StackFrame, r dap.StackFrame) *StackFrame {
		return &StackFrame{Remote: r, Scopes: prev.Scopes}
	},
}

var threadReconciler = reconciler[*Thread, dap.Thread, int]{
	key:    func(r dap.Thread) int { return r.Id },
	remote: func(t *Thread) dap.Thread { return t.Remote },
	fresh:  newThread,
	carry: func(prev *Thread, r dap.Thread) *Thread {
		return &Thread{Remote: r, Stopped: prev.Stopped, Stop: prev.Stop, StackFrames: prev.StackFrames}
	},
}

func variablesSpec(ref int) lazy.Spec[*Variable] {
	return lazy.Spec[*Variable]{
		Command: "variables",
		BelongsTo: func(req dap.RequestMessage) bool {
			vr, ok := req.(*dap.VariablesRequest)
			return ok && vr.Arguments.VariablesReference == ref
		},
		Fetch: func(resp dap.ResponseMessage, prev []*Variable) []*Variable {
			vr, ok := resp.(*dap.VariablesResponse)
			if !ok {
				return nil
			}
			return variableReconciler.merge(prev, vr.Body.Variables)
		},
		Fold: func(vars []*Variable, msg dap.Message) []*Variable {
			return immutable.MapUnlessUnchanged(vars, func(v *Variable) *Variable { return v.apply(msg) })
		},
	}
}

func scopesSpec(frameID int) lazy.Spec[*Scope] {
	return lazy.Spec[*Scope]{
		Command: "scopes",
		BelongsTo: func(req dap.RequestMessage) bool {
			sr, ok := req.(*dap.ScopesRequest)
			return ok && sr.Arguments.FrameId == frameID
		},
		Fetch: func(resp dap.ResponseMessage, prev []*Scope) []*Scope {
			sr, ok := resp.(*dap.ScopesResponse)
			if !ok {
				return nil
			}
			return scopeReconciler.merge(prev, sr.Body.Scopes)
		},
		Fold: func(scopes []*Scope, msg dap.Message) []*Scope {
			return immutable.MapUnlessUnchanged(scopes, func(s *Scope) *Scope { return s.apply(msg) })
		},
	}
}

func stackTraceSpec(threadID int) lazy.Spec[*StackFrame] {
	return lazy.Spec[*StackFrame]{
		Command: "stackTrace",
		BelongsTo: func(req dap.RequestMessage) bool {
			sr, ok := req.(*dap.StackTraceRequest)
			return ok && sr.Arguments.ThreadId == threadID
		},
		Fetch: func(resp dap.ResponseMessage, prev []*StackFrame) []*StackFrame {
			sr, ok := resp.(*dap.StackTraceResponse)
			if !ok {
				return nil
			}
			return stackFrameReconciler.merge(prev, sr.Body.StackFrames)
		},
		Fold: func(frames []*StackFrame, msg dap.Message) []*StackFrame {
			return immutable.MapUnlessUnchanged(frames, func(f *StackFrame) *StackFrame { return f.apply(msg) })
		},
	}
}

var threadsSpec = lazy.Spec[*Thread]{
	Command: "threads",
	// There is only one thread list per session
	BelongsTo: func(dap.RequestMessage) bool { return true },
	Fetch: func(resp dap.ResponseMessage, prev []*Thread) []*Thread {
		tr, ok := resp.(*dap.ThreadsResponse)
		if !ok {
			return nil
		}
		return threadReconciler.merge(prev, tr.Body.Threads)
	},
	Fold: func(threads []*Thread, msg dap.Message) []*Thread {
		if evt, ok := internaldap.As[*dap.ThreadEvent](msg); ok {
			return applyThreadEvent(threads, evt)
		}
		return immutable.MapUnlessUnchanged(threads, func(t *Thread) *Thread { return t.apply(msg) })
	},
}

func applyThreadEvent(threads []*Thread, evt *dap.ThreadEvent) []*Thread {
	id := evt.Body.ThreadId

	switch evt.Body.Reason {
	case "started":
		for _, t := range threads {
			if t.Remote.Id == id {
				return threads
			}
		}
		// The event carries no name; the name arrives with the next threads response.
		return immutable.Append(threads, newThread(dap.Thread{Id: id}))

	case "exited":
		return immutable.RemoveFunc(threads, func(t *Thread) bool { return t.Remote.Id == id })

	default:
		return threads
	}
}
