// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package dapmirror

import (
	"errors"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/go-dap"

	"github.com/microsoft/dapmirror/internal/debuggee"
	"github.com/microsoft/dapmirror/internal/lazy"
)

// Loader issues requests that load parts of the debuggee state.
type Loader interface {
	LoadStackFrames(threadID int) error
	LoadScopes(frameID int) error
	LoadVariables(variablesReference int) error
}

const (
	expandStackFrames = 1
	expandScopes      = 2
	expandVariables   = 3
)

type loadKind int

const (
	loadStackFrames loadKind = iota
	loadScopes
	loadVariables
)

type load struct {
	kind loadKind
	id   int
}

// Expander loads the state of stopped threads as soon as it becomes reachable, down to a fixed depth:
// 1 loads stack frames, 2 also loads the scopes of the top frame, 3 also loads the variables
// of those scopes, and every further level loads one more level of structured variables.
// Expensive scopes are never loaded automatically.
//
// Every stop of a thread is expanded afresh, including stops that follow a step without a
// continued event in between, so what is shown never belongs to an earlier stop.
type Expander struct {
	loader Loader
	depth  int
	log    logr.Logger

	lock  sync.Mutex
	stops map[int]*stopProgress
}

// stopProgress tracks the loads issued for one stop of a thread.
// For each load it keeps the response the resource held when the load was issued;
// the load is complete once the resource holds a different one.
type stopProgress struct {
	stop   *debuggee.StopRecord
	issued map[load]dap.ResponseMessage
}

func NewExpander(loader Loader, depth int, log logr.Logger) *Expander {
	return &Expander{
		loader: loader,
		depth:  depth,
		log:    log,
		stops:  map[int]*stopProgress{},
	}
}

// Expand issues the loads that the snapshot makes possible. A resource is loaded at most once
// per stop, so calling Expand with every snapshot does not repeat requests.
func (e *Expander) Expand(d *debuggee.Debuggee) error {
	e.lock.Lock()
	loads := e.planLoads(d)
	e.lock.Unlock()

	var errs []error
	for _, l := range loads {
		var loadErr error
		switch l.kind {
		case loadStackFrames:
			e.log.V(1).Info("Loading stack frames", "threadId", l.id)
			loadErr = e.loader.LoadStackFrames(l.id)
		case loadScopes:
			e.log.V(1).Info("Loading scopes", "frameId", l.id)
			loadErr = e.loader.LoadScopes(l.id)
		case loadVariables:
			e.log.V(1).Info("Loading variables", "variablesReference", l.id)
			loadErr = e.loader.LoadVariables(l.id)
		}
		if loadErr != nil {
			errs = append(errs, loadErr)
		}
	}

	return errors.Join(errs...)
}

func (e *Expander) planLoads(d *debuggee.Debuggee) []load {
	if d == nil || e.depth < expandStackFrames {
		return nil
	}

	var loads []load
	for _, t := range d.Threads.Items() {
		if !t.Stopped || t.Stop == nil {
			delete(e.stops, t.Remote.Id)
			continue
		}

		progress := e.stops[t.Remote.Id]
		if progress == nil || progress.stop != t.Stop {
			progress = &stopProgress{stop: t.Stop, issued: map[load]dap.ResponseMessage{}}
			e.stops[t.Remote.Id] = progress
		}

		if !loaded(progress, &loads, load{loadStackFrames, t.Remote.Id}, t.StackFrames) {
			continue
		}

		frames := t.StackFrames.Items()
		if e.depth < expandScopes || len(frames) == 0 {
			continue
		}

		top := frames[0]
		if !loaded(progress, &loads, load{loadScopes, top.Remote.Id}, top.Scopes) || e.depth < expandVariables {
			continue
		}

		for _, s := range top.Scopes.Items() {
			if s.Remote.VariablesReference == 0 || s.Remote.Expensive {
				continue
			}
			if loaded(progress, &loads, load{loadVariables, s.Remote.VariablesReference}, s.Variables) {
				loads = planVariables(progress, loads, s.Variables.Items(), e.depth-expandVariables)
			}
		}
	}

	for id := range e.stops {
		if d.Thread(id) == nil {
			delete(e.stops, id)
		}
	}

	return loads
}

func planVariables(progress *stopProgress, loads []load, vars []*debuggee.Variable, remaining int) []load {
	if remaining <= 0 {
		return loads
	}

	for _, v := range vars {
		if !v.HasChildren() {
			continue
		}
		if loaded(progress, &loads, load{loadVariables, v.Remote.VariablesReference}, v.Variables) {
			loads = planVariables(progress, loads, v.Variables.Items(), remaining-1)
		}
	}

	return loads
}

// loaded reports whether r holds data fetched during the current stop.
// If r was not loaded during this stop yet, a load is planned, unless a request for r is already in flight.
func loaded[E comparable](progress *stopProgress, loads *[]load, l load, r *lazy.Resource[E]) bool {
	before, issued := progress.issued[l]
	if !issued {
		if !r.InFlight() {
			progress.issued[l] = r.Response()
			*loads = append(*loads, l)
		}
		return false
	}

	return r.Response() != before && r.State() == lazy.Success && !r.InFlight()
}
