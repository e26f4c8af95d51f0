// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package session

import (
	"context"
	"fmt"

	"github.com/google/go-dap"

	internaldap "github.com/microsoft/dapmirror/internal/dap"
)

// handshake performs the DAP session setup:
// initialize, wait for the initialized event, setExceptionBreakpoints if there are filters to enable,
// configurationDone, attach, and finally the initial threads request.
// Each step waits for the response to the previous one.
func (s *Session) handshake(ctx context.Context) error {
	// The initialized event may arrive before or after the initialize response.
	initialized := s.expect(func(msg dap.Message) bool {
		_, isInitialized := internaldap.IsEvent(msg, "initialized")
		return isInitialized
	})

	initResp, stepErr := s.handshakeStep(ctx, "initialize", func() dap.RequestMessage {
		return s.requests.Initialize(s.adapterID)
	})
	if stepErr != nil {
		s.waiters.remove(initialized)
		return stepErr
	}

	if _, awaitErr := s.await(ctx, initialized); awaitErr != nil {
		return fmt.Errorf("waiting for initialized event: %w", awaitErr)
	}
	s.log.V(1).Info("Debug adapter initialized")

	type step struct {
		command string
		build   func() dap.RequestMessage
	}
	var steps []step

	if filters := s.exceptionFilters(initResp); len(filters) > 0 {
		steps = append(steps, step{"setExceptionBreakpoints", func() dap.RequestMessage {
			return s.requests.SetExceptionBreakpoints(filters)
		}})
	}
	steps = append(steps,
		step{"configurationDone", func() dap.RequestMessage { return s.requests.ConfigurationDone() }},
		step{"attach", func() dap.RequestMessage { return s.requests.Attach(true) }},
		step{"threads", func() dap.RequestMessage { return s.requests.Threads() }},
	)

	for _, st := range steps {
		if _, stepErr = s.handshakeStep(ctx, st.command, st.build); stepErr != nil {
			return stepErr
		}
	}

	s.log.Info("Debug session ready")
	close(s.ready)
	return nil
}

// exceptionFilters returns the exception filters to enable: the ones configured for the session if any,
// otherwise every filter the debug adapter offers in its capabilities.
func (s *Session) exceptionFilters(initResp dap.ResponseMessage) []string {
	if len(s.filters) > 0 {
		return s.filters
	}

	caps, isInitResp := initResp.(*dap.InitializeResponse)
	if !isInitResp {
		return nil
	}

	var filters []string
	for _, f := range caps.Body.ExceptionBreakpointFilters {
		filters = append(filters, f.Filter)
	}
	return filters
}

func (s *Session) handshakeStep(ctx context.Context, command string, build func() dap.RequestMessage) (dap.ResponseMessage, error) {
	resp, callErr := s.call(ctx, dispatchItem{command: command, build: build})
	if callErr != nil {
		return nil, fmt.Errorf("%s request: %w", command, callErr)
	}
	if !resp.GetResponse().Success {
		return nil, fmt.Errorf("%w: %s request failed: %s", ErrHandshakeFailed, command, failureMessage(resp))
	}
	return resp, nil
}

func failureMessage(resp dap.ResponseMessage) string {
	return internaldap.FailureMessage(resp)
}
