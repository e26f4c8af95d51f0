/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-dap"
)

const (
	messageTypeRequest  = "request"
	messageTypeResponse = "response"
	messageTypeEvent    = "event"

	genericFailureMessage = "request failed"
)

// GenericRequest is a request for a command that go-dap has no typed struct for.
type GenericRequest struct {
	dap.Request
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// GenericResponse is a response to a command that go-dap has no typed struct for.
type GenericResponse struct {
	dap.Response
	Body json.RawMessage `json:"body,omitempty"`
}

// GenericEvent is an event that go-dap has no typed struct for.
type GenericEvent struct {
	dap.Event
	Body json.RawMessage `json:"body,omitempty"`
}

// Classify decodes a single raw DAP envelope.
//
// Known commands and events decode to their typed go-dap structs (a failed response always decodes
// to *dap.ErrorResponse). Commands and events that go-dap does not know about decode to
// GenericRequest, GenericResponse or GenericEvent so that they can still flow through the session.
// Anything else is reported as ErrMalformedMessage.
func Classify(raw []byte) (dap.Message, error) {
	msg, decodeErr := dap.DecodeProtocolMessage(raw)
	if decodeErr == nil {
		return msg, nil
	}

	var fieldErr *dap.DecodeProtocolMessageFieldError
	if !errors.As(decodeErr, &fieldErr) || (fieldErr.FieldName != "command" && fieldErr.FieldName != "event") {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, decodeErr)
	}

	var generic dap.Message
	switch fieldErr.SubType {
	case messageTypeRequest:
		generic = &GenericRequest{}
	case messageTypeResponse:
		generic = &GenericResponse{}
	case messageTypeEvent:
		generic = &GenericEvent{}
	default:
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, decodeErr)
	}

	if err := json.Unmarshal(raw, generic); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if fieldErr.FieldValue == "" {
		return nil, fmt.Errorf("%w: %s message is missing the '%s' property", ErrMalformedMessage, fieldErr.SubType, fieldErr.FieldName)
	}

	return generic, nil
}

// As narrows a message to a concrete go-dap type.
func As[T dap.Message](msg dap.Message) (T, bool) {
	typed, ok := msg.(T)
	return typed, ok
}

// IsRequest returns the message as a request if it is a request for the given command.
func IsRequest(msg dap.Message, command string) (dap.RequestMessage, bool) {
	req, ok := msg.(dap.RequestMessage)
	if !ok || req.GetRequest().Command != command {
		return nil, false
	}
	return req, true
}

// IsResponse returns the message as a response if it is a response (successful or not) to the given command.
func IsResponse(msg dap.Message, command string) (dap.ResponseMessage, bool) {
	resp, ok := msg.(dap.ResponseMessage)
	if !ok || resp.GetResponse().Command != command {
		return nil, false
	}
	return resp, true
}

// IsEvent returns the message as an event if it is the named event.
func IsEvent(msg dap.Message, event string) (dap.EventMessage, bool) {
	evt, ok := msg.(dap.EventMessage)
	if !ok || evt.GetEvent().Event != event {
		return nil, false
	}
	return evt, true
}

// Correlation pairs a response with the request that caused it.
type Correlation struct {
	Request  dap.RequestMessage
	Response dap.ResponseMessage
}

// Correlate looks up the request that the response answers and removes it from the pending map.
// A response with no pending request, or one answering a different command, means the session
// is desynchronized and yields ErrUnmatchedResponse.
func Correlate(resp dap.ResponseMessage, pending *PendingRequests) (Correlation, error) {
	r := resp.GetResponse()
	req := pending.Take(r.RequestSeq)
	if req == nil {
		return Correlation{}, fmt.Errorf("%w: no pending request with seq %d for '%s' response", ErrUnmatchedResponse, r.RequestSeq, r.Command)
	}

	if cmd := req.GetRequest().Command; cmd != r.Command {
		return Correlation{}, fmt.Errorf("%w: '%s' response answers request %d which is a '%s' request", ErrUnmatchedResponse, r.Command, r.RequestSeq, cmd)
	}

	return Correlation{Request: req, Response: resp}, nil
}

// FailureMessage returns the text that describes why a request failed.
// The response message takes precedence, then the formatted error body, then a generic label.
func FailureMessage(resp dap.ResponseMessage) string {
	if resp == nil {
		return genericFailureMessage
	}

	if msg := resp.GetResponse().Message; msg != "" {
		return msg
	}

	if errResp, ok := resp.(*dap.ErrorResponse); ok && errResp.Body.Error != nil && errResp.Body.Error.Format != "" {
		return formatErrorMessage(errResp.Body.Error)
	}

	return genericFailureMessage
}

// formatErrorMessage substitutes {name} placeholders in the error format with their variable values.
func formatErrorMessage(em *dap.ErrorMessage) string {
	if len(em.Variables) == 0 {
		return em.Format
	}

	replacements := make([]string, 0, 2*len(em.Variables))
	for name, value := range em.Variables {
		replacements = append(replacements, "{"+name+"}", value)
	}
	return strings.NewReplacer(replacements...).Replace(em.Format)
}
