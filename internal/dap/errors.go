/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/go-logr/logr"
)

var (
	// ErrMalformedMessage is returned when a raw message is not a valid DAP envelope.
	ErrMalformedMessage = errors.New("malformed DAP message")

	// ErrUnmatchedResponse is returned when a response does not correspond to any pending request.
	ErrUnmatchedResponse = errors.New("unmatched response")

	// ErrTransportClosed is returned when attempting to use a closed transport.
	ErrTransportClosed = errors.New("transport is closed")
)

// IsProtocolError returns true if the error indicates that the session is desynchronized
// from the debug adapter. Protocol errors are not recoverable.
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrMalformedMessage) ||
		errors.Is(err, ErrUnmatchedResponse)
}

// IsClosedError returns true if the error indicates the peer (or we) closed the connection
// in an orderly way.
func IsClosedError(err error) bool {
	return errors.Is(err, ErrTransportClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed)
}

// FilterContextError filters out redundant context errors during shutdown.
// If the error is a context.Canceled or context.DeadlineExceeded and the
// context is already done, the error is logged at debug level and nil is returned.
// Otherwise, the original error is returned unchanged.
func FilterContextError(err error, ctx context.Context, log logr.Logger) error {
	if err == nil {
		return nil
	}

	if ctx.Err() != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.V(1).Info("Filtering redundant context error", "error", err)
			return nil
		}
	}

	return err
}
