// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package session

import (
	"errors"
)

var (
	// ErrHandshakeFailed is returned when the debug adapter rejects one of the requests
	// that set up the debug session.
	ErrHandshakeFailed = errors.New("debug session handshake failed")

	// ErrSessionClosed is returned when using a session that is no longer running.
	ErrSessionClosed = errors.New("debug session is closed")

	// ErrAlreadyRunning is returned when Run is called more than once.
	ErrAlreadyRunning = errors.New("debug session is already running")
)

func IsHandshakeError(err error) bool {
	return errors.Is(err, ErrHandshakeFailed)
}

func IsSessionClosedError(err error) bool {
	return errors.Is(err, ErrSessionClosed)
}
