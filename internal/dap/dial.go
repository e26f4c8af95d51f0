/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-logr/logr"

	"github.com/microsoft/dapmirror/pkg/resiliency"
)

// TransportKind selects how the client connects to a debug adapter.
type TransportKind string

const (
	TransportWebSocket TransportKind = "websocket"
	TransportTCP       TransportKind = "tcp"

	defaultDialTimeout = 10 * time.Second
)

func (k TransportKind) Validate() error {
	switch k {
	case TransportWebSocket, TransportTCP:
		return nil
	default:
		return fmt.Errorf("unsupported transport kind '%s' (expected '%s' or '%s')", k, TransportWebSocket, TransportTCP)
	}
}

// DialOptions describes the debug adapter endpoint to connect to.
type DialOptions struct {
	Kind TransportKind

	// Endpoint is a ws:// or wss:// URL for WebSocket, or host:port for TCP.
	Endpoint string

	// Timeout bounds the time spent on connection attempts. Zero means 10 seconds.
	Timeout time.Duration

	Logger logr.Logger
}

// Dial connects to the debug adapter, retrying with exponential back-off until Timeout elapses.
// Only the initial connection is retried; a transport that drops later is not re-established.
func Dial(ctx context.Context, opts DialOptions) (Transport, error) {
	log := opts.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	if err := opts.Kind.Validate(); err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	retryPolicy := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(100*time.Millisecond),
		backoff.WithMaxInterval(2*time.Second),
		backoff.WithMaxElapsedTime(timeout),
	)

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return resiliency.RetryGet(dialCtx, retryPolicy, func() (Transport, error) {
		var transport Transport
		var dialErr error

		switch opts.Kind {
		case TransportTCP:
			transport, dialErr = DialTCP(dialCtx, strings.TrimPrefix(opts.Endpoint, "tcp://"))
		default:
			transport, dialErr = DialWebSocket(dialCtx, opts.Endpoint, nil)
		}

		if dialErr != nil {
			log.V(1).Info("Failed to connect to debug adapter, retrying...", "Endpoint", opts.Endpoint, "Error", dialErr.Error())
			return nil, dialErr
		}

		log.V(1).Info("Connected to debug adapter", "Endpoint", opts.Endpoint, "Transport", string(opts.Kind))
		return transport, nil
	})
}
