/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/go-dap"
	"github.com/gorilla/websocket"
)

const closeMessageTimeout = 100 * time.Millisecond

// webSocketTransport implements Transport over a WebSocket connection.
// Every text or binary frame carries exactly one JSON encoded DAP message; there is no Content-Length framing.
type webSocketTransport struct {
	conn *websocket.Conn

	// writeMu serializes data frame writes; gorilla supports only one concurrent writer.
	writeMu sync.Mutex

	closed bool
	mu     sync.Mutex
}

// NewWebSocketTransport creates a new Transport backed by an established WebSocket connection.
func NewWebSocketTransport(conn *websocket.Conn) Transport {
	return &webSocketTransport{conn: conn}
}

// DialWebSocket connects to a WebSocket debug endpoint such as ws://localhost:3979/debug-server.
func DialWebSocket(ctx context.Context, url string, headers http.Header) (Transport, error) {
	conn, resp, dialErr := websocket.DefaultDialer.DialContext(ctx, url, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if dialErr != nil {
		return nil, fmt.Errorf("failed to dial WebSocket %s: %w", url, dialErr)
	}

	return NewWebSocketTransport(conn), nil
}

func (t *webSocketTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *webSocketTransport) ReadMessage() (dap.Message, error) {
	for {
		if t.isClosed() {
			return nil, ErrTransportClosed
		}

		msgType, content, readErr := t.conn.ReadMessage()

		var closeErr *websocket.CloseError
		if errors.As(readErr, &closeErr) {
			if closeErr.Code == websocket.CloseNormalClosure || closeErr.Code == websocket.CloseGoingAway {
				return nil, fmt.Errorf("%w: %w", ErrTransportClosed, readErr)
			}
			return nil, fmt.Errorf("WebSocket closed by peer: %w", readErr)
		}

		if readErr != nil {
			if t.isClosed() {
				return nil, fmt.Errorf("%w: %w", ErrTransportClosed, readErr)
			}
			return nil, fmt.Errorf("failed to read WebSocket message: %w", readErr)
		}

		switch msgType {
		// Ping, pong and close frames are handled by the gorilla library
		case websocket.TextMessage, websocket.BinaryMessage:
			return Classify(content)
		}
	}
}

func (t *webSocketTransport) WriteMessage(msg dap.Message) error {
	if t.isClosed() {
		return ErrTransportClosed
	}

	content, marshalErr := json.Marshal(msg)
	if marshalErr != nil {
		return fmt.Errorf("failed to serialize DAP message: %w", marshalErr)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if writeErr := t.conn.WriteMessage(websocket.TextMessage, content); writeErr != nil {
		return fmt.Errorf("failed to write WebSocket message: %w", writeErr)
	}

	return nil
}

func (t *webSocketTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	t.closed = true

	// Closing the connection is a best-effort operation; the peer may already be gone.
	_ = t.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeMessageTimeout),
	)

	return t.conn.Close()
}
