/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldap "github.com/microsoft/dapmirror/internal/dap"
	"github.com/microsoft/dapmirror/internal/dapmirror"
	"github.com/microsoft/dapmirror/pkg/logger"
	"github.com/microsoft/dapmirror/pkg/testutil"
)

// scriptedAdapter accepts one connection and completes the DAP handshake,
// reporting a single stopped thread. It closes the connection after answering `last` requests.
func scriptedAdapter(t *testing.T, listener net.Listener, last int) <-chan error {
	result := make(chan error, 1)

	go func() {
		result <- func() error {
			conn, acceptErr := listener.Accept()
			if acceptErr != nil {
				return acceptErr
			}
			transport := internaldap.NewTCPTransport(conn)
			defer transport.Close()

			seq := 0
			send := func(envelope map[string]any) error {
				seq++
				envelope["seq"] = seq
				raw, _ := json.Marshal(envelope)
				msg, classifyErr := internaldap.Classify(raw)
				if classifyErr != nil {
					return classifyErr
				}
				return transport.WriteMessage(msg)
			}

			for answered := 0; answered < last; answered++ {
				msg, readErr := transport.ReadMessage()
				if readErr != nil {
					return readErr
				}
				req, isReq := msg.(dap.RequestMessage)
				if !isReq {
					return fmt.Errorf("unexpected message %T", msg)
				}

				var body any
				switch req.GetRequest().Command {
				case "threads":
					body = map[string]any{"threads": []map[string]any{{"id": 1, "name": "main"}}}
				case "stackTrace":
					body = map[string]any{"stackFrames": []map[string]any{{"id": 100, "name": "main.main", "line": 7, "column": 1}}}
				}

				respErr := send(map[string]any{
					"type":        "response",
					"request_seq": req.GetSeq(),
					"command":     req.GetRequest().Command,
					"success":     true,
					"body":        body,
				})
				if respErr != nil {
					return respErr
				}

				switch req.GetRequest().Command {
				case "initialize":
					if evtErr := send(map[string]any{"type": "event", "event": "initialized"}); evtErr != nil {
						return evtErr
					}
				case "threads":
					stopped := map[string]any{"reason": "entry", "threadId": 1}
					if evtErr := send(map[string]any{"type": "event", "event": "stopped", "body": stopped}); evtErr != nil {
						return evtErr
					}
				}
			}
			return nil
		}()
	}()

	return result
}

func TestAttachPrintsExpandedState(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 20*time.Second)
	defer cancel()

	listener, listenErr := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, listenErr)
	defer listener.Close()

	// initialize, configurationDone, attach, threads, stackTrace
	adapterResult := scriptedAdapter(t, listener, 5)

	cfg := dapmirror.DefaultConfig()
	cfg.Transport = internaldap.TransportTCP
	cfg.Endpoint = listener.Addr().String()
	cfg.ExpandDepth = 1

	var out bytes.Buffer
	runErr := runAttach(ctx, cfg, &out, testutil.NewLogForTesting(t))
	require.NoError(t, runErr)
	require.NoError(t, <-adapterResult)

	printed := out.String()
	assert.Contains(t, printed, `Thread 1 "main" stopped`)
	assert.Contains(t, printed, `#100 main.main`)
}

func TestAttachFailsWhenAdapterIsUnreachable(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 20*time.Second)
	defer cancel()

	listener, listenErr := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, listenErr)
	address := listener.Addr().String()
	require.NoError(t, listener.Close())

	cfg := dapmirror.DefaultConfig()
	cfg.Transport = internaldap.TransportTCP
	cfg.Endpoint = address
	cfg.DialTimeout = 300 * time.Millisecond

	var out bytes.Buffer
	runErr := runAttach(ctx, cfg, &out, testutil.NewLogForTesting(t))
	require.Error(t, runErr)
	assert.Contains(t, runErr.Error(), address)
	assert.Empty(t, out.String())
}

func TestRootCommandHasSubcommands(t *testing.T) {
	t.Parallel()

	root, err := NewRootCommand(logger.New("dapmirror-test"))
	require.NoError(t, err)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"attach", "version"}, names)

	attach, _, findErr := root.Find([]string{"attach"})
	require.NoError(t, findErr)
	for _, flag := range []string{"endpoint", "transport", "adapter-id", "dial-timeout", "expand", "exception-filter", "config", "env-file"} {
		assert.NotNil(t, attach.Flags().Lookup(flag), "attach should have --%s", flag)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("verbosity"))
}
