/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

// Package session runs a DAP client session against a debug adapter and keeps a
// debuggee.Store in sync with every message exchanged.
//
// A running session consists of these goroutines:
//   - the reader, which reads and classifies adapter messages,
//   - the event loop, which is the only writer of the store and the only place where
//     requests are registered, so that a request is always known before its response,
//   - the writer, which serializes requests to the transport,
//   - the handshake, which sets up the session and then exits,
//   - the thread watcher, which refreshes thread names when new threads start.
package session

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	"github.com/google/go-dap"
	"github.com/google/uuid"
	"github.com/smallnest/chanx"

	internaldap "github.com/microsoft/dapmirror/internal/dap"
	"github.com/microsoft/dapmirror/internal/debuggee"
	"github.com/microsoft/dapmirror/internal/pubsub"
	"github.com/microsoft/dapmirror/pkg/resiliency"
)

const initialQueueCapacity = 16

// Config holds the configuration for creating a Session.
type Config struct {
	// Transport is the connection to the debug adapter. The session owns it and closes it when Run returns.
	Transport internaldap.Transport

	// AdapterID is sent to the debug adapter with the initialize request.
	AdapterID string

	// ExceptionFilters, if not empty, are the exception filters enabled with setExceptionBreakpoints
	// during the handshake. Otherwise every filter the adapter reports in its capabilities is enabled.
	ExceptionFilters []string

	// Logger for session operations. Message traffic is logged at V(1).
	Logger logr.Logger

	// Store receives the mirrored debuggee state. If nil, the session creates its own.
	Store *debuggee.Store
}

// dispatchItem is a request waiting to be registered and sent by the event loop.
type dispatchItem struct {
	command string

	// Either request or build is set. Either way the request gets its sequence number
	// in the event loop, at the time it is sent.
	request dap.RequestMessage
	build   func() dap.RequestMessage

	// sent, if set, is called by the event loop once the request is numbered and registered.
	sent func(dap.RequestMessage)

	// inFlight, if set, reports whether an equivalent request is still unanswered.
	// Such requests are dropped instead of being sent again.
	inFlight func(*debuggee.Debuggee) bool
}

type Session struct {
	id        string
	transport internaldap.Transport
	adapterID string
	filters   []string
	store     *debuggee.Store
	ownsStore bool
	log       logr.Logger

	requests *internaldap.RequestBuilder
	pending  *internaldap.PendingRequests
	waiters  *waiterList

	// Subscriptions to every message received from the adapter
	messages *pubsub.SubscriptionSet[dap.Message]

	lifetimeCtx    context.Context
	lifetimeCancel context.CancelFunc

	inbox         *chanx.UnboundedChan[dap.Message]
	dispatchQueue *chanx.UnboundedChan[dispatchItem]
	writeQueue    *chanx.UnboundedChan[dap.RequestMessage]

	started atomic.Bool
	ready   chan struct{}
	done    chan struct{}
}

// New creates a session. Nothing is sent to the debug adapter until Run is called.
func New(config Config) *Session {
	id := uuid.NewString()

	log := config.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	store := config.Store
	ownsStore := store == nil
	if ownsStore {
		store = debuggee.NewStore()
	}

	lifetimeCtx, lifetimeCancel := context.WithCancel(context.Background())

	return &Session{
		id:             id,
		transport:      config.Transport,
		adapterID:      config.AdapterID,
		filters:        slices.Clone(config.ExceptionFilters),
		store:          store,
		ownsStore:      ownsStore,
		log:            log.WithValues("session", id),
		requests:       internaldap.NewRequestBuilder(),
		pending:        internaldap.NewPendingRequests(),
		waiters:        &waiterList{},
		messages:       pubsub.NewSubscriptionSet[dap.Message](),
		lifetimeCtx:    lifetimeCtx,
		lifetimeCancel: lifetimeCancel,
		inbox:          chanx.NewUnboundedChan[dap.Message](lifetimeCtx, initialQueueCapacity),
		dispatchQueue:  chanx.NewUnboundedChan[dispatchItem](lifetimeCtx, initialQueueCapacity),
		writeQueue:     chanx.NewUnboundedChan[dap.RequestMessage](lifetimeCtx, initialQueueCapacity),
		ready:          make(chan struct{}),
		done:           make(chan struct{}),
	}
}

// ID returns the unique identifier of the session, used to correlate log entries.
func (s *Session) ID() string {
	return s.id
}

// Store returns the store that mirrors the debuggee state.
func (s *Session) Store() *debuggee.Store {
	return s.store
}

// Requests returns the builder that assigns sequence numbers for this session.
// Requests passed to Dispatch may be created with it; they are renumbered when sent.
func (s *Session) Requests() *internaldap.RequestBuilder {
	return s.requests
}

// Ready is closed when the handshake completes and the initial thread list was loaded.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Subscribe delivers every message received from the debug adapter to sink, in order.
// The sink is closed when the subscription is cancelled or the session ends.
func (s *Session) Subscribe(sink chan<- dap.Message) *pubsub.Subscription[dap.Message] {
	return s.messages.Subscribe(sink)
}

// Run starts the session and blocks until it ends.
//
// Run returns nil when ctx is cancelled or when the debug adapter closes the connection
// in an orderly way (after all messages received so far were applied to the store).
// It returns an error if the handshake fails, if the adapter sends a message that cannot be
// parsed or a response that does not match any request, or if the transport fails.
func (s *Session) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(s.done)

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()

	s.log.Info("Starting debug session", "adapterID", s.adapterID)

	// Subscribe before the reader starts so that no thread event can be missed.
	threadEvents := make(chan dap.Message, initialQueueCapacity)
	s.messages.Subscribe(threadEvents)

	var wg sync.WaitGroup
	errChan := make(chan error, 3)
	readerResult := make(chan error, 1)
	loopDone := make(chan error, 1)

	wg.Add(5)

	go func() {
		defer wg.Done()
		readErr := s.readMessages(runCtx)
		readerResult <- readErr
		// Let the event loop process what was received so far, then stop.
		close(s.inbox.In)
	}()

	go func() {
		defer wg.Done()
		loopDone <- resiliency.CatchPanic(s.log, func() error { return s.processMessages(runCtx) })
	}()

	go func() {
		defer wg.Done()
		if writeErr := s.writeMessages(runCtx); writeErr != nil {
			errChan <- fmt.Errorf("writer: %w", writeErr)
		}
	}()

	go func() {
		defer wg.Done()
		handshakeErr := resiliency.CatchPanic(s.log, func() error { return s.handshake(runCtx) })
		if handshakeErr != nil && runCtx.Err() == nil {
			errChan <- handshakeErr
		}
	}()

	go func() {
		defer wg.Done()
		s.watchThreads(runCtx, threadEvents)
	}()

	var result error
	select {
	case <-ctx.Done():
		s.log.Info("Debug session context cancelled")

	case loopErr := <-loopDone:
		if loopErr != nil {
			result = loopErr
			break
		}
		select {
		case readErr := <-readerResult:
			result = readErr
		default:
		}
		if result == nil {
			s.log.Info("Debug adapter closed the connection")
		}

	case result = <-errChan:
	}

	if result != nil {
		s.log.Error(result, "Debug session failed")
	}

	runCancel()
	s.shutdown()
	wg.Wait()

	s.messages.CancelAll()
	for _, req := range s.pending.Drain() {
		s.log.V(1).Info("Request was never answered", "command", req.GetRequest().Command, "seq", req.GetSeq())
	}
	if s.ownsStore {
		s.store.Close()
	}

	return internaldap.FilterContextError(result, ctx, s.log)
}

func (s *Session) shutdown() {
	if closeErr := s.transport.Close(); closeErr != nil && !internaldap.IsClosedError(closeErr) {
		s.log.Error(closeErr, "Error closing debug adapter transport")
	}
	s.lifetimeCancel()
	s.waiters.closeAll()
}

// readMessages reads messages from the debug adapter until the transport is closed.
func (s *Session) readMessages(ctx context.Context) error {
	for {
		msg, readErr := s.transport.ReadMessage()
		if readErr != nil {
			if ctx.Err() != nil || internaldap.IsClosedError(readErr) {
				return nil
			}
			return fmt.Errorf("failed to read from debug adapter: %w", readErr)
		}

		s.log.V(1).Info("Received message", "type", fmt.Sprintf("%T", msg), "seq", msg.GetSeq())

		select {
		case s.inbox.In <- msg:
		case <-ctx.Done():
			return nil
		}
	}
}

// processMessages is the event loop. It is the only goroutine that updates the store.
func (s *Session) processMessages(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case msg, ok := <-s.inbox.Out:
			if !ok {
				return nil
			}
			if handleErr := s.handleIncoming(msg); handleErr != nil {
				return handleErr
			}

		case item, ok := <-s.dispatchQueue.Out:
			if !ok {
				return nil
			}
			s.handleOutgoing(ctx, item)
		}
	}
}

func (s *Session) handleIncoming(msg dap.Message) error {
	switch m := msg.(type) {
	case dap.ResponseMessage:
		s.store.Apply(msg)

		correlation, correlateErr := internaldap.Correlate(m, s.pending)
		if correlateErr != nil {
			return correlateErr
		}
		if !m.GetResponse().Success {
			s.log.V(1).Info("Request failed",
				"command", m.GetResponse().Command,
				"seq", correlation.Request.GetSeq(),
				"message", internaldap.FailureMessage(m))
		}

	case dap.EventMessage:
		s.store.Apply(msg)

	case dap.RequestMessage:
		// Reverse requests (runInTerminal, startDebugging) are not supported by this client.
		s.log.Info("Ignoring request from debug adapter", "command", m.GetRequest().Command)
	}

	s.waiters.deliver(msg)
	s.messages.Notify(msg)
	return nil
}

func (s *Session) handleOutgoing(ctx context.Context, item dispatchItem) {
	if item.inFlight != nil && item.inFlight(s.store.Snapshot()) {
		s.log.V(1).Info("Request not sent, a previous one is still in flight", "command", item.command)
		return
	}

	var req dap.RequestMessage
	if item.build != nil {
		req = item.build()
	} else {
		req = item.request
		s.requests.Renumber(req)
	}

	// Register first, so that the response finds the request no matter how quickly it arrives.
	s.pending.Add(req)
	s.store.Apply(req)
	if item.sent != nil {
		item.sent(req)
	}

	select {
	case s.writeQueue.In <- req:
	case <-ctx.Done():
	}
}

// writeMessages serializes queued requests to the debug adapter.
func (s *Session) writeMessages(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case req, ok := <-s.writeQueue.Out:
			if !ok {
				return nil
			}

			if writeErr := s.transport.WriteMessage(req); writeErr != nil {
				if ctx.Err() != nil || internaldap.IsClosedError(writeErr) {
					// The reader will observe the closed connection and end the session.
					return nil
				}
				return fmt.Errorf("failed to write %s request: %w", req.GetRequest().Command, writeErr)
			}

			s.log.V(1).Info("Sent request", "command", req.GetRequest().Command, "seq", req.GetSeq())
		}
	}
}

// watchThreads refreshes the thread list whenever a thread starts, because thread events do not carry names.
func (s *Session) watchThreads(ctx context.Context, events <-chan dap.Message) {
	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-events:
			if !ok {
				return
			}
			evt, isThreadEvt := internaldap.As[*dap.ThreadEvent](msg)
			if !isThreadEvt || evt.Body.Reason != "started" {
				continue
			}

			s.log.V(1).Info("Thread started, refreshing thread list", "threadId", evt.Body.ThreadId)
			if dispatchErr := s.send("threads", func() dap.RequestMessage { return s.requests.Threads() }); dispatchErr != nil {
				return
			}
		}
	}
}

func (s *Session) enqueue(item dispatchItem) error {
	select {
	case <-s.lifetimeCtx.Done():
		return ErrSessionClosed
	default:
	}

	select {
	case s.dispatchQueue.In <- item:
		return nil
	case <-s.lifetimeCtx.Done():
		return ErrSessionClosed
	}
}

// expect registers interest in the next message matching the predicate.
// Register before sending the request that triggers the message.
func (s *Session) expect(matches func(dap.Message) bool) *waiter {
	return s.waiters.add(matches)
}

// await waits for the message registered with expect.
func (s *Session) await(ctx context.Context, w *waiter) (dap.Message, error) {
	return s.waiters.await(ctx, w)
}
