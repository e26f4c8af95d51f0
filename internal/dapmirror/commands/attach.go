/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	internaldap "github.com/microsoft/dapmirror/internal/dap"
	"github.com/microsoft/dapmirror/internal/dapmirror"
	"github.com/microsoft/dapmirror/internal/debuggee"
	"github.com/microsoft/dapmirror/internal/session"
	"github.com/microsoft/dapmirror/pkg/resiliency"
)

const (
	outlineDelay    = 200 * time.Millisecond
	outlineMaxDelay = 1 * time.Second

	disconnectTimeout = 2 * time.Second
)

func NewAttachCommand(log logr.Logger) *cobra.Command {
	var configFlags *dapmirror.ConfigFlags

	attachCmd := &cobra.Command{
		Use:   "attach",
		Short: "Attaches to a debug adapter and prints the debuggee state as it changes",
		Long: `Attaches to a debug adapter and prints the debuggee state as it changes.

The connection settings are taken from (in increasing order of precedence) built-in defaults,
the configuration profile (--config), the .env file (--env-file), DAPMIRROR_* environment variables,
and command-line flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, cfgErr := configFlags.Resolve()
			if cfgErr != nil {
				return cfgErr
			}
			return runAttach(cmd.Context(), cfg, cmd.OutOrStdout(), log.WithName("attach"))
		},
	}

	configFlags = dapmirror.AddConfigFlags(attachCmd.Flags())

	return attachCmd
}

func runAttach(ctx context.Context, cfg dapmirror.Config, out io.Writer, log logr.Logger) error {
	log.Info("Connecting to debug adapter", "endpoint", cfg.Endpoint, "transport", cfg.Transport)

	transport, dialErr := internaldap.Dial(ctx, internaldap.DialOptions{
		Kind:     cfg.Transport,
		Endpoint: cfg.Endpoint,
		Timeout:  cfg.DialTimeout,
		Logger:   log,
	})
	if dialErr != nil {
		return fmt.Errorf("could not connect to debug adapter at %s: %w", cfg.Endpoint, dialErr)
	}

	s := session.New(session.Config{
		Transport:        transport,
		AdapterID:        cfg.AdapterID,
		ExceptionFilters: cfg.ExceptionFilters,
		Logger:           log.WithName("session"),
	})

	// The session is not tied to ctx directly, so that it can still disconnect when ctx is cancelled.
	sessionCtx, cancelSession := context.WithCancel(context.Background())
	defer cancelSession()

	watcherCtx, cancelWatcher := context.WithCancel(ctx)
	defer cancelWatcher()

	snapshots := make(chan *debuggee.Debuggee)
	s.Store().Subscribe(snapshots)
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		watchSnapshots(watcherCtx, snapshots, out, dapmirror.NewExpander(s, cfg.ExpandDepth, log), log)
	}()

	runResult := make(chan error, 1)
	go func() {
		runResult <- s.Run(sessionCtx)
	}()

	var runErr error
	select {
	case runErr = <-runResult:
	case <-ctx.Done():
		log.Info("Disconnecting from debug adapter")
		disconnectCtx, cancelDisconnect := context.WithTimeout(context.Background(), disconnectTimeout)
		if disconnectErr := s.Disconnect(disconnectCtx); disconnectErr != nil && !session.IsSessionClosedError(disconnectErr) {
			log.Error(disconnectErr, "Could not disconnect cleanly from debug adapter")
		}
		cancelDisconnect()
		cancelSession()
		runErr = <-runResult
	}

	<-watcherDone
	cancelWatcher()

	// Final state, without debouncing
	if outlineErr := dapmirror.WriteOutline(out, s.Store().Snapshot()); outlineErr != nil {
		runErr = errors.Join(runErr, outlineErr)
	}

	return runErr
}

// watchSnapshots prints the state whenever it settles and keeps loading the state of stopped threads.
func watchSnapshots(
	ctx context.Context,
	snapshots <-chan *debuggee.Debuggee,
	out io.Writer,
	expander *dapmirror.Expander,
	log logr.Logger,
) {
	printer := resiliency.NewDebounceLatest(func(d *debuggee.Debuggee) {
		if writeErr := dapmirror.WriteOutline(out, d); writeErr != nil {
			log.Error(writeErr, "Could not write debuggee state")
		}
	}, outlineDelay, outlineMaxDelay)

	for d := range snapshots {
		printer.Run(ctx, d)

		if expandErr := expander.Expand(d); expandErr != nil && !session.IsSessionClosedError(expandErr) {
			log.Error(expandErr, "Could not load debuggee state")
		}
	}
}
