/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	cmds "github.com/microsoft/dapmirror/internal/commands"
	"github.com/microsoft/dapmirror/pkg/logger"
)

func NewRootCommand(logger *logger.Logger) (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		SilenceErrors: true,
		Use:           "dapmirror",
		Short:         "Mirrors the state of a program being debugged through the Debug Adapter Protocol",
		Long: `Mirrors the state of a program being debugged through the Debug Adapter Protocol.

	dapmirror attaches to a debug adapter and keeps a local copy of the debuggee state
	(threads, call stacks, scopes, variables and output) that is updated as the program runs.`,
		SilenceUsage:     true,
		PersistentPreRun: cmds.LogVersion(logger.Logger, "Starting dapmirror..."),
	}

	rootCmd.CompletionOptions.HiddenDefaultCmd = true

	logger.AddLevelFlag(rootCmd.PersistentFlags())

	var err error
	var cmd *cobra.Command

	if cmd, err = cmds.NewVersionCommand(logger.Logger); err != nil {
		return nil, fmt.Errorf("could not set up 'version' command: %w", err)
	} else {
		rootCmd.AddCommand(cmd)
	}

	rootCmd.AddCommand(NewAttachCommand(logger.Logger))

	return rootCmd, nil
}
