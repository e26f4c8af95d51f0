// Copyright (c) Microsoft Corporation. All rights reserved.

package testutil

import (
	"flag"
	"testing"

	"github.com/go-logr/logr"
	"go.uber.org/zap/zapcore"

	"github.com/microsoft/dapmirror/pkg/logger"
)

// NewLogForTesting returns a logger named after the test that only reports errors, unless tests run with -v.
// Buffered log entries are flushed when the test completes.
func NewLogForTesting(t testing.TB) logr.Logger {
	log := logger.New("dapmirror-test")
	log.SetLevel(zapcore.ErrorLevel)
	if !flag.Parsed() {
		flag.Parse() // Needed to test if verbose flag was present.
	}
	if testing.Verbose() {
		log.SetLevel(zapcore.DebugLevel)
	}
	t.Cleanup(log.Flush)

	return log.Logger.WithName(t.Name()).WithValues("test", true)
}
