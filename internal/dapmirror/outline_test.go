// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package dapmirror

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microsoft/dapmirror/pkg/osutil"
)

func outlineOf(t *testing.T, m *mirror) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteOutline(&buf, m.state))
	return buf.String()
}

func lines(l ...string) string {
	sep := string(osutil.LineSep())
	return strings.Join(l, sep) + sep
}

func TestOutlineOfEmptySession(t *testing.T) {
	t.Parallel()

	m := newMirror(t)
	assert.Equal(t, lines("Threads"), outlineOf(t, m))

	m.send(m.requests.Threads())
	assert.Equal(t, lines("Threads (loading...)"), outlineOf(t, m))
}

func TestOutline(t *testing.T) {
	t.Parallel()

	m := newMirror(t)
	m.loadThreads(map[string]any{"id": 1, "name": "main"}, map[string]any{"id": 2, "name": "worker"})
	m.event("stopped", map[string]any{"reason": "breakpoint", "threadId": 1})

	st := m.send(m.requests.StackTrace(1))
	m.respond(st, map[string]any{"stackFrames": []map[string]any{
		{"id": 100, "name": "main.main", "line": 12, "column": 1, "source": map[string]any{"name": "main.go"}},
		{"id": 101, "name": "runtime.main", "line": 250, "column": 1},
	}})

	sc := m.send(m.requests.Scopes(100))
	m.respond(sc, map[string]any{"scopes": []map[string]any{
		{"name": "Locals", "variablesReference": 1000, "expensive": false},
		{"name": "Globals", "variablesReference": 2000, "expensive": true},
	}})

	vr := m.send(m.requests.Variables(1000))
	m.respond(vr, map[string]any{"variables": []map[string]any{
		{"name": "x", "value": "1", "type": "int", "variablesReference": 0},
		{"name": "s", "value": "{...}", "type": "main.S", "variablesReference": 1001},
		{"name": "err", "value": "error(nil)", "variablesReference": 1002},
	}})

	nested := m.send(m.requests.Variables(1001))
	m.respond(nested, map[string]any{"variables": []map[string]any{
		{"name": "name", "value": `"mirror"`, "type": "string", "variablesReference": 0},
	}})
	m.fail(m.send(m.requests.Variables(1002)), "cannot read memory")

	m.event("output", map[string]any{"category": "stdout", "output": "hello\n"})
	m.event("output", map[string]any{"output": "adapter says hi\n"})

	expected := lines(
		`Threads`,
		`  Thread 1 "main" stopped`,
		`    #100 main.main (main.go:12)`,
		`      Locals`,
		`        x = 1 (int)`,
		`        s = {...} (main.S)`,
		`          name = "mirror" (string)`,
		`        err = error(nil) (failed: cannot read memory)`,
		`      Globals`,
		`    #101 runtime.main`,
		`  Thread 2 "worker" running`,
		`Output (2)`,
		`  [stdout] hello`,
		`  [console] adapter says hi`,
	)
	assert.Equal(t, expected, outlineOf(t, m))

	m.event("terminated", nil)
	assert.True(t, strings.HasSuffix(outlineOf(t, m), lines("Terminated")))
}
