// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package dapmirror

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/microsoft/dapmirror/internal/debuggee"
	"github.com/microsoft/dapmirror/internal/lazy"
	"github.com/microsoft/dapmirror/pkg/osutil"
)

const outlineIndent = "  "

type outline struct {
	buf bytes.Buffer
}

func (o *outline) line(depth int, format string, args ...any) {
	text := strings.Repeat(outlineIndent, depth) + fmt.Sprintf(format, args...)
	o.buf.Write(osutil.WithNewline([]byte(text)))
}

// status describes a resource that has no items to show. Returns false when the items should be listed.
func status[E comparable](r *lazy.Resource[E]) (string, bool) {
	switch r.State() {
	case lazy.Started:
		return "(loading...)", true
	case lazy.Failure:
		return fmt.Sprintf("(failed: %s)", r.FailureMessage()), true
	case lazy.Success:
		return "", false
	default:
		return "", true
	}
}

// WriteOutline writes the debuggee state as an indented text outline.
func WriteOutline(w io.Writer, d *debuggee.Debuggee) error {
	o := &outline{}

	if s, done := status(d.Threads); done {
		o.line(0, "%s", annotate("Threads", s))
	} else {
		o.line(0, "Threads")
		for _, t := range d.Threads.Items() {
			o.thread(1, t)
		}
	}

	if len(d.Outputs) > 0 {
		o.line(0, "Output (%d)", len(d.Outputs))
		for _, out := range d.Outputs {
			o.line(1, "[%s] %s", outputCategory(out), strings.TrimRight(out.Remote.Output, "\r\n"))
		}
	}

	if d.Terminated {
		o.line(0, "Terminated")
	}

	_, writeErr := w.Write(o.buf.Bytes())
	return writeErr
}

func (o *outline) thread(depth int, t *debuggee.Thread) {
	state := "running"
	if t.Stopped {
		state = "stopped"
	}
	header := fmt.Sprintf("Thread %d %q %s", t.Remote.Id, t.Remote.Name, state)

	if s, done := status(t.StackFrames); done {
		o.line(depth, "%s", annotate(header, s))
		return
	}

	o.line(depth, "%s", header)
	for _, f := range t.StackFrames.Items() {
		o.frame(depth+1, f)
	}
}

func (o *outline) frame(depth int, f *debuggee.StackFrame) {
	header := fmt.Sprintf("#%d %s", f.Remote.Id, f.Remote.Name)
	if f.Remote.Source != nil && f.Remote.Source.Name != "" {
		header = fmt.Sprintf("%s (%s:%d)", header, f.Remote.Source.Name, f.Remote.Line)
	}

	if s, done := status(f.Scopes); done {
		o.line(depth, "%s", annotate(header, s))
		return
	}

	o.line(depth, "%s", header)
	for _, s := range f.Scopes.Items() {
		if st, done := status(s.Variables); done {
			o.line(depth+1, "%s", annotate(s.Remote.Name, st))
			continue
		}
		o.line(depth+1, "%s", s.Remote.Name)
		o.variables(depth+2, s.Variables.Items())
	}
}

func (o *outline) variables(depth int, vars []*debuggee.Variable) {
	for _, v := range vars {
		text := fmt.Sprintf("%s = %s", v.Remote.Name, v.Remote.Value)
		if v.Remote.Type != "" {
			text = fmt.Sprintf("%s (%s)", text, v.Remote.Type)
		}

		if s, done := status(v.Variables); done {
			o.line(depth, "%s", annotate(text, s))
			continue
		}

		o.line(depth, "%s", text)
		o.variables(depth+1, v.Variables.Items())
	}
}

func annotate(text, note string) string {
	if note == "" {
		return text
	}
	return text + " " + note
}

func outputCategory(out *debuggee.OutputRecord) string {
	if out.Remote.Category == "" {
		return "console"
	}
	return out.Remote.Category
}
