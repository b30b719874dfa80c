package logger

import (
	"fmt"
	"io"
	"os"
)

// Tracer writes human readable progress lines. A line is written only when
// the tracer level is at least the level requested by the caller.
type Tracer struct {
	Level int
	Out   io.Writer
}

func NewTracer(level int) Tracer {
	return Tracer{Level: level, Out: os.Stdout}
}

// Enabled reports whether lines of the given level are written.
func (t Tracer) Enabled(level int) bool {
	return t.Out != nil && t.Level >= level
}

func (t Tracer) Printf(level int, format string, args ...interface{}) {
	if !t.Enabled(level) {
		return
	}
	fmt.Fprintf(t.Out, format+"\n", args...)
}

// Resultf writes regardless of the level; used for results that are part of
// the program output rather than progress.
func (t Tracer) Resultf(format string, args ...interface{}) {
	if t.Out == nil {
		return
	}
	fmt.Fprintf(t.Out, format+"\n", args...)
}

// Quiet returns a tracer that writes nothing.
func Quiet() Tracer {
	return Tracer{Out: io.Discard}
}
