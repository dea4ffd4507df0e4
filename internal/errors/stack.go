package errors

import (
	"fmt"
	"runtime"
	"strings"
)

// Frame is one entry of a captured call stack.
type Frame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// String renders the frame as "function (file:line)".
func (f Frame) String() string {
	return fmt.Sprintf("%s (%s:%d)", f.Function, f.File, f.Line)
}

// maxStackDepth bounds the number of frames Callers records.
const maxStackDepth = 64

// Callers captures the stack of the calling goroutine. skip=0 starts at the
// caller of Callers, skip=1 at its caller, and so on.
func Callers(skip int) []Frame {
	pcs := make([]uintptr, maxStackDepth)
	// +2 skips runtime.Callers and Callers itself
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]Frame, 0, n)
	for {
		frame, more := frames.Next()
		// The runtime entry points are never interesting
		if !strings.HasPrefix(frame.Function, "runtime.") {
			stack = append(stack, Frame{
				Function: frame.Function,
				File:     frame.File,
				Line:     frame.Line,
			})
		}
		if !more {
			break
		}
	}
	return stack
}

// FormatStack renders frames one per line, indented, as printed under a fatal error.
func FormatStack(stack []Frame) string {
	var sb strings.Builder
	for _, f := range stack {
		sb.WriteString("    ")
		sb.WriteString(f.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
