package utils

import (
	"fmt"
	"io"
)

// Logger collects verbose per-parse output. A nil *Logger is valid and
// discards everything, so scan code can log unconditionally.
type Logger struct {
	io.Writer
}

func (l *Logger) Println(a ...interface{}) {
	if l != nil {
		fmt.Fprintln(l, a...)
	}
}

func (l *Logger) Printf(format string, a ...interface{}) {
	if l != nil {
		fmt.Fprintf(l, format+"\n", a...)
	}
}
