// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classo

import (
	"fmt"
	"io"
	"os"
)

// LogLevel controls the frequency and type of logger output
type LogLevel int

const (
	// LogNoop no output is generated (level < 0)
	LogNoop LogLevel = -1
	// LogLast print only one line when a solve finishes
	LogLast LogLevel = 0
	// LogEval print also the objective, change and scale every `level` iterations (0 < level < 99)
	LogEval LogLevel = 1
	// LogTrace print every path event (join, leave, sample crossing)
	LogTrace LogLevel = 99
	// LogVerbose print also the final coefficient vector to Out
	LogVerbose LogLevel = 101
)

// Logger handles logging output for the solvers.
// Note the writers must be thread-safe when instances are solved from several goroutines.
type Logger struct {
	Level LogLevel
	Msg   io.Writer // Writer to output log messages.
	Out   io.Writer // Writer for output data.
}

func newLogger(l *Logger) Logger {
	if l == nil {
		return Logger{Level: LogNoop}
	}
	c := *l
	if c.Msg == nil {
		c.Msg = os.Stdout
	}
	if c.Out == nil {
		c.Out = os.Stderr
	}
	return c
}

func (l *Logger) enable(level LogLevel) bool {
	return l.Level >= level
}

// every reports whether iteration k falls on the LogEval period.
func (l *Logger) every(k int) bool {
	return l.Level >= LogEval && l.Level < LogTrace && k%int(l.Level) == 0 || l.Level >= LogTrace
}

func (l *Logger) log(format string, a ...any) {
	if len(a) > 0 {
		_, _ = fmt.Fprintf(l.Msg, format, a...)
	} else {
		_, _ = fmt.Fprint(l.Msg, format)
	}
}

func (l *Logger) out(format string, a ...any) {
	if len(a) > 0 {
		_, _ = fmt.Fprintf(l.Out, format, a...)
	} else {
		_, _ = fmt.Fprint(l.Out, format)
	}
}
