// Copyright 2023 @moguf.com All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file

package textsocket

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Logger is a simple logger interface that can have subloggers for specific areas.
type Logger interface {
	Warnf(msg string, args ...interface{})
	Errorf(msg string, args ...interface{})
	Infof(msg string, args ...interface{})
	Debugf(msg string, args ...interface{})
	// Fatalf logs at error level and exits the process with status 1.
	Fatalf(msg string, args ...interface{})
	Warn(msgs ...interface{})
	Error(msgs ...interface{})
	Info(msgs ...interface{})
	Debug(msgs ...interface{})

	Sub(module string) Logger
}

type noopLogger struct{}

func (n *noopLogger) Errorf(_ string, _ ...interface{}) {}
func (n *noopLogger) Warnf(_ string, _ ...interface{})  {}
func (n *noopLogger) Infof(_ string, _ ...interface{})  {}
func (n *noopLogger) Debugf(_ string, _ ...interface{}) {}
func (n *noopLogger) Fatalf(_ string, _ ...interface{}) { exit(1) }
func (n *noopLogger) Warn(_ ...interface{})             {}
func (n *noopLogger) Error(_ ...interface{})            {}
func (n *noopLogger) Info(_ ...interface{})             {}
func (n *noopLogger) Debug(_ ...interface{})            {}

func (n *noopLogger) Sub(_ string) Logger { return n }

// Noop is a no-op Logger implementation that silently drops everything.
var Noop Logger = &noopLogger{}

// Level is a log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel parses a level name case-insensitively. An empty name is
// LevelDebug, so everything is logged.
func ParseLevel(s string) (Level, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return LevelDebug, nil
	}
	for i, name := range levelNames {
		if name == s {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("textsocket: unknown log level %q", s)
}

var colors = map[Level]string{
	LevelInfo:  "\033[36m",
	LevelWarn:  "\033[33m",
	LevelError: "\033[31m",
}

const colorReset = "\033[0m"

// exit is replaced in tests.
var exit = os.Exit

type writerLogger struct {
	mu    *sync.Mutex
	w     io.Writer
	mod   string
	color bool
	min   Level
}

func (s *writerLogger) write(level Level, line string) {
	if level < s.min {
		return
	}
	var colorStart, colorEnd string
	if s.color && colors[level] != "" {
		colorStart, colorEnd = colors[level], colorReset
	}
	s.mu.Lock()
	fmt.Fprintf(s.w, "%s[%s %s] %s%s\n", colorStart, s.mod, level, line, colorEnd)
	s.mu.Unlock()
}

func (s *writerLogger) outputf(level Level, msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	s.write(level, msg)
}

func (s *writerLogger) output(level Level, msgs ...interface{}) {
	line := fmt.Sprintln(msgs...)
	s.write(level, line[:len(line)-1])
}

func (s *writerLogger) Fatalf(msg string, args ...interface{}) {
	s.outputf(LevelError, msg, args...)
	exit(1)
}
func (s *writerLogger) Errorf(msg string, args ...interface{}) { s.outputf(LevelError, msg, args...) }
func (s *writerLogger) Warnf(msg string, args ...interface{})  { s.outputf(LevelWarn, msg, args...) }
func (s *writerLogger) Infof(msg string, args ...interface{})  { s.outputf(LevelInfo, msg, args...) }
func (s *writerLogger) Debugf(msg string, args ...interface{}) { s.outputf(LevelDebug, msg, args...) }
func (s *writerLogger) Warn(msgs ...interface{})               { s.output(LevelWarn, msgs...) }
func (s *writerLogger) Error(msgs ...interface{})              { s.output(LevelError, msgs...) }
func (s *writerLogger) Info(msgs ...interface{})               { s.output(LevelInfo, msgs...) }
func (s *writerLogger) Debug(msgs ...interface{})              { s.output(LevelDebug, msgs...) }

func (s *writerLogger) Sub(mod string) Logger {
	sub := *s
	sub.mod = s.mod + "/" + mod
	return &sub
}

// NewLogger returns a Logger writing lines like "[Module LEVEL] message" to
// w. Sub loggers share w and its lock.
//
// If color is true, then info, warn and error logs will be colored cyan,
// yellow and red respectively using ANSI color escape codes.
func NewLogger(w io.Writer, module string, minLevel Level, color bool) Logger {
	return &writerLogger{mu: &sync.Mutex{}, w: w, mod: module, color: color, min: minLevel}
}

// Stdout is a simple Logger implementation that outputs to stdout. The module name given is included in log lines.
//
// minLevel specifies the minimum log level to output. An empty or unknown
// string will output all logs.
func Stdout(module string, minLevel string, color bool) Logger {
	lvl, _ := ParseLevel(minLevel)
	return NewLogger(os.Stdout, module, lvl, color)
}
