// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package clog provides context aware logging.
// It can store a build id and arbitrary labels to each context.
// The main use case is to add project/file context to each log entry automatically.
package clog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/golang/glog"
)

type contextKeyType int

var contextKey contextKeyType

// Severity is a severity of a log entry.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
	Critical
	Emergency
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "INFO"
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	case Critical:
		return "CRITICAL"
	case Emergency:
		return "EMERGENCY"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Entry is a log entry.
type Entry struct {
	Timestamp time.Time
	Severity  Severity
	Payload   any
	Labels    map[string]string
	BuildID   string
}

// DefaultFormatter prefixes the payload with labels, sorted by key.
func DefaultFormatter(e Entry) string {
	if len(e.Labels) == 0 {
		return fmt.Sprintf("%v", e.Payload)
	}
	keys := make([]string, 0, len(e.Labels))
	for k := range e.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s=%s ", k, e.Labels[k])
	}
	fmt.Fprintf(&sb, "%v", e.Payload)
	return sb.String()
}

// New creates a new Logger for the build id.
func New(ctx context.Context, buildID string) *Logger {
	return &Logger{
		Formatter: DefaultFormatter,
		buildID:   buildID,
	}
}

// NewContext sets the given logger to the context.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKey, logger)
}

// NewSpan sets a new logger with the given labels added to the context.
func NewSpan(ctx context.Context, labels map[string]string) context.Context {
	logger := FromContext(ctx)
	return NewContext(ctx, logger.Span(labels))
}

// FromContext returns a logger in the context, or nil if it's not set.
// A nil logger logs with DefaultFormatter.
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey).(*Logger)
	if !ok {
		return nil
	}
	return logger
}

// Logger holds the build id and arbitrary labels of the context.
// It also can have custom formatter to generate a log content.
type Logger struct {
	// Formatter is a formatter of the entry for glog.
	// Default to DefaultFormatter.
	Formatter func(e Entry) string

	buildID string
	labels  map[string]string
}

// Span returns a sub logger with labels merged to the current labels.
func (l *Logger) Span(labels map[string]string) *Logger {
	merged := make(map[string]string)
	var formatter func(Entry) string
	var buildID string
	if l != nil {
		for k, v := range l.labels {
			merged[k] = v
		}
		formatter = l.Formatter
		buildID = l.buildID
	}
	for k, v := range labels {
		merged[k] = v
	}
	return &Logger{
		Formatter: formatter,
		buildID:   buildID,
		labels:    merged,
	}
}

// BuildID returns the build id of the logger.
func (l *Logger) BuildID() string {
	if l == nil {
		return ""
	}
	return l.buildID
}

func (l *Logger) log(e Entry) {
	formatter := DefaultFormatter
	if l != nil && l.Formatter != nil {
		formatter = l.Formatter
	}
	msg := formatter(e)
	switch e.Severity {
	case Info:
		glog.InfoDepth(3, msg)
	case Warning:
		glog.WarningDepth(3, msg)
	case Error:
		glog.ErrorDepth(3, msg)
	case Critical:
		glog.FatalDepth(3, msg)
	case Emergency:
		glog.ExitDepth(3, msg)
	default:
		glog.InfoDepth(3, fmt.Sprintf("%s %s", e.Severity, msg))
	}
}

// Infof logs at info log level in the manner of fmt.Printf.
func (l *Logger) Infof(format string, args ...any) {
	l.log(l.Entry(Info, fmt.Sprintf(format, args...)))
}

// Infof logs at info log level in the manner of fmt.Printf.
func Infof(ctx context.Context, format string, args ...any) {
	logger := FromContext(ctx)
	logger.log(logger.Entry(Info, fmt.Sprintf(format, args...)))
}

// Warningf logs at warning log level in the manner of fmt.Printf.
func (l *Logger) Warningf(format string, args ...any) {
	l.log(l.Entry(Warning, fmt.Sprintf(format, args...)))
}

// Warningf logs at warning log level in the manner of fmt.Printf.
func Warningf(ctx context.Context, format string, args ...any) {
	logger := FromContext(ctx)
	logger.log(logger.Entry(Warning, fmt.Sprintf(format, args...)))
}

// Errorf logs at error log level in the manner of fmt.Printf.
func (l *Logger) Errorf(format string, args ...any) {
	l.log(l.Entry(Error, fmt.Sprintf(format, args...)))
}

// Errorf logs at error log level in the manner of fmt.Printf.
func Errorf(ctx context.Context, format string, args ...any) {
	logger := FromContext(ctx)
	logger.log(logger.Entry(Error, fmt.Sprintf(format, args...)))
}

// Fatalf logs at fatal log level in the manner of fmt.Printf with stacktrace, and exit.
func Fatalf(ctx context.Context, format string, args ...any) {
	logger := FromContext(ctx)
	logger.log(logger.Entry(Critical, fmt.Sprintf(format, args...)))
}

// Exitf logs at fatal log level in the manner of fmt.Printf, and exit.
func Exitf(ctx context.Context, format string, args ...any) {
	logger := FromContext(ctx)
	logger.log(logger.Entry(Emergency, fmt.Sprintf(format, args...)))
}

// Entry creates a new log entry for the given severity.
func (l *Logger) Entry(severity Severity, payload any) Entry {
	e := Entry{
		Timestamp: time.Now(),
		Severity:  severity,
		Payload:   payload,
	}
	if l != nil {
		e.Labels = l.labels
		e.BuildID = l.buildID
	}
	return e
}

// V checks at verbose log level.
func (l *Logger) V(level int) bool {
	return bool(glog.V(glog.Level(level)))
}

// Close closes the logger. it will flush log entries.
func (l *Logger) Close() {
	glog.Flush()
}
