// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ui

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// TermUI is a terminal-based UI.
type TermUI struct {
	width int
}

func (t *TermUI) init() {
	t.width, _, _ = term.GetSize(int(os.Stdout.Fd()))
}

// PrintLines implements the ui.UI interface.
// If msgs starts with \n, it will print from the current line.
// Otherwise, it will replace the last N lines, where N is len(msgs).
func (t *TermUI) PrintLines(msgs ...string) {
	var buf bytes.Buffer
	if len(msgs) > 0 && msgs[0] == "\n" {
		msgs = msgs[1:]
	} else {
		for i := 0; i < len(msgs)-1; i++ {
			buf.WriteString("\r\033[K\033[A")
		}
		buf.WriteString("\r\033[K")
	}
	writeLinesMaxWidth(&buf, msgs, t.width)
	os.Stdout.Write(buf.Bytes())
}

func printTerm(w io.Writer, prefix, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if len(msg) == 0 || msg[len(msg)-1] != '\n' {
		msg += "\n"
	}
	// clear the indicator line, if any.
	fmt.Fprintf(w, "\r\033[K%s%s", prefix, msg)
}

// Infof prints a notice to stdout.
func (t *TermUI) Infof(format string, args ...any) {
	printTerm(os.Stdout, "", format, args...)
}

// Warningf prints a warning to stderr.
func (t *TermUI) Warningf(format string, args ...any) {
	printTerm(os.Stderr, SGR(Yellow, "WARNING: "), format, args...)
}

// Errorf prints an error to stderr.
func (t *TermUI) Errorf(format string, args ...any) {
	printTerm(os.Stderr, SGR(Red, "ERROR: "), format, args...)
}

// NewIndicator returns an indicator drawing on stdout.
func (t *TermUI) NewIndicator() *Indicator {
	return NewIndicator(os.Stdout)
}
