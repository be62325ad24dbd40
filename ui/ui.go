// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package ui provides user interface functionalities.
package ui

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// UI is a user interface.
type UI interface {
	// PrintLines prints message lines.
	// If msgs starts with \n, it will print from the current line.
	// Otherwise, it will replaces the last N lines, where N is len(msgs).
	PrintLines(msgs ...string)

	// Infof reports a notice to the user.
	Infof(format string, args ...any)
	// Warningf reports a warning to the user.
	Warningf(format string, args ...any)
	// Errorf reports an error to the user.
	Errorf(format string, args ...any)

	// NewIndicator returns a progress indicator.
	// It may return nil, which is a no-op indicator.
	NewIndicator() *Indicator
}

// Default holds the default UI interface.
// Making changes to this variable after init is undefined behavior.
var Default UI

func init() {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		termUI := &TermUI{}
		termUI.init()
		Default = termUI
	} else {
		Default = &LogUI{}
	}
}

// IsTerminal returns whether currently using a terminal UI.
func IsTerminal() bool {
	_, ok := Default.(*TermUI)
	return ok
}

func writeLinesMaxWidth(buf *bytes.Buffer, msgs []string, width int) {
	for i, msg := range msgs {
		if msg == "" {
			continue
		}
		// Truncate in middle if too long, unless it has newline.
		if width > 4 && len(msg)+3 > width-1 && !strings.Contains(strings.TrimSuffix(msg, "\n"), "\n") {
			msg = elideMiddle(msg, width)
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(msg)
	}
}

const escapeSeq = "\033["

// elideMiddle elides the middle of msg to fit in width,
// keeping SGR sequences of the visible characters.
func elideMiddle(msg string, width int) string {
	var chrs []byte
	var sgrs []string
	var sgr string
	hasSGR := false
	for i := 0; i < len(msg); i++ {
		if strings.HasPrefix(msg[i:], escapeSeq) {
			j := strings.IndexByte(msg[i+len(escapeSeq):], 'm')
			if j < 0 {
				// broken sequence. treat the rest as is.
				chrs = append(chrs, msg[i:]...)
				for range msg[i:] {
					sgrs = append(sgrs, sgr)
				}
				break
			}
			hasSGR = true
			sgr = msg[i+len(escapeSeq) : i+len(escapeSeq)+j]
			i += len(escapeSeq) + j
			continue
		}
		chrs = append(chrs, msg[i])
		sgrs = append(sgrs, sgr)
	}
	const elideMarker = "..."
	n := (width - (len(elideMarker) + 1)) / 2
	if len(chrs) < width || len(chrs)+len(elideMarker) <= width-1 || n > len(chrs) {
		return msg
	}
	if !hasSGR {
		return msg[:n] + elideMarker + msg[len(msg)-n:]
	}
	var sb strings.Builder
	writeRange := func(from, to int, cur string) {
		for i := from; i < to; i++ {
			if sgrs[i] != cur {
				sb.WriteString(escapeSeq + sgrs[i] + "m")
				cur = sgrs[i]
			}
			sb.WriteByte(chrs[i])
		}
		if cur != "" && cur != "0" {
			sb.WriteString(escapeSeq + "0m")
		}
	}
	writeRange(0, n, "")
	sb.WriteString(elideMarker)
	writeRange(len(chrs)-n, len(chrs), "0")
	return sb.String()
}

// SGRCode is a SGR (select graphic rendition) code.
// https://en.wikipedia.org/wiki/ANSI_escape_code#SGR_(Select_Graphic_Rendition)_parameters
type SGRCode int

const (
	Bold SGRCode = iota
	Red
	Green
	Yellow
	Cyan
	BackgroundRed
	Reset
)

var sgrEscSeq = map[SGRCode]string{
	Bold:          "\033[1m",
	Red:           "\033[31;1m",
	Green:         "\033[32m",
	Yellow:        "\033[33m",
	Cyan:          "\033[36m",
	BackgroundRed: "\033[41;37m",
	Reset:         "\033[0m",
}

func (s SGRCode) String() string {
	return sgrEscSeq[s]
}

// SGR formats s in SGR (select graphic rendition).
func SGR(n SGRCode, s string) string {
	return fmt.Sprintf("%s%s%s", n, s, Reset)
}

// StripANSIEscapeCodes strips ANSI escape codes.
func StripANSIEscapeCodes(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\033' {
			sb.WriteByte(s[i])
			continue
		}
		// Only strip CSIs for now.
		if i+1 >= len(s) {
			break
		}
		if s[i+1] != '[' {
			continue
		}
		i += 2
		// Skip everything up to and including the next [a-zA-Z].
		for i < len(s) && !((s[i] >= 'a' && s[i] <= 'z') || (s[i] >= 'A' && s[i] <= 'Z')) {
			i++
		}
	}
	return sb.String()
}
