// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package shutil provides utilities for shell command lines.
package shutil

import (
	"fmt"
	"strings"
)

// Split splits a flag string, such as `-DNAME="a b" -O2`, into args.
// It supports double and single quotes and backslash escapes.
// It returns error for shell metachars, since no shell is involved.
func Split(cmdline string) ([]string, error) {
	var args []string
	var sb strings.Builder
	inarg := false
	var quote rune
	escaped := false
	for _, ch := range cmdline {
		switch {
		case escaped:
			sb.WriteRune(ch)
			escaped = false
			continue
		case quote == '\'':
			if ch == '\'' {
				quote = 0
				continue
			}
			sb.WriteRune(ch)
			continue
		case quote == '"':
			switch ch {
			case '"':
				quote = 0
			case '\\':
				escaped = true
			default:
				sb.WriteRune(ch)
			}
			continue
		}
		switch ch {
		case ' ', '\t', '\n', '\r':
			if inarg {
				args = append(args, sb.String())
				sb.Reset()
				inarg = false
			}
			continue
		case '\\':
			escaped = true
		case '"', '\'':
			quote = ch
		case ';', '&', '|', '<', '>', '$', '`':
			return nil, fmt.Errorf("failed to split %q: contains shell metachar %c", cmdline, ch)
		default:
			sb.WriteRune(ch)
		}
		inarg = true
	}
	if escaped {
		return nil, fmt.Errorf("failed to split %q: trailing backslash", cmdline)
	}
	if quote != 0 {
		return nil, fmt.Errorf("failed to split %q: unterminated quote %c", cmdline, quote)
	}
	if inarg {
		args = append(args, sb.String())
	}
	return args, nil
}
