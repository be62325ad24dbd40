// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package makeutil provides utilities for make style dependency output.
package makeutil

import (
	"bytes"
	"strings"
)

// Rule is a make rule.
type Rule struct {
	Target string
	Inputs []string
}

// ParseDeps parses deps and returns a list of inputs of the first rule.
func ParseDeps(b []byte) []string {
	return ParseRule(b).Inputs
}

// ParseRule parses the first rule in b, as printed by `gcc -M`.
//
//	<output>: <input> ...
//
// <input> is space separated.
// '\'+newline is space.
// '\'+space is escaped space (not separator).
// An unescaped newline ends the rule, so phony rules
// added by -MP are ignored.
func ParseRule(b []byte) Rule {
	i := bytes.IndexByte(b, ':')
	if i < 0 {
		return Rule{}
	}
	target, _, _ := nextToken(b[:i])
	r := Rule{Target: target}
	var token string
	eol := false
	for s := b[i+1:]; len(s) > 0 && !eol; {
		token, s, eol = nextToken(s)
		if token != "" {
			r.Inputs = append(r.Inputs, token)
		}
	}
	return r
}

// nextToken returns next token in s, rest of s, and whether the rule ended.
func nextToken(s []byte) (string, []byte, bool) {
	var sb strings.Builder
	// skip spaces
skipSpaces:
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && s[i+1] == '\n' {
			i++
			continue
		}
		if s[i] == '\\' && i+2 < len(s) && s[i+1] == '\r' && s[i+2] == '\n' {
			i += 2
			continue
		}
		switch s[i] {
		case ' ', '\t', '\r':
			continue
		case '\n':
			return "", s[i+1:], true
		default:
			s = s[i:]
			break skipSpaces
		}
	}
	// extract next space not escaped
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case ' ':
				sb.WriteByte(s[i])
			case '\r', '\n':
				// '\'+newline is space
				if s[i] == '\r' && i+1 < len(s) && s[i+1] == '\n' {
					i++
				}
				return sb.String(), s[i+1:], false
			default:
				sb.WriteByte('\\')
				sb.WriteByte(s[i])
			}
			continue
		}
		switch s[i] {
		case ' ', '\t', '\r':
			return sb.String(), s[i+1:], false
		case '\n':
			return sb.String(), s[i+1:], true
		}
		sb.WriteByte(s[i])
	}
	return sb.String(), nil, true
}
