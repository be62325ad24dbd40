// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandeps

import (
	"bytes"
	"context"
	"strings"
	"time"

	log "github.com/golang/glog"

	"go.chromium.org/infra/build/incbuild/o11y/clog"
)

// Directives are #include and #define directives found in a file.
type Directives struct {
	// Includes are include paths with delimiters ("foo.h" or <foo.h>),
	// or macro names.
	Includes []string
	// Defines maps macro name to its possible values.
	Defines map[string][]string
}

// IncludeNames returns include names in buf, without delimiters,
// in the order of appearance. Macros are expanded to all their values.
func IncludeNames(ctx context.Context, fname string, buf []byte) []string {
	return Scan(ctx, fname, buf).IncludeNames(ctx)
}

// IncludeNames returns include names without delimiters, deduped.
func (d Directives) IncludeNames(ctx context.Context) []string {
	var names []string
	seen := make(map[string]bool)
	for _, inc := range d.Includes {
		for _, p := range expandMacros(ctx, nil, inc, d.Defines, 0) {
			name := p[1 : len(p)-1]
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// Scan scans C preprocessor directives for #include/#define in buf.
func Scan(ctx context.Context, fname string, buf []byte) Directives {
	started := time.Now()
	d := Directives{
		Defines: make(map[string][]string),
	}
	for len(buf) > 0 {
		var line []byte
		line, buf, _ = bytes.Cut(buf, []byte("\n"))
		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] != '#' {
			continue
		}
		directive := bytes.TrimSpace(line[1:])
		name, arg := splitDirective(directive)
		switch name {
		case "include", "include_next", "import":
			if inc, ok := parseInclude(arg); ok {
				d.Includes = append(d.Includes, inc)
			} else if log.V(2) {
				clog.Infof(ctx, "%s: skip %q", fname, line)
			}
		case "define":
			if macro, value, ok := parseDefine(arg); ok {
				d.Defines[macro] = append(d.Defines[macro], value)
			} else if log.V(2) {
				clog.Infof(ctx, "%s: ignore define %q", fname, line)
			}
		}
	}
	if dur := time.Since(started); dur > time.Second {
		clog.Infof(ctx, "slow scan %s %s", fname, dur)
	}
	return d
}

// splitDirective splits "include <foo.h>" into "include" and "<foo.h>".
// A directive name not followed by space, '<' or '"' is returned as is
// with empty arg.
func splitDirective(line []byte) (string, []byte) {
	i := bytes.IndexAny(line, " \t<\"")
	if i < 0 {
		return string(line), nil
	}
	name := string(line[:i])
	if line[i] != ' ' && line[i] != '\t' && name == "define" {
		return "", nil
	}
	return name, bytes.TrimSpace(line[i:])
}

// parseInclude parses the argument of #include.
// It accepts "path", <path> or an upper case macro name, and discards
// trailing tokens.
func parseInclude(arg []byte) (string, bool) {
	if len(arg) == 0 {
		return "", false
	}
	switch arg[0] {
	case '"', '<':
		delim := byte('"')
		if arg[0] == '<' {
			delim = '>'
		}
		i := bytes.IndexByte(arg[1:], delim)
		if i < 0 {
			// unclosed path.
			return "", false
		}
		return string(arg[:i+2]), true
	}
	if arg[0] < 'A' || arg[0] > 'Z' {
		return "", false
	}
	if i := bytes.IndexAny(arg, " \t"); i >= 0 {
		arg = arg[:i]
	}
	return string(arg), true
}

// parseDefine parses the argument of #define.
//
//	MACRO "path.h"
//	MACRO <path.h>
//	MACRO OTHER_MACRO
func parseDefine(arg []byte) (string, string, bool) {
	i := bytes.IndexAny(arg, " \t")
	if i < 0 {
		// no value, or no macro name.
		return "", "", false
	}
	macro := string(arg[:i])
	if strings.Contains(macro, "(") {
		// function macro.
		return "", "", false
	}
	value := bytes.TrimSpace(arg[i+1:])
	if len(value) == 0 {
		return "", "", false
	}
	switch value[0] {
	case '<', '"':
		v, ok := parseInclude(value)
		return macro, v, ok
	}
	if i := bytes.IndexAny(value, " \t"); i >= 0 {
		value = value[:i]
	}
	if value[0] < 'A' || value[0] > 'Z' || bytes.IndexByte(value, '(') >= 0 {
		return "", "", false
	}
	return macro, string(value), true
}

// maxMacroDepth limits the expansion of macros defined in a cycle.
const maxMacroDepth = 32

func expandMacros(ctx context.Context, paths []string, incname string, macros map[string][]string, depth int) []string {
	if incname == "" {
		return paths
	}
	if !isMacro(incname) {
		return append(paths, incname)
	}
	if depth >= maxMacroDepth {
		clog.Warningf(ctx, "macro expansion too deep at %q", incname)
		return paths
	}
	for _, v := range macros[incname] {
		paths = expandMacros(ctx, paths, v, macros, depth+1)
	}
	if log.V(1) {
		clog.Infof(ctx, "expand %q -> %q", incname, paths)
	}
	return paths
}

func isMacro(s string) bool {
	if s == "" {
		return false
	}
	switch s[0] {
	case '<', '"':
		return false
	}
	return true
}
