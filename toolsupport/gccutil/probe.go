// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package gccutil provides utilities of gcc.
package gccutil

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	log "github.com/golang/glog"

	"go.chromium.org/infra/build/incbuild/execute"
	"go.chromium.org/infra/build/incbuild/execute/localexec"
	"go.chromium.org/infra/build/incbuild/o11y/clog"
	"go.chromium.org/infra/build/incbuild/toolsupport/makeutil"
)

// missingRE matches the include name in a preprocessor's fatal error,
// for both gcc (`fatal error: a.h: No such file`) and
// clang (`fatal error: 'a.h' file not found`).
var missingRE = regexp.MustCompile(`fatal error: \\?"?'?([_a-zA-Z0-9\./-]+)`)

// ProbeRequest is a request to get direct deps of a file.
type ProbeRequest struct {
	// Compiler is the compiler command, e.g. ["gcc"].
	Compiler []string
	// File is the file to preprocess.
	File string
	// IncludeDirs are dirs given by -I.
	IncludeDirs []string
	// Flags are compile flags.
	Flags []string
	// Dir is the working directory.
	Dir string
}

// ProbeResult is a result of a probe.
// Either Deps or Missing is set.
type ProbeResult struct {
	// Deps are cleaned dependency paths, excluding the file itself.
	Deps []string
	// Missing is the include name the preprocessor couldn't find.
	Missing string
}

// ProbeError is an error of the preprocessor other than a missing include.
type ProbeError struct {
	File     string
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("preprocessor failed on %s (exit=%d): %s", e.File, e.ExitCode, strings.TrimSpace(e.Stderr))
}

// ProbeArgs returns command line args of the probe.
func ProbeArgs(req ProbeRequest) []string {
	args := append([]string{}, req.Compiler...)
	args = append(args, "-E", "-MM", "-Wno-everything", req.File)
	for _, dir := range req.IncludeDirs {
		args = append(args, "-I"+dir)
	}
	return append(args, req.Flags...)
}

// ParseMissing returns the missing include name in stderr, if any.
func ParseMissing(stderr []byte) (string, bool) {
	m := missingRE.FindSubmatch(stderr)
	if m == nil {
		return "", false
	}
	return string(m[1]), true
}

// Prober runs the preprocessor to get direct deps.
type Prober struct {
	// Executor runs the preprocessor. nil uses localexec.
	Executor execute.Executor
}

// Probe runs the preprocessor on req.File.
// The result has deps if the preprocessor succeeded, or the first
// missing include name.
func (p Prober) Probe(ctx context.Context, req ProbeRequest) (ProbeResult, error) {
	started := time.Now()
	cmd := &execute.Cmd{
		ID:   "probe:" + req.File,
		Desc: "PROBE " + req.File,
		Args: ProbeArgs(req),
		Dir:  req.Dir,
	}
	ex := p.Executor
	if ex == nil {
		ex = localexec.LocalExec{}
	}
	err := ex.Run(ctx, cmd)
	var eerr execute.ExitError
	if err != nil && !errors.As(err, &eerr) {
		return ProbeResult{}, fmt.Errorf("failed to run %q: %w", cmd.Args, err)
	}
	stderr := cmd.Stderr()
	if missing, ok := ParseMissing(stderr); ok {
		if log.V(1) {
			clog.Infof(ctx, "probe %s: missing %s %s", req.File, missing, time.Since(started))
		}
		return ProbeResult{Missing: missing}, nil
	}
	if err != nil || len(stderr) > 0 {
		return ProbeResult{}, &ProbeError{
			File:     req.File,
			Args:     cmd.Args,
			ExitCode: eerr.ExitCode,
			Stderr:   string(stderr),
		}
	}
	inputs := makeutil.ParseDeps(cmd.Stdout())
	var deps []string
	if len(inputs) > 1 {
		deps = make([]string, 0, len(inputs)-1)
		for _, in := range inputs[1:] {
			if !filepath.IsAbs(in) && req.Dir != "" {
				in = filepath.Join(req.Dir, in)
			}
			deps = append(deps, filepath.Clean(in))
		}
	}
	if log.V(1) {
		clog.Infof(ctx, "probe %s: deps:%d %s", req.File, len(deps), time.Since(started))
	}
	return ProbeResult{Deps: deps}, nil
}
