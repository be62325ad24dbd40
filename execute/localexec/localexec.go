// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package localexec implements local command execution.
package localexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	log "github.com/golang/glog"

	"go.chromium.org/infra/build/incbuild/execute"
	"go.chromium.org/infra/build/incbuild/o11y/clog"
	"go.chromium.org/infra/build/incbuild/runtimex"
	"go.chromium.org/infra/build/incbuild/sync/semaphore"
)

// LocalExec implements execute.Executor interface that runs commands locally.
type LocalExec struct{}

// Run runs cmd with LocalExec.
func Run(ctx context.Context, cmd *execute.Cmd) error {
	return LocalExec{}.Run(ctx, cmd)
}

// Run runs a cmd.
// stdout and stderr are written to cmd's writers.
// It returns execute.ExitError if the process exits with non-zero code.
func (LocalExec) Run(ctx context.Context, cmd *execute.Cmd) error {
	res, stdout, stderr, err := run(ctx, cmd)
	if err != nil {
		return err
	}
	cmd.StdoutWriter().Write(stdout)
	cmd.StderrWriter().Write(stderr)
	cmd.SetResult(res)

	if log.V(1) {
		clog.Infof(ctx, "%s exit=%d stdout=%d stderr=%d dur=%s rusage=%+v", cmd.ID, res.ExitCode, len(stdout), len(stderr), res.Finished.Sub(res.Started), res.Rusage)
	}
	if res.ExitCode != 0 {
		return execute.ExitError{ExitCode: res.ExitCode}
	}
	return nil
}

// forkSema limits concurrent process spawns.
var forkSema = semaphore.New("fork", runtimex.NumCPU())

func run(ctx context.Context, cmd *execute.Cmd) (execute.Result, []byte, []byte, error) {
	if len(cmd.Args) == 0 {
		return execute.Result{}, nil, nil, fmt.Errorf("no arguments in the command. ID: %s", cmd.ID)
	}
	c := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)
	c.Env = cmd.Env
	c.Dir = cmd.Dir
	c.Stdin = bytes.NewReader(cmd.Stdin)
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	s := time.Now()

	err := forkSema.Do(ctx, func(ctx context.Context) error {
		return c.Start()
	})
	if err != nil {
		var eerr *exec.Error
		if errors.As(err, &eerr) {
			// command not found etc.
			return execute.Result{}, nil, nil, fmt.Errorf("failed to start %q: %w", cmd.Args[0], err)
		}
		return execute.Result{}, nil, nil, err
	}
	err = c.Wait()
	e := time.Now()
	log.V(1).Infof("%s %v", cmd.ID, err)

	result := execute.Result{
		ExitCode: exitCode(err),
		Started:  s,
		Finished: e,
	}
	if c.ProcessState != nil {
		result.Rusage = rusage(c)
	}
	if ctx.Err() != nil {
		return result, stdout.Bytes(), stderr.Bytes(), ctx.Err()
	}
	return result, stdout.Bytes(), stderr.Bytes(), nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var eerr *exec.ExitError
	if !errors.As(err, &eerr) {
		return 1
	}
	if w, ok := eerr.ProcessState.Sys().(syscall.WaitStatus); ok {
		return w.ExitStatus()
	}
	return 1
}
