// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package execute runs toolchain commands.
package execute

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"go.chromium.org/infra/build/incbuild/toolsupport/shutil"
)

// Executor is an interface to run the cmd.
type Executor interface {
	Run(ctx context.Context, cmd *Cmd) error
}

// Cmd includes all the information required to run a toolchain command.
type Cmd struct {
	// ID is used as a unique identifier for this command in logs.
	ID string

	// Desc is a short, human-readable description shown to the user.
	// Example: "CC a.o"
	Desc string

	// Args holds command line arguments.
	Args []string

	// Env specifies the environment of the process.
	// If nil, the process inherits the current environment.
	Env []string

	// Dir specifies the working directory of the cmd.
	Dir string

	// Stdin is the content given to the process on stdin.
	// Empty means stdin is empty, as `echo | cmd`.
	Stdin []byte

	// Outputs are output files of the cmd.
	Outputs []string

	stdoutWriter, stderrWriter io.Writer
	stdoutBuffer, stderrBuffer bytes.Buffer

	result Result
}

// Result is a result of the cmd execution.
type Result struct {
	ExitCode int
	Started  time.Time
	Finished time.Time
	Rusage   Rusage
}

// Rusage is resource usage of the process.
type Rusage struct {
	MaxRSS int64
	Utime  time.Duration
	Stime  time.Duration
}

// String returns an ID of the cmd.
func (c *Cmd) String() string {
	return c.ID
}

// Command returns a command line string.
func (c *Cmd) Command() string {
	return shutil.Join(c.Args)
}

// StdoutWriter returns a writer set for stdout.
func (c *Cmd) StdoutWriter() io.Writer {
	if c.stdoutWriter != nil {
		return c.stdoutWriter
	}
	c.stdoutBuffer.Reset()
	c.stdoutWriter = &c.stdoutBuffer
	return c.stdoutWriter
}

// StderrWriter returns a writer set for stderr.
func (c *Cmd) StderrWriter() io.Writer {
	if c.stderrWriter != nil {
		return c.stderrWriter
	}
	c.stderrBuffer.Reset()
	c.stderrWriter = &c.stderrBuffer
	return c.stderrWriter
}

// Stdout returns stdout output of the cmd.
func (c *Cmd) Stdout() []byte {
	return c.stdoutBuffer.Bytes()
}

// Stderr returns stderr output of the cmd.
func (c *Cmd) Stderr() []byte {
	return c.stderrBuffer.Bytes()
}

// SetResult sets the result of the cmd.
func (c *Cmd) SetResult(result Result) {
	c.result = result
}

// Result returns the result of the cmd.
func (c *Cmd) Result() Result {
	return c.result
}

// ExitError is an error of cmd exit.
type ExitError struct {
	ExitCode int
}

func (e ExitError) Error() string {
	return fmt.Sprintf("exit=%d", e.ExitCode)
}
