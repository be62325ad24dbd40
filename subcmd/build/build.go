// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package build implements the subcommand `build` which discovers
// sources of a C/C++ tree, and compiles and links them.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/system/signals"

	"go.chromium.org/infra/build/incbuild/build"
	"go.chromium.org/infra/build/incbuild/o11y/clog"
	"go.chromium.org/infra/build/incbuild/runtimex"
	"go.chromium.org/infra/build/incbuild/ui"
)

const buildUsage = `discover sources and includes of a C/C++ tree, and build it.

 $ incbuild build [-C <dir>] [options] [config]

config is the config file of the top project. comp.toml by default.
Outputs are written in <dir>/build.
`

// Cmd returns the Command for the `build` subcommand provided by this package.
func Cmd(version string) *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "build [-C <dir>] [options] [config]",
		ShortDesc: "build the C/C++ tree",
		LongDesc:  buildUsage,
		CommandRun: func() subcommands.CommandRun {
			r := &buildRun{version: version}
			r.init()
			return r
		},
	}
}

type buildRun struct {
	subcommands.CommandRunBase
	version string
	started time.Time

	flags Flags
}

func (c *buildRun) init() {
	c.flags.Register(&c.Flags)
}

// Run runs the `build` subcommand.
func (c *buildRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	c.started = time.Now()
	ctx := cli.GetContext(a, c, env)
	stats, err := c.run(ctx, args)
	return Report(os.Stderr, c.started, stats, err)
}

// FlagError is an error in flags.
type FlagError struct {
	Err error
}

func (f FlagError) Error() string {
	return f.Err.Error()
}

func (f FlagError) Unwrap() error {
	return f.Err
}

type errInterrupted struct{}

func (errInterrupted) Error() string        { return "interrupt by signal" }
func (errInterrupted) Is(target error) bool { return target == context.Canceled }

func (c *buildRun) run(ctx context.Context, args []string) (build.Stats, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer signals.HandleInterrupt(func() {
		cancel(errInterrupted{})
	})()
	opts, err := c.flags.Options(args)
	if err != nil {
		return build.Stats{}, FlagError{Err: err}
	}
	clog.Infof(ctx, "incbuild %s", c.version)
	return Run(ctx, opts, c.flags.NonInteractive)
}

// Run runs a build with opts.
func Run(ctx context.Context, opts build.Options, nonInteractive bool) (build.Stats, error) {
	opts.Prompter = ui.NewPrompter(nonInteractive)
	opts.Indicator = ui.Default.NewIndicator()
	opts.UI = ui.Default
	checkResourceLimits(ctx, runtimex.NumWorkers(opts.Jobs))
	b, err := build.New(ctx, opts)
	if err != nil {
		return build.Stats{}, FlagError{Err: err}
	}
	if opts.NoCCache {
		log.Infof("ccache is disabled")
	}
	return b.Build(ctx)
}

// Report prints the result of a build to w, and returns the exit code.
func Report(w io.Writer, started time.Time, stats build.Stats, err error) int {
	dur := ui.FormatDuration(time.Since(started))
	if ui.IsTerminal() {
		dur = ui.SGR(ui.Bold, dur)
	}
	if err != nil {
		var errFlag FlagError
		var errMissing build.MissingIncludeError
		switch {
		case errors.As(err, &errFlag):
			fmt.Fprintf(w, "%v\n", err)
			return 2
		case errors.Is(err, context.Canceled):
			fmt.Fprintf(w, "\n%6s %s: %v\n", dur, prefix("Interrupted", ui.BackgroundRed), err)
		case errors.Is(err, ui.ErrNonInteractive):
			fmt.Fprintf(w, "\n%6s %s: an answer is needed, but running non-interactively\n %v\n", dur, prefix("Build Failure", ui.BackgroundRed), err)
		case errors.Is(err, ui.ErrAborted):
			fmt.Fprintf(w, "\n%6s %s: %v\n", dur, prefix("Aborted", ui.BackgroundRed), err)
		case errors.As(err, &errMissing):
			fmt.Fprintf(w, "\n%6s %s: %v\n", dur, prefix("Build Failure", ui.BackgroundRed), errMissing)
			if hints := errMissing.Hints(); len(hints) > 0 {
				fmt.Fprintln(w, strings.Join(hints, "\n"))
			}
		default:
			fmt.Fprintf(w, "\n%6s %s: %d compiled\n %v\n", dur, prefix("Build Failure", ui.BackgroundRed), stats.Compiled, err)
		}
		return 1
	}
	fmt.Fprintf(w, "%6s %s: %d projects %d sources %d headers - %d probes %d reused\n", dur, prefix("Build Succeeded", ui.Green), stats.Projects, stats.Sources, stats.Headers, stats.Probes, stats.Reused)
	return 0
}

func prefix(msg string, code ui.SGRCode) string {
	if !ui.IsTerminal() {
		return msg
	}
	return ui.SGR(code, msg)
}
