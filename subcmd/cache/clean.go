// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/maruel/subcommands"
)

func cmdClean() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "clean",
		ShortDesc: "delete the resolution cache",
		LongDesc:  "delete the resolution cache. the next build resolves all files again.",
		CommandRun: func() subcommands.CommandRun {
			c := &cleanRun{}
			c.Flags.StringVar(&c.dir, "C", ".", "top dir of the project")
			return c
		},
	}
}

type cleanRun struct {
	subcommands.CommandRunBase
	dir string
}

func (c *cleanRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	fname, err := cachePath(c.dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	err = os.Remove(fname)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		fmt.Printf("no cache at %s\n", fname)
	case err != nil:
		fmt.Fprintln(os.Stderr, err)
		return 1
	default:
		fmt.Printf("deleted %s\n", fname)
	}
	return 0
}
