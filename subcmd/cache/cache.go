// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package cache provides cache subcommand.
package cache

import (
	"os"
	"path/filepath"

	"github.com/maruel/subcommands"

	"go.chromium.org/infra/build/incbuild/build"
	"go.chromium.org/infra/build/incbuild/build/cachestore"
)

// Cmd returns the Command for the `cache` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "cache <subcommand>",
		ShortDesc: "access the resolution cache",
		LongDesc:  "access the resolution cache in the build dir.",
		CommandRun: func() subcommands.CommandRun {
			c := &cacheRun{
				app: &subcommands.DefaultApplication{
					Name:  "incbuild cache",
					Title: "tool to access the resolution cache",
					Commands: []*subcommands.Command{
						cmdShow(),
						cmdClean(),
						subcommands.CmdHelp,
					},
				},
			}
			c.Flags.Usage = func() {
				subcommands.Usage(os.Stderr, c.app, true)
			}
			return c
		},
	}
}

type cacheRun struct {
	subcommands.CommandRunBase
	app *subcommands.DefaultApplication
}

func (c *cacheRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	return subcommands.Run(c.app, args)
}

// cachePath returns the path of the cache document of the top dir.
func cachePath(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, build.BuildDirName, cachestore.FileName), nil
}
