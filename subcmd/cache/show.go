// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cache

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/maruel/subcommands"

	"go.chromium.org/infra/build/incbuild/build/cachestore"
)

const showUsage = `show the resolution cache.

 $ incbuild cache show [-C <dir>] [-raw]

It prints the number of entries in each table, or the document with -raw.
`

func cmdShow() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "show",
		ShortDesc: "show the resolution cache",
		LongDesc:  showUsage,
		CommandRun: func() subcommands.CommandRun {
			c := &showRun{}
			c.init()
			return c
		},
	}
}

type showRun struct {
	subcommands.CommandRunBase
	dir string
	raw bool
}

func (c *showRun) init() {
	c.Flags.StringVar(&c.dir, "C", ".", "top dir of the project")
	c.Flags.BoolVar(&c.raw, "raw", false, "print the document as is")
}

func (c *showRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	fname, err := cachePath(c.dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if c.raw {
		buf, err := os.ReadFile(fname)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		os.Stdout.Write(buf)
		return 0
	}
	d, err := cachestore.ReadDocument(fname)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	printSummary(os.Stdout, fname, d)
	return 0
}

func printSummary(w io.Writer, fname string, d cachestore.Document) {
	var sources, headers int
	for _, e := range d.Files {
		if e.HeaderOnly() {
			headers++
			continue
		}
		sources++
	}
	var nosrc int
	for _, src := range d.NeededSrc {
		if src == "" {
			nosrc++
		}
	}
	fmt.Fprintf(w, "%s: version %d\n", fname, d.Version)
	fmt.Fprintf(w, "files: %d (sources %d, headers %d)\n", len(d.Files), sources, headers)
	fmt.Fprintf(w, "needed_src: %d (no source %d)\n", len(d.NeededSrc), nosrc)
	printTable(w, "hashes", d.Hashes)
	printTable(w, "subproj", d.Subproj)
	printTable(w, "linkerscript", d.LinkerScript)
}

func printTable(w io.Writer, name string, m map[string]string) {
	fmt.Fprintf(w, "%s: %d\n", name, len(m))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, " %s = %q\n", k, m[k])
	}
}
