// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package watch implements the subcommand `watch` which rebuilds the
// tree when its files change.
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/system/signals"

	"go.chromium.org/infra/build/incbuild/build"
	"go.chromium.org/infra/build/incbuild/build/buildconfig"
	"go.chromium.org/infra/build/incbuild/o11y/clog"
	"go.chromium.org/infra/build/incbuild/osfs"
	buildcmd "go.chromium.org/infra/build/incbuild/subcmd/build"
	"go.chromium.org/infra/build/incbuild/ui"
)

const watchUsage = `build the C/C++ tree, and rebuild it on changes.

 $ incbuild watch [-C <dir>] [options] [config]

It takes the same options as build. Questions fail unless
-interactive is given.
`

// Cmd returns the Command for the `watch` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "watch [-C <dir>] [options] [config]",
		ShortDesc: "rebuild the C/C++ tree on changes",
		LongDesc:  watchUsage,
		CommandRun: func() subcommands.CommandRun {
			r := &watchRun{}
			r.init()
			return r
		},
	}
}

type watchRun struct {
	subcommands.CommandRunBase
	flags       buildcmd.Flags
	interactive bool
	debounce    time.Duration
}

func (c *watchRun) init() {
	c.flags.Register(&c.Flags)
	c.Flags.BoolVar(&c.interactive, "interactive", false, "ask questions on the terminal")
	c.Flags.DurationVar(&c.debounce, "debounce", 100*time.Millisecond, "wait for more changes before rebuilding")
}

// Run runs the `watch` subcommand.
func (c *watchRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, c, env)
	err := c.run(ctx, args)
	if err != nil {
		var errFlag buildcmd.FlagError
		if errors.As(err, &errFlag) {
			log.Errorf("%v", err)
			return 2
		}
		log.Errorf("watch: %v", err)
		return 1
	}
	return 0
}

func (c *watchRun) run(ctx context.Context, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer signals.HandleInterrupt(cancel)()

	opts, err := c.flags.Options(args)
	if err != nil {
		return buildcmd.FlagError{Err: err}
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	fsys := osfs.New("watch")
	if err := addDirs(ctx, fsys, w, opts.Dir, opts.Dir); err != nil {
		return err
	}

	rebuild := func() {
		started := time.Now()
		stats, err := buildcmd.Run(ctx, opts, !c.interactive)
		buildcmd.Report(os.Stderr, started, stats, err)
		// -no_cache only applies to the first build.
		opts.NoCache = false
		ui.Default.PrintLines("", "watching "+opts.Dir+" for changes")
	}
	rebuild()

	fire := make(chan struct{}, 1)
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			isDir := fsys.IsDir(ctx, ev.Name)
			if !relevant(opts.Dir, ev, isDir) {
				continue
			}
			clog.Infof(ctx, "change %s", ev)
			if isDir && ev.Has(fsnotify.Create) {
				if err := addDirs(ctx, fsys, w, opts.Dir, ev.Name); err != nil {
					log.Warnf("failed to watch %s: %v", ev.Name, err)
				}
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(c.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warnf("watch error: %v", err)
		case <-fire:
			rebuild()
		}
	}
}

// addDirs watches dir in top and its relevant subdirs.
func addDirs(ctx context.Context, fsys *osfs.OSFS, w *fsnotify.Watcher, top, dir string) error {
	buildDir := filepath.Join(top, build.BuildDirName)
	return fsys.Walk(ctx, dir, func(d string, dirs, files []string) error {
		if d == buildDir || (d != top && skipDir(filepath.Base(d))) {
			return filepath.SkipDir
		}
		return w.Add(d)
	})
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".")
}

// watchedExts are extensions of files whose change triggers a rebuild.
var watchedExts = buildconfig.DefaultCExts.
	Union(buildconfig.DefaultCPPExts).
	Union(buildconfig.DefaultHeaderExts).
	Union(buildconfig.PrecompiledObjExts).
	Union(buildconfig.PrecompiledLibExts).
	Union(buildconfig.DefaultLinkScriptExts)

// relevant reports whether ev in top needs a rebuild.
// Changes in hidden dirs and the build dir are ignored.
func relevant(top string, ev fsnotify.Event, isDir bool) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	rel, err := filepath.Rel(top, ev.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	elems := strings.Split(rel, string(filepath.Separator))
	if elems[0] == build.BuildDirName {
		return false
	}
	for _, e := range elems {
		if skipDir(e) {
			return false
		}
	}
	name := elems[len(elems)-1]
	switch {
	case isDir:
		return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
	case strings.HasSuffix(name, buildconfig.DefaultConfigName):
		return true
	case watchedExts.HasFile(name):
		return true
	case filepath.Ext(name) == "":
		// a removed dir can't be stat'ed.
		return ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
	}
	return false
}
