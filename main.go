// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// incbuild is an incremental build tool for C/C++ trees, which
// discovers sources to compile from includes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	log "github.com/golang/glog"
	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"

	"go.chromium.org/infra/build/incbuild/runtimex"
	buildcmd "go.chromium.org/infra/build/incbuild/subcmd/build"
	"go.chromium.org/infra/build/incbuild/subcmd/cache"
	"go.chromium.org/infra/build/incbuild/subcmd/help"
	"go.chromium.org/infra/build/incbuild/subcmd/version"
	"go.chromium.org/infra/build/incbuild/subcmd/watch"
	"go.chromium.org/infra/build/incbuild/ui"
)

const incbuildVersion = "v0.1.0"

func getApplication() *cli.Application {
	return &cli.Application{
		Name:  "incbuild",
		Title: "Incremental C/C++ build tool",
		Context: func(ctx context.Context) context.Context {
			return ctx
		},
		Commands: []*subcommands.Command{
			buildcmd.Cmd(incbuildVersion),
			watch.Cmd(),
			cache.Cmd(),

			help.Cmd(),
			version.Cmd(incbuildVersion),
		},
		EnvVars: map[string]subcommands.EnvVarDefinition{
			buildcmd.DefaultConfigEnv: {
				ShortDesc: "config file giving defaults of every project",
			},
		},
	}
}

func main() {
	os.Exit(incbuildMain())
}

func incbuildMain() int {
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(out, "global flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	// Flush the log on exit to not lose any messages.
	defer log.Flush()

	// Print a stack trace when a panic occurs.
	defer func() {
		if r := recover(); r != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			log.Fatalf("panic: %v\n%s", r, buf)
		}
	}()

	// Print build information to the log.
	if buildinfo, ok := debug.ReadBuildInfo(); ok {
		log.Infof("buildinfo: path=%q", buildinfo.Path)
		log.Infof("main module: %s %s", moduleInfo(&buildinfo.Main), vcsInfo(buildinfo))
		if log.V(1) {
			for _, m := range buildinfo.Deps {
				log.Infof("deps module: %s", moduleInfo(m))
			}
			for _, bs := range buildinfo.Settings {
				log.Infof("build %s=%s", bs.Key, bs.Value)
			}
		}
	}
	log.Infof("%s", runtimex.CPUInfo())

	ui.Init()
	defer ui.Restore()
	return subcommands.Run(getApplication(), flag.Args())
}

func moduleInfo(m *debug.Module) string {
	if m == nil {
		return "<nil>"
	}
	return fmt.Sprintf("path:%s version:%s sum:%s replace:%s", m.Path, m.Version, m.Sum, moduleInfo(m.Replace))
}

func vcsInfo(buildinfo *debug.BuildInfo) string {
	m := make(map[string]string)
	for _, bs := range buildinfo.Settings {
		if strings.HasPrefix(bs.Key, "vcs.") {
			m[bs.Key] = bs.Value
		}
	}
	return fmt.Sprintf("vcs[revision=%s time=%s modified=%s]", m["vcs.revision"], m["vcs.time"], m["vcs.modified"])
}
