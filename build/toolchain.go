// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import (
	"context"
	"fmt"
	"os/exec"

	"go.chromium.org/infra/build/incbuild/build/buildconfig"
	"go.chromium.org/infra/build/incbuild/o11y/clog"
	"go.chromium.org/infra/build/incbuild/toolsupport/shutil"
)

// ToolFinder checks whether a tool is invocable.
type ToolFinder interface {
	LookPath(file string) (string, error)
}

// PathToolFinder finds tools in PATH.
type PathToolFinder struct{}

// LookPath implements ToolFinder.
func (PathToolFinder) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

const ccacheTool = "ccache"

// findTool returns the command line of the first candidate found.
// A candidate may have args, e.g. "ccache gcc".
func (b *Builder) findTool(ctx context.Context, kind string, candidates ...string) ([]string, error) {
	for _, c := range candidates {
		args, err := shutil.Split(c)
		if err != nil || len(args) == 0 {
			return nil, fmt.Errorf("bad %s %q: %v", kind, c, err)
		}
		path, err := b.toolFinder.LookPath(args[0])
		if err != nil {
			clog.Infof(ctx, "%s %s not found: %v", kind, args[0], err)
			continue
		}
		clog.Infof(ctx, "%s: %s", kind, path)
		return args, nil
	}
	return nil, MissingToolError{Kind: kind, Tried: candidates}
}

// checkTools resolves tools of the project.
// Default compilers fall back to clang. ar is needed only if the
// project has libraries. The linker defaults to the C++ compiler.
func (b *Builder) checkTools(ctx context.Context, p *Project) error {
	opts := p.Options
	var err error
	if opts.CCompSet {
		p.cc, err = b.findTool(ctx, "C compiler", opts.CComp)
	} else {
		p.cc, err = b.findTool(ctx, "C compiler", buildconfig.DefaultCComp, "clang")
	}
	if err != nil {
		return err
	}
	if opts.CPPCompSet {
		p.cxx, err = b.findTool(ctx, "C++ compiler", opts.CPPComp)
	} else {
		p.cxx, err = b.findTool(ctx, "C++ compiler", buildconfig.DefaultCPPComp, "clang++")
	}
	if err != nil {
		return err
	}
	if opts.ARSet || len(opts.LibDirs) > 0 {
		p.ar, err = b.findTool(ctx, "archiver", opts.AR)
		if err != nil {
			return err
		}
	}
	if opts.LinkerSet {
		p.linker, err = b.findTool(ctx, "linker", opts.Linker)
		if err != nil {
			return err
		}
	} else {
		b.verbosef("no linker was given, using %s", shutil.Join(p.cxx))
		p.linker = p.cxx
	}
	p.ccache = b.ccachePrefix(ctx)
	return nil
}

// ccachePrefix returns ccache command to prefix compiles, if enabled
// and available.
func (b *Builder) ccachePrefix(ctx context.Context) []string {
	if b.opts.NoCCache {
		return nil
	}
	b.ccacheOnce.Do(func() {
		b.ccache, b.ccacheErr = b.findTool(ctx, "ccache", ccacheTool)
		if b.ccacheErr != nil {
			b.ui.Warningf("couldn't find ccache! not using it")
		}
	})
	return b.ccache
}
