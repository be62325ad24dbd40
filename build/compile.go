// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"go.chromium.org/infra/build/incbuild/execute"
	"go.chromium.org/infra/build/incbuild/o11y/clog"
	"go.chromium.org/infra/build/incbuild/ui"
)

// chunks splits files round-robin into n disjoint lists.
func chunks(files []*File, n int) [][]*File {
	if n < 1 {
		n = 1
	}
	c := make([][]*File, n)
	for i, f := range files {
		c[i%n] = append(c[i%n], f)
	}
	return c
}

// compile compiles sources of p in parallel, then bundles its
// libraries.
// Each worker gets its own files, so workers share no mutable state
// other than stats and output.
func (b *Builder) compile(ctx context.Context, p *Project) error {
	b.ui.Infof("%s for project %s", sgrBold("Compiling object files"), b.rel(p.Dir()))
	started := time.Now()
	eg, gctx := errgroup.WithContext(ctx)
	for _, chunk := range chunks(p.Sources(), b.jobs) {
		if len(chunk) == 0 {
			continue
		}
		eg.Go(func() error {
			for _, f := range chunk {
				if err := b.compileFile(gctx, p, f); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	b.verbosef("done in %s", ui.FormatDuration(time.Since(started)))

	for _, l := range p.Options.LibDirs {
		if err := b.archive(ctx, p, filepath.Base(l)); err != nil {
			return err
		}
	}
	return nil
}

// compileArgs returns the command line to compile f in p.
func (b *Builder) compileArgs(p *Project, f *File) []string {
	comp, flags := p.toolFor(f)
	args := append([]string{}, p.ccache...)
	args = append(args, comp...)
	for _, dir := range f.IncludeDirs {
		args = append(args, "-I"+dir)
	}
	args = append(args, "-c", f.Path, "-o", filepath.Join(b.objectDir(p, f), f.Stem+".o"))
	return append(args, flags...)
}

func (b *Builder) compileFile(ctx context.Context, p *Project, f *File) error {
	cmd := &execute.Cmd{
		ID:      "compile:" + f.Path,
		Desc:    "CC " + b.rel(f.Path),
		Args:    b.compileArgs(p, f),
		Dir:     b.opts.Dir,
		Outputs: []string{filepath.Join(b.objectDir(p, f), f.Stem+".o")},
	}
	if err := b.run(ctx, cmd); err != nil {
		return err
	}
	b.stats.compiled()
	return nil
}

// archive bundles objects of the library into lib/<name>.a.
func (b *Builder) archive(ctx context.Context, p *Project, name string) error {
	dir := filepath.Join(b.buildDir, p.Subdir)
	objs, err := filepath.Glob(filepath.Join(dir, name, "*"))
	if err != nil {
		return err
	}
	if len(objs) == 0 {
		clog.Warningf(ctx, "no objects for library %s in %s", name, p)
		b.verbosef("library %s has no objects. not bundling it", name)
		return nil
	}
	b.ui.Infof("%s %s", sgrBold("Bundling library"), name)
	out := filepath.Join(dir, libDir, name+".a")
	args := append([]string{}, p.ar...)
	args = append(args, "rc", out)
	args = append(args, objs...)
	cmd := &execute.Cmd{
		ID:      "archive:" + out,
		Desc:    "AR " + b.rel(out),
		Args:    args,
		Dir:     b.opts.Dir,
		Outputs: []string{out},
	}
	if err := b.run(ctx, cmd); err != nil {
		return err
	}
	b.stats.archived()
	return nil
}

// run runs cmd, and shows its outputs.
func (b *Builder) run(ctx context.Context, cmd *execute.Cmd) error {
	if b.opts.PrintCommands {
		b.outMu.Lock()
		fmt.Fprintln(b.out, cmd.Command())
		b.outMu.Unlock()
	}
	started := time.Now()
	err := b.executor.Run(ctx, cmd)
	clog.Infof(ctx, "%s: %v %s", cmd, err, time.Since(started))
	b.outMu.Lock()
	b.out.Write(cmd.Stdout())
	if err == nil {
		b.out.Write(cmd.Stderr())
	}
	b.outMu.Unlock()
	if err != nil {
		return CommandError{
			Desc:    cmd.Desc,
			Command: cmd.Command(),
			Stderr:  string(cmd.Stderr()),
			Err:     err,
		}
	}
	return nil
}
