// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import (
	"context"
	"path/filepath"
	"time"

	"go.chromium.org/infra/build/incbuild/build/cachestore"
	"go.chromium.org/infra/build/incbuild/execute"
	"go.chromium.org/infra/build/incbuild/ui"
)

// link links executables of projects generating one.
func (b *Builder) link(ctx context.Context) error {
	started := time.Now()
	for _, p := range b.projects {
		if !p.Options.GenerateExecutable {
			continue
		}
		b.ui.Infof("%s for %s", sgrBold("Linking executable"), b.rel(p.Dir()))
		args, err := b.linkArgs(ctx, p)
		if err != nil {
			return err
		}
		cmd := &execute.Cmd{
			ID:   "link:" + p.String(),
			Desc: "LINK " + b.rel(p.Dir()),
			Args: args,
			Dir:  b.opts.Dir,
		}
		if err := b.run(ctx, cmd); err != nil {
			return err
		}
		b.stats.linked()
		b.verbosef("done in %s", ui.FormatDuration(time.Since(started)))
	}
	return nil
}

// linkArgs returns the link command line of p.
//
// Objects of p come first, then objects, libraries and public
// precompiled files of other projects, then private precompiled
// files of p. A project linking only with its direct parent is
// skipped unless p is its parent.
func (b *Builder) linkArgs(ctx context.Context, p *Project) ([]string, error) {
	script, err := b.linkerScript(ctx, p)
	if err != nil {
		return nil, err
	}
	args := append([]string{}, p.linker...)
	own := filepath.Join(b.buildDir, p.Subdir)
	for _, dir := range []string{nonPropDir, objDir, libDir} {
		files, err := filepath.Glob(filepath.Join(own, dir, "*"))
		if err != nil {
			return nil, err
		}
		args = append(args, files...)
	}

	subdirs := make(map[string]bool)
	for _, d := range p.SubprojectDirs {
		subdirs[b.realpath(ctx, d)] = true
	}
	for _, sd := range b.projects {
		if sd == p {
			continue
		}
		if sd.Options.OnlyLinkWithDirectParent && !subdirs[b.realpath(ctx, sd.Dir())] {
			continue
		}
		dir := filepath.Join(b.buildDir, sd.Subdir)
		for _, sub := range []string{objDir, libDir} {
			files, err := filepath.Glob(filepath.Join(dir, sub, "*"))
			if err != nil {
				return nil, err
			}
			args = append(args, files...)
		}
		args = append(args, sd.PublicPrecomps...)
	}
	args = append(args, p.Precomps...)
	if script != "" {
		args = append(args, "-T", script)
	}
	return append(args, p.Options.LinkerFlags...), nil
}

// linkerScript returns the linker script to link p, or "" for none.
// The choice is cached per project dir.
func (b *Builder) linkerScript(ctx context.Context, p *Project) (string, error) {
	dir := p.Dir()
	if len(p.LinkerScripts) == 0 {
		b.cache.SetLinkerScript(dir, cachestore.LinkerScriptNotFound)
		return "", nil
	}
	if v, ok := b.cache.LinkerScript(dir); ok {
		switch {
		case v == cachestore.LinkerScriptNone:
			b.cache.SetLinkerScript(dir, v)
			return "", nil
		case containsString(p.LinkerScripts, v):
			b.cache.SetLinkerScript(dir, v)
			return v, nil
		}
	}
	q := ui.Question{
		Title:     "Linker script found! Which one to use?",
		AllowNone: true,
	}
	for _, s := range p.LinkerScripts {
		q.Options = append(q.Options, ui.Option{Label: b.rel(s)})
	}
	i, err := b.prompter.Choose(ctx, q)
	if err != nil {
		return "", err
	}
	if i < 0 {
		b.ui.Infof("not using any linker script")
		b.cache.SetLinkerScript(dir, cachestore.LinkerScriptNone)
		return "", nil
	}
	script := p.LinkerScripts[i]
	b.cache.SetLinkerScript(dir, script)
	return script, nil
}
