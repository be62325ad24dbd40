// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"

	log "github.com/golang/glog"

	"go.chromium.org/infra/build/incbuild/build/cachestore"
	"go.chromium.org/infra/build/incbuild/o11y/clog"
	"go.chromium.org/infra/build/incbuild/ui"
)

// configFileRE matches names of config files declaring a project.
var configFileRE = regexp.MustCompile(`comp\.toml$`)

// configFiles returns config files in files.
func configFiles(files []string) []string {
	var cfgs []string
	for _, f := range files {
		if configFileRE.MatchString(f) {
			cfgs = append(cfgs, f)
		}
	}
	return cfgs
}

// presort classifies dirs of the project as entry, excluded or
// neutral, registers files in the build state, and creates
// sub-projects recursively.
func (b *Builder) presort(ctx context.Context, p *Project) error {
	opts := p.Options
	allowed := opts.AllowedExts()
	srcExts := opts.SourceExts()
	for _, f := range opts.ExcludedFiles {
		b.state.addExcluded(f)
	}
	err := b.fsys.Walk(ctx, p.Dir(), func(dir string, dirs, files []string) error {
		if irrelevant(b.opts.Dir, dir) {
			return filepath.SkipDir
		}
		for _, f := range files {
			b.state.claim(filepath.Join(dir, f))
		}
		if p.inSubproject(dir) {
			return filepath.SkipDir
		}
		if p.excludes.has(dir) {
			for _, f := range files {
				if allowed.HasFile(f) {
					b.state.addExcluded(filepath.Join(dir, f))
				}
			}
			for _, d := range dirs {
				sub := filepath.Join(dir, d)
				if !p.entries.has(sub) && !p.neutrals.has(sub) {
					p.excludes.add(sub)
				}
			}
			return nil
		}
		if dir != p.Dir() {
			if cfgs := configFiles(files); len(cfgs) > 0 {
				if p.entries.has(dir) {
					p.SubprojectDirs = append(p.SubprojectDirs, dir)
					return filepath.SkipDir
				}
				b.ui.Warningf("project found in neutral folder %s. ignoring its config file as projects are only allowed in entry locations", b.rel(dir))
				if err := b.acknowledge(ctx, "Press Enter to accept this"); err != nil {
					return err
				}
			}
		}

		var paths, precomps []string
		if p.excludeSrc.has(dir) {
			for _, f := range files {
				switch {
				case opts.HeaderExts.HasFile(f):
					paths = append(paths, filepath.Join(dir, f))
				case srcExts.HasFile(f):
					b.state.addExcluded(filepath.Join(dir, f))
				}
			}
			for _, d := range dirs {
				sub := filepath.Join(dir, d)
				if !p.entries.has(sub) && !p.neutrals.has(sub) {
					p.excludes.add(sub)
				}
			}
		} else {
			for _, f := range files {
				switch {
				case allowed.HasFile(f):
					paths = append(paths, filepath.Join(dir, f))
				case opts.PrecompiledExts.HasFile(f):
					precomps = append(precomps, filepath.Join(dir, f))
				}
			}
		}
		for _, f := range files {
			if opts.LinkScriptExts.HasFile(f) {
				p.LinkerScripts = append(p.LinkerScripts, filepath.Join(dir, f))
			}
		}

		if !p.entries.has(dir) {
			if len(precomps) > 0 {
				b.verbosef("found precompiled files in neutral folder %s. to include them put them in an entry folder", b.rel(dir))
			}
			for _, path := range paths {
				b.state.addNeutral(path)
			}
			return nil
		}
		for _, pc := range precomps {
			if b.state.isExcluded(pc) {
				continue
			}
			p.Precomps = append(p.Precomps, pc)
			if !p.nonPropagated(dir) {
				p.PublicPrecomps = append(p.PublicPrecomps, pc)
			}
		}
		p.entryFiles = append(p.entryFiles, paths...)
		for _, d := range dirs {
			sub := filepath.Join(dir, d)
			if !p.excludes.has(sub) && !p.neutrals.has(sub) && !irrelevant(b.opts.Dir, sub) {
				p.entries.add(sub)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.projectDirs = append(b.projectDirs, p.SubprojectDirs...)

	if err := b.checkLibs(ctx, p); err != nil {
		return err
	}
	extra, err := b.extraFiles(p)
	if err != nil {
		return err
	}
	if err := b.registerFiles(ctx, p, append(p.entryFiles, extra...)); err != nil {
		return err
	}
	if err := checkOverlap(p); err != nil {
		return err
	}
	if log.V(1) {
		clog.Infof(ctx, "presort %s: sources=%d subprojects=%q", p, len(p.sources), p.SubprojectDirs)
	}
	for _, dir := range p.SubprojectDirs {
		if err := b.subproject(ctx, p, dir); err != nil {
			return err
		}
	}
	return nil
}

// checkLibs validates library dirs of the project, and creates their
// dirs in the build dir.
func (b *Builder) checkLibs(ctx context.Context, p *Project) error {
	names := make(map[string]string)
	for _, l := range p.Options.LibDirs {
		name := filepath.Base(l)
		if other, ok := names[name]; ok {
			return DuplicateLibraryError{Name: name, Dirs: []string{other, l}}
		}
		names[name] = l
	}
	for _, l := range p.Options.LibDirs {
		if p.inSubproject(l) {
			return LibraryPlacementError{Dir: l, Reason: "is located in a subproject. if you want to compile a subproject as a library, define that in its config file"}
		}
		if !p.entries.has(l) {
			return LibraryPlacementError{Dir: l, Reason: "is not in an entry path, so it can not be bundled into a library"}
		}
	}
	for _, l := range p.Options.LibDirs {
		err := b.fsys.Mkdir(ctx, filepath.Join(b.buildDir, p.Subdir, filepath.Base(l)), 0755)
		if err != nil {
			return err
		}
	}
	return nil
}

// extraFiles returns files forced into the project by extra file
// patterns. Each pattern must match exactly one excluded or neutral
// file.
func (b *Builder) extraFiles(p *Project) ([]string, error) {
	var taken []string
	for _, pat := range p.extraFiles {
		var matches []string
		for _, path := range append(append([]string(nil), b.state.excluded...), b.state.neutralPaths()...) {
			if hasPathSuffix(path, pat) {
				matches = append(matches, path)
			}
		}
		if len(matches) != 1 {
			return nil, ExtraFileError{Pattern: pat, Matches: matches}
		}
		b.state.removeExcluded(matches[0])
		taken = append(taken, matches[0])
	}
	return taken, nil
}

// registerFiles creates files of the project: sources are compiled by
// the project, and headers go to the header arena.
func (b *Builder) registerFiles(ctx context.Context, p *Project, paths []string) error {
	opts := p.Options
	srcExts := opts.SourceExts()
	for _, path := range paths {
		b.state.claim(path)
		if b.state.isExcluded(path) {
			continue
		}
		switch {
		case srcExts.HasFile(path):
			f, err := b.newFile(ctx, path, "build target "+b.rel(filepath.Dir(path)), opts.LibDirs)
			if err != nil {
				return err
			}
			if err := b.addSource(p, f); err != nil {
				return err
			}
		case opts.HeaderExts.HasFile(path):
			if _, ok := b.state.header(path); ok {
				return fmt.Errorf("multiple definition of header file %s", path)
			}
			f, err := b.newFile(ctx, path, "build target "+b.rel(filepath.Dir(path)), opts.LibDirs)
			if err != nil {
				return err
			}
			b.state.addHeader(f)
		}
	}
	return nil
}

// addSource adds f to sources compiled by p.
func (b *Builder) addSource(p *Project, f *File) error {
	if err := p.addSource(f); err != nil {
		return err
	}
	b.state.addSource(p, f)
	return nil
}

func checkOverlap(p *Project) error {
	var dirs []string
	dirs = append(dirs, p.entries.overlap(p.excludes)...)
	dirs = append(dirs, p.entries.overlap(p.neutrals)...)
	dirs = append(dirs, p.excludes.overlap(p.neutrals)...)
	if len(dirs) > 0 {
		sort.Strings(dirs)
		return OverlapError{Project: p.Dir(), Dirs: dirs}
	}
	return nil
}

// subproject creates the project at dir found in p, unless it is
// ignored or already created.
func (b *Builder) subproject(ctx context.Context, p *Project, dir string) error {
	ents, err := b.fsys.ReadDir(ctx, dir)
	if err != nil {
		return err
	}
	var names []string
	for _, ent := range ents {
		if !ent.IsDir() {
			names = append(names, ent.Name())
		}
	}
	cfgs := configFiles(names)

	cfg, cached := b.cache.Subproj(dir)
	if cfg == cachestore.SubprojIgnore {
		b.verbosef("not using project at %s", b.rel(dir))
		return nil
	}
	if !cached {
		cfg = p.Options.NextConfig
	}
	if !cached && !containsString(cfgs, cfg) {
		b.ui.Warningf("the config file %s was expected to be present in %s", cfg, b.rel(dir))
		ok, err := b.prompter.Confirm(ctx, "Proceed with present config file/s, or ignore this project? (y to proceed/n to ignore this project)")
		if err != nil {
			return err
		}
		if !ok {
			b.ui.Infof("okay, proceeding to handle this folder like an excluded folder")
			return b.ignoreSubproject(ctx, p, dir)
		}
		q := ui.Question{Title: "Which config file to use?"}
		for _, c := range cfgs {
			q.Options = append(q.Options, ui.Option{Label: c})
		}
		i, err := b.prompter.Choose(ctx, q)
		if err != nil {
			return err
		}
		cfg = cfgs[i]
		b.cache.SetSubproj(dir, cfg)
	}

	rp := b.realpath(ctx, dir)
	for _, other := range b.projects {
		if b.realpath(ctx, other.Dir()) == rp && other.Options.ConfigName == cfg {
			clog.Infof(ctx, "project %s is %s", dir, other)
			return nil
		}
	}
	sub, err := b.newProject(ctx, dir, cfg, false, p.Options.Inherited)
	if err != nil {
		return err
	}
	b.projects = append(b.projects, sub)
	return b.presort(ctx, sub)
}

// ignoreSubproject handles the sub-project dir as excluded in p.
func (b *Builder) ignoreSubproject(ctx context.Context, p *Project, dir string) error {
	p.excludes.add(dir)
	allowed := p.Options.AllowedExts()
	err := b.fsys.Walk(ctx, dir, func(d string, dirs, files []string) error {
		for _, f := range files {
			if allowed.HasFile(f) {
				b.state.addExcluded(filepath.Join(d, f))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.cache.SetSubproj(dir, cachestore.SubprojIgnore)
	return nil
}
