// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	log "github.com/golang/glog"

	"go.chromium.org/infra/build/incbuild/build/cachestore"
	"go.chromium.org/infra/build/incbuild/o11y/clog"
	"go.chromium.org/infra/build/incbuild/toolsupport/gccutil"
	"go.chromium.org/infra/build/incbuild/ui"
)

// Prober returns direct deps of a file, or the first include it
// couldn't find.
type Prober interface {
	Probe(ctx context.Context, req gccutil.ProbeRequest) (gccutil.ProbeResult, error)
}

// search resolves includes of sources of p until no more files are
// added. srcs are sources to start with. If nil, all sources of p.
func (b *Builder) search(ctx context.Context, p *Project, srcs []*File) error {
	b.verbosef("searching in project %s", b.rel(p.Dir()))
	started := time.Now()
	if srcs == nil {
		srcs = p.Sources()
	}
	queue := srcs
	round := 0
	for len(queue) > 0 {
		round++
		if log.V(1) {
			clog.Infof(ctx, "search %s round %d: %d files", p, round, len(queue))
		}
		var headers []*File
		for _, f := range queue {
			incs, err := b.fillIncludes(ctx, p, f)
			if err != nil {
				return err
			}
			for _, h := range incs {
				if b.state.checked[h.Path] {
					continue
				}
				b.state.checked[h.Path] = true
				headers = append(headers, h)
			}
		}
		queue = nil
		for _, h := range headers {
			added, err := b.findSource(ctx, p, h)
			if err != nil {
				return err
			}
			queue = append(queue, added...)
		}
	}
	b.verbosef("iterative include-search done in %s", time.Since(started))
	return nil
}

// fillIncludes resolves includes of f, and returns files it includes.
// It uses the cache if f is fresh.
func (b *Builder) fillIncludes(ctx context.Context, p *Project, f *File) ([]*File, error) {
	if files, ok := b.state.resolved[f.Path]; ok {
		return files, nil
	}
	files, err := b.resolveIncludes(ctx, p, f)
	if err != nil {
		return nil, err
	}
	b.state.resolved[f.Path] = files
	return files, nil
}

func (b *Builder) resolveIncludes(ctx context.Context, p *Project, f *File) ([]*File, error) {
	if !b.cache.Stale(ctx, b.fsys, f.Path, true) {
		e, _ := b.cache.Reuse(f.Path)
		f.IncludeDirs = append([]string(nil), e.IncludeDirs()...)
		b.stats.reused()
		return b.combine(ctx, p, f, e.I)
	}
	comp, flags := p.toolFor(f)
	var searchDirs, reasons []string
	var res gccutil.ProbeResult
	for {
		var err error
		res, err = b.probe(ctx, gccutil.ProbeRequest{
			Compiler:    comp,
			File:        f.Path,
			IncludeDirs: f.IncludeDirs,
			Flags:       flags,
			Dir:         b.opts.Dir,
		})
		if err != nil {
			return nil, err
		}
		if res.Missing == "" {
			break
		}
		path, err := b.resolveMissing(ctx, p, f, res.Missing)
		if err != nil {
			return nil, err
		}
		dir := includeDir(path, res.Missing)
		if containsString(f.IncludeDirs, dir) {
			return nil, fmt.Errorf("%s: %s is still missing with -I%s", f.Path, res.Missing, dir)
		}
		f.IncludeDirs = append(f.IncludeDirs, dir)
		searchDirs = append(searchDirs, dir)
		reasons = append(reasons, res.Missing)
	}
	files, err := b.combine(ctx, p, f, res.Deps)
	if err != nil {
		return nil, err
	}
	deps := make([]string, 0, len(files))
	for _, inc := range files {
		deps = append(deps, inc.Path)
	}
	if err := b.checkDuality(ctx, f, res.Deps, searchDirs, reasons); err != nil {
		return nil, err
	}
	now := b.now()
	b.cache.Put(f.Path, cachestore.NewEntry(now, deps, f.IncludeDirs))
	for _, inc := range files {
		b.cache.Touch(inc.Path, now)
	}
	return files, nil
}

func (b *Builder) probe(ctx context.Context, req gccutil.ProbeRequest) (gccutil.ProbeResult, error) {
	started := time.Now()
	res, err := b.prober.Probe(ctx, req)
	b.stats.probed(time.Since(started))
	return res, err
}

// includeDir returns the -I dir to find path as name.
func includeDir(path, name string) string {
	dir := path[:len(path)-len(filepath.FromSlash(name))]
	return filepath.Clean(dir)
}

// combine returns files for deps in the top dir, adding new ones to
// the header arena. deps outside of the top dir are system headers.
func (b *Builder) combine(ctx context.Context, p *Project, f *File, deps []string) ([]*File, error) {
	var files []*File
	for _, dep := range deps {
		if dep == f.Path || !inDir(dep, b.opts.Dir) {
			continue
		}
		if h, ok := b.state.header(dep); ok {
			files = append(files, h)
			continue
		}
		h, err := b.newFile(ctx, dep, f.Path, p.Options.LibDirs)
		if err != nil {
			return nil, err
		}
		b.state.addHeader(h)
		files = append(files, h)
	}
	return files, nil
}

// findSource finds the source file for header h, and returns sources
// to resolve in p.
func (b *Builder) findSource(ctx context.Context, p *Project, h *File) ([]*File, error) {
	opts := p.Options
	srcExts := opts.SourceExts()
	if srcExts.Has(h.Ext) {
		// a source included as a header is not compiled on its own.
		if _, ok := inAnyDir(h.Dir, p.excludes.list); ok {
			return nil, ExcludedRequireError{File: h.Path, RequiredBy: h.Reason}
		}
		if owner, ok := b.state.owner(h.Path); ok {
			owner.removeSource(h.Path)
			b.state.removeSource(h.Path)
		}
		return []*File{h}, nil
	}
	if _, ok := p.source(h.Stem); ok {
		return nil, nil
	}
	if src, ok := b.cache.NeededSrc(h.Path); ok {
		if e, ok := b.cache.Loaded(h.Path); ok && e.FreshAt(h.ModTime) {
			if src == "" {
				return nil, nil
			}
			if b.fsys.IsFile(ctx, src) {
				return b.adopt(ctx, p, h, src)
			}
			clog.Warningf(ctx, "source %s for %s is gone", src, h.Path)
		}
	}

	var matches, excluded []string
	for _, ext := range srcExts.Sorted() {
		name := h.Stem + ext
		for _, path := range b.state.neutralPaths() {
			if hasPathSuffix(path, name) {
				matches = append(matches, path)
			}
		}
		for _, path := range b.state.excluded {
			if hasPathSuffix(path, name) {
				excluded = append(excluded, path)
			}
		}
	}
	switch len(matches) {
	case 0:
		b.cache.SetNeededSrc(h.Path, "")
		if b.opts.Verbose {
			b.ui.Infof("no matching source files were found for %s", h.Name)
			if len(excluded) > 0 {
				b.ui.Infof("matches were found in excluded folder:\n%s", joinLines(indent(b.relAll(excluded))))
			}
		}
		return nil, nil
	case 1:
		return b.adopt(ctx, p, h, matches[0])
	}
	q := ui.Question{
		Title:     fmt.Sprintf("Following source files for header file %s with matching names were found", b.rel(h.Path)),
		AllowNone: true,
	}
	for _, m := range matches {
		q.Options = append(q.Options, ui.Option{Label: b.rel(m)})
	}
	i, err := b.prompter.Choose(ctx, q)
	if err != nil {
		return nil, err
	}
	if i < 0 {
		b.ui.Infof("okay, not adding a source file for %s", h.Name)
		b.cache.SetNeededSrc(h.Path, "")
		return nil, nil
	}
	b.ui.Infof("adding %s to compilation", b.rel(matches[i]))
	return b.adopt(ctx, p, h, matches[i])
}

// adopt adds src as the source for header h. If src is in another
// project, it is compiled and resolved in that project.
func (b *Builder) adopt(ctx context.Context, p *Project, h *File, src string) ([]*File, error) {
	b.cache.SetNeededSrc(h.Path, src)
	if owner, ok := b.state.owner(src); ok {
		clog.Infof(ctx, "%s for %s is compiled in %s", src, h.Path, owner)
		return nil, nil
	}
	owner, ok := b.ownerProject(ctx, src)
	if !ok {
		return nil, fmt.Errorf("%s needed by %s does not match any project", src, h.Path)
	}
	f, err := b.newFile(ctx, src, h.Path, owner.Options.LibDirs)
	if err != nil {
		return nil, err
	}
	if err := b.addSource(owner, f); err != nil {
		return nil, err
	}
	if owner == p {
		return []*File{f}, nil
	}
	b.verbosef("adding %s to project %s", b.rel(src), b.rel(owner.Dir()))
	return nil, b.search(ctx, owner, []*File{f})
}
