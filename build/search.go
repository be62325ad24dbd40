// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"go.chromium.org/infra/build/incbuild/o11y/clog"
	"go.chromium.org/infra/build/incbuild/ui"
)

// candidate is a file that may satisfy an include.
type candidate struct {
	path string
	// file is set for known files. nil for neutral files.
	file *File
}

// resolveMissing returns the path of the file to use for the include
// name required by f.
//
// The first of these wins:
//   - the default recorded for name,
//   - the only match in entries of p,
//   - the only match of known headers (or, for a source name, sources
//     of p and sources included as headers) and neutral files,
//   - the match the user chooses.
func (b *Builder) resolveMissing(ctx context.Context, p *Project, f *File, name string) (string, error) {
	if path, ok := b.state.choices[name]; ok {
		clog.Infof(ctx, "%s: use default %s for %s", f.Path, path, name)
		return path, nil
	}
	cands, excluded := b.findCandidates(p, name)
	if len(cands) == 0 {
		return "", b.missingInclude(p, f, name, excluded)
	}

	var inProject []candidate
	var others []string
	for _, c := range cands {
		dir := filepath.Dir(c.path)
		if _, ok := inAnyDir(dir, p.entries.list); ok && !p.inSubproject(dir) {
			inProject = append(inProject, c)
			continue
		}
		others = append(others, c.path)
	}
	if len(inProject) == 1 {
		if b.opts.Verbose && len(others) > 0 {
			b.ui.Infof("ignored non-target matches for needed file %s as file in target folder %s was found:\n%s", name, b.rel(inProject[0].path), joinLines(indent(b.relAll(others))))
		}
		return inProject[0].path, nil
	}

	cands = b.dedupRealpath(ctx, cands)
	if len(cands) == 1 {
		return cands[0].path, nil
	}

	q := ui.Question{
		Title: fmt.Sprintf("File %s requires %s. Multiple possibilities were found:", b.rel(f.Path), name),
	}
	for _, c := range cands {
		opt := ui.Option{Label: b.rel(c.path)}
		if c.file != nil {
			opt.Detail = "also in use by " + b.rel(c.file.Reason)
		}
		q.Options = append(q.Options, opt)
	}
	i, err := b.prompter.Choose(ctx, q)
	if err != nil {
		return "", err
	}
	path := cands[i].path
	always, err := b.prompter.Confirm(ctx, fmt.Sprintf("Include this file automatically for other files requiring %s?", name))
	if err != nil {
		return "", err
	}
	if always {
		b.state.choices[name] = path
	}
	return path, nil
}

// findCandidates returns files matching name, and excluded files
// matching name.
func (b *Builder) findCandidates(p *Project, name string) ([]candidate, []string) {
	var cands []candidate
	if p.Options.HeaderExts.HasFile(name) {
		for _, path := range b.state.headerPaths() {
			if hasPathSuffix(path, name) {
				h, _ := b.state.header(path)
				cands = append(cands, candidate{path: path, file: h})
			}
		}
	} else {
		srcs := p.Sources()
		sort.Slice(srcs, func(i, j int) bool { return srcs[i].Path < srcs[j].Path })
		for _, s := range srcs {
			if hasPathSuffix(s.Path, name) {
				cands = append(cands, candidate{path: s.Path, file: s})
			}
		}
		// sources already included as headers are no longer sources of p.
		for _, path := range b.state.headerPaths() {
			if _, ok := b.state.owner(path); ok || !hasPathSuffix(path, name) {
				continue
			}
			h, _ := b.state.header(path)
			cands = append(cands, candidate{path: path, file: h})
		}
	}
	for _, path := range b.state.neutralPaths() {
		if hasPathSuffix(path, name) {
			cands = append(cands, candidate{path: path})
		}
	}
	var excluded []string
	for _, path := range b.state.excluded {
		if hasPathSuffix(path, name) {
			excluded = append(excluded, path)
		}
	}
	return cands, excluded
}

// dedupRealpath removes candidates with the same realpath as an
// earlier one.
func (b *Builder) dedupRealpath(ctx context.Context, cands []candidate) []candidate {
	seen := make(map[string]bool)
	var r []candidate
	for _, c := range cands {
		rp := b.realpath(ctx, c.path)
		if seen[rp] {
			continue
		}
		seen[rp] = true
		r = append(r, c)
	}
	return r
}

// missingInclude returns an error for name required by f that
// matches no file, with hints where files with similar names are.
func (b *Builder) missingInclude(p *Project, f *File, name string, excluded []string) error {
	err := MissingIncludeError{
		Name:            name,
		RequiredBy:      b.rel(f.Path),
		ExcludedMatches: b.relAll(excluded),
	}
	base := filepath.Base(name)
	if base != name {
		cands, excluded := b.findCandidates(p, base)
		for _, c := range cands {
			err.SameNameMatches = append(err.SameNameMatches, b.rel(c.path))
		}
		err.SameNameMatches = append(err.SameNameMatches, b.relAll(excluded)...)
	}
	if p.Options.SourceExts().HasFile(base) {
		for _, other := range b.projects {
			for _, path := range other.entryFiles {
				if hasPathSuffix(path, base) {
					err.OtherProjects = append(err.OtherProjects, b.rel(path))
				}
			}
		}
	}
	return err
}
