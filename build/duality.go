// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import (
	"context"
	"fmt"
	"path/filepath"

	"go.chromium.org/infra/build/incbuild/scandeps"
)

// includeStmt is an include statement in a file.
type includeStmt struct {
	name string
	// dir is the dir of the including file.
	dir  string
	file string
}

// includeMatch is a file matching an include statement.
type includeMatch struct {
	path string
	// via is the dir it is found in.
	via    string
	reason string
}

// checkDuality warns if an include statement of f or its deps matches
// more than one distinct file in the adjacent dir or searchDirs.
// reasons[i] is the include name that added searchDirs[i].
func (b *Builder) checkDuality(ctx context.Context, f *File, deps, searchDirs, reasons []string) error {
	if len(searchDirs) == 0 {
		return nil
	}
	var stmts []includeStmt
	for _, name := range b.knownIncludes(ctx, f.Path, deps) {
		stmts = append(stmts, includeStmt{name: name, dir: f.Dir, file: f.Name})
	}
	for _, dep := range deps {
		if !inDir(dep, b.opts.Dir) {
			continue
		}
		for _, name := range b.knownIncludes(ctx, dep, deps) {
			stmts = append(stmts, includeStmt{name: name, dir: filepath.Dir(dep), file: filepath.Base(dep)})
		}
	}

	for _, st := range stmts {
		var matches []includeMatch
		adjacent := filepath.Join(st.dir, st.name)
		if b.fsys.IsFile(ctx, adjacent) {
			matches = append(matches, includeMatch{path: adjacent, via: st.dir, reason: "self"})
		}
	dirs:
		for i, dir := range searchDirs {
			path := filepath.Join(dir, st.name)
			if !b.fsys.IsFile(ctx, path) {
				continue
			}
			rp := b.realpath(ctx, path)
			for _, m := range matches {
				if b.realpath(ctx, m.path) == rp {
					continue dirs
				}
			}
			matches = append(matches, includeMatch{path: path, via: dir, reason: reasons[i]})
		}
		switch len(matches) {
		case 0:
			b.verbosef("can't find manually included file %s in this project, can't check for dual includes", b.rel(adjacent))
		case 1:
		default:
			lines := []string{fmt.Sprintf("Multiple files of the name %s included for file %s:", st.name, b.rel(filepath.Join(st.dir, st.file)))}
			for i, m := range matches {
				lines = append(lines,
					fmt.Sprintf("%s %s", sgrBold(fmt.Sprintf("(%d)", i)), b.rel(m.path)),
					"\tIncluded via path "+b.rel(m.via),
					fmt.Sprintf("\tPresent because of %s requirement in %s", m.reason, b.rel(f.Path)))
			}
			lines = append(lines,
				fmt.Sprintf("File %s will take priority according to gcc include rules.", b.rel(matches[0].path)),
				"Consider adding a more specifying path to your include statements to make them unique")
			b.ui.Warningf("%s", joinLines(lines))
			if err := b.acknowledge(ctx, "Press Enter to accept this"); err != nil {
				return err
			}
		}
	}
	return nil
}

// knownIncludes returns include names in the file at path that are
// found in deps.
func (b *Builder) knownIncludes(ctx context.Context, path string, deps []string) []string {
	names, ok := b.state.includes[path]
	if !ok {
		buf, err := b.fsys.ReadFile(ctx, path)
		if err != nil {
			b.verbosef("failed to read %s: %v", b.rel(path), err)
		}
		names = scandeps.IncludeNames(ctx, path, buf)
		b.state.includes[path] = names
	}
	var known []string
	for _, name := range names {
		for _, dep := range deps {
			if hasPathSuffix(dep, name) {
				known = append(known, name)
				break
			}
		}
	}
	return known
}
