// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"go.chromium.org/infra/build/incbuild/o11y/clog"
)

var (
	entryStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	projectStyle = entryStyle.Bold(true)
	excludeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// dirKind is a kind of dir in the structure.
type dirKind int

const (
	dirOther dirKind = iota
	dirEntry
	dirProject
	dirNeutral
	dirExclude
)

// dirKinds returns kinds of dirs of all projects.
func (b *Builder) dirKinds() map[string]dirKind {
	kinds := make(map[string]dirKind)
	for _, p := range b.projects {
		for _, d := range p.excludes.list {
			kinds[d] = dirExclude
		}
		for _, d := range p.entries.list {
			kinds[d] = dirEntry
		}
		for _, d := range p.neutrals.list {
			kinds[d] = dirNeutral
		}
	}
	for _, d := range b.projectDirs {
		if kinds[d] == dirEntry {
			kinds[d] = dirProject
		}
	}
	return kinds
}

// structure returns a tree of dirs in the top dir.
// Entries are green, with project dirs in bold and marked (P).
// Excluded dirs are red.
func (b *Builder) structure(ctx context.Context) (*tree.Tree, error) {
	kinds := b.dirKinds()
	nodes := make(map[string]*tree.Tree)
	var root *tree.Tree
	err := b.fsys.Walk(ctx, b.opts.Dir, func(dir string, dirs, files []string) error {
		if irrelevant(b.opts.Dir, dir) {
			return filepath.SkipDir
		}
		label := filepath.Base(dir)
		if dir == b.opts.Dir {
			label = dir
		}
		switch kinds[dir] {
		case dirEntry:
			label = entryStyle.Render(label)
		case dirProject:
			label = projectStyle.Render(label) + " (P)"
		case dirExclude:
			label = excludeStyle.Render(label)
		}
		node := tree.Root(label)
		nodes[dir] = node
		if parent, ok := nodes[filepath.Dir(dir)]; ok && dir != b.opts.Dir {
			parent.Child(node)
		} else if root == nil {
			root = node
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return root, nil
}

// printStructure prints the structure of the top dir.
func (b *Builder) printStructure(ctx context.Context) {
	t, err := b.structure(ctx)
	if err != nil {
		clog.Warningf(ctx, "failed to get structure: %v", err)
		b.ui.Warningf("failed to print the structure: %v", err)
		return
	}
	b.outMu.Lock()
	defer b.outMu.Unlock()
	fmt.Fprintln(b.out, t.String())
}
