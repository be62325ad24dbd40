// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import (
	"sort"
)

// BuildState holds the registries shared by all projects in a run.
// It is used by presort and the resolver, which run on a single
// goroutine, so it has no lock.
type BuildState struct {
	// headers is the header arena keyed by absolute path.
	headers map[string]*File

	// neutral are paths of files in neutral dirs, not claimed yet.
	neutral map[string]bool

	// excluded are paths of files in excluded dirs, in discovery order.
	excluded    []string
	excludedSet map[string]bool

	// sources maps path of a compiled source to its project.
	sources map[string]*Project

	// choices maps include spelling to the path the user chose to use
	// for every file requiring it.
	choices map[string]string

	// checked are headers already handled by the resolver.
	checked map[string]bool

	// resolved maps path to files it includes, for files whose
	// includes are resolved in this run.
	resolved map[string][]*File

	// includes caches include names read from files.
	includes map[string][]string
}

func newBuildState() *BuildState {
	return &BuildState{
		headers:     make(map[string]*File),
		neutral:     make(map[string]bool),
		excludedSet: make(map[string]bool),
		sources:     make(map[string]*Project),
		choices:     make(map[string]string),
		checked:     make(map[string]bool),
		resolved:    make(map[string][]*File),
		includes:    make(map[string][]string),
	}
}

// header returns the header file of path.
func (s *BuildState) header(path string) (*File, bool) {
	f, ok := s.headers[path]
	return f, ok
}

// addHeader adds f to the header arena. f is no longer neutral.
func (s *BuildState) addHeader(f *File) {
	s.headers[f.Path] = f
	delete(s.neutral, f.Path)
}

// headerPaths returns paths in the header arena, sorted.
func (s *BuildState) headerPaths() []string {
	paths := make([]string, 0, len(s.headers))
	for p := range s.headers {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (s *BuildState) addNeutral(path string) {
	s.neutral[path] = true
}

// claim removes path from neutral files.
func (s *BuildState) claim(path string) {
	delete(s.neutral, path)
}

// neutralPaths returns neutral files, sorted.
func (s *BuildState) neutralPaths() []string {
	paths := make([]string, 0, len(s.neutral))
	for p := range s.neutral {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (s *BuildState) addExcluded(path string) {
	if s.excludedSet[path] {
		return
	}
	s.excludedSet[path] = true
	s.excluded = append(s.excluded, path)
}

func (s *BuildState) removeExcluded(path string) {
	if !s.excludedSet[path] {
		return
	}
	delete(s.excludedSet, path)
	s.excluded = removeString(s.excluded, path)
}

func (s *BuildState) isExcluded(path string) bool {
	return s.excludedSet[path]
}

// addSource records f as a source compiled in p.
func (s *BuildState) addSource(p *Project, f *File) {
	s.sources[f.Path] = p
	delete(s.neutral, f.Path)
}

func (s *BuildState) removeSource(path string) {
	delete(s.sources, path)
}

// owner returns the project compiling the source path.
func (s *BuildState) owner(path string) (*Project, bool) {
	p, ok := s.sources[path]
	return p, ok
}
