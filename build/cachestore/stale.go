// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cachestore

import (
	"context"
	"time"

	log "github.com/golang/glog"

	"go.chromium.org/infra/build/incbuild/o11y/clog"
)

// ModTimer provides modification times of files.
type ModTimer interface {
	ModTime(ctx context.Context, name string) (time.Time, error)
}

// Stale reports whether the loaded entry of path needs re-resolution.
// asSource is true if path is compiled, so a header-only entry
// can't be used.
//
// An entry is stale if it is absent, the file is modified after the
// entry, or any of its deps is modified after the dep's own entry.
// A dep that no longer exists is stale.
func (s *Store) Stale(ctx context.Context, fsys ModTimer, path string, asSource bool) bool {
	e, ok := s.loaded.Files[path]
	if !ok {
		return true
	}
	if asSource && e.HeaderOnly() {
		return true
	}
	mtime, err := fsys.ModTime(ctx, path)
	if err != nil || !e.FreshAt(mtime) {
		return true
	}
	for _, dep := range e.I {
		de, ok := s.loaded.Files[dep]
		if !ok {
			if log.V(1) {
				clog.Infof(ctx, "%s: dep %s not in cache", path, dep)
			}
			return true
		}
		mtime, err := fsys.ModTime(ctx, dep)
		if err != nil || !de.FreshAt(mtime) {
			if log.V(1) {
				clog.Infof(ctx, "%s: dep %s modified: %v", path, dep, err)
			}
			return true
		}
	}
	return false
}

// Reuse carries the loaded entry of path and its deps' entries over
// to the current cache. It returns the entry.
func (s *Store) Reuse(path string) (Entry, bool) {
	e, ok := s.loaded.Files[path]
	if !ok {
		return Entry{}, false
	}
	s.carry(path, e)
	for _, dep := range e.I {
		if de, ok := s.loaded.Files[dep]; ok {
			s.carry(dep, de)
		}
	}
	return e, true
}

func (s *Store) carry(path string, e Entry) {
	if _, ok := s.current.Files[path]; ok {
		return
	}
	s.current.Files[path] = e
}

// Touch records path as resolved at t.
// Deps and include dirs recorded in the current run are kept.
func (s *Store) Touch(path string, t time.Time) {
	e := s.current.Files[path]
	e.T = t.UnixNano()
	s.current.Files[path] = e
}
