// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package cachestore provides the persisted resolution cache of incbuild.
package cachestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"go.chromium.org/infra/build/incbuild/o11y/clog"
)

// FileName is the name of the cache document in the build dir.
const FileName = "comp_cache"

// Version is the version of the cache document.
const Version = 1

const (
	// SubprojIgnore is recorded in subproj table for a dir
	// the user chose to handle as excluded.
	SubprojIgnore = "!ignore"

	// LinkerScriptNone is recorded when the user chose no linker script.
	LinkerScriptNone = "X"
	// LinkerScriptNotFound is recorded when no linker script was found.
	LinkerScriptNotFound = "N"
)

// Entry is a cache entry of a file.
type Entry struct {
	// T is the time of the last resolution in unix nanoseconds.
	T int64 `toml:"T"`
	// I are dependency paths.
	I []string `toml:"I,omitempty"`
	// S are include dirs. nil for header-only entries.
	S *[]string `toml:"S,omitempty"`
}

// NewEntry creates a new entry resolved at t.
func NewEntry(t time.Time, deps []string, includeDirs []string) Entry {
	s := append([]string{}, includeDirs...)
	return Entry{
		T: t.UnixNano(),
		I: deps,
		S: &s,
	}
}

// NewHeaderEntry creates a new header-only entry at t.
func NewHeaderEntry(t time.Time) Entry {
	return Entry{T: t.UnixNano()}
}

// HeaderOnly reports whether the entry is header-only.
func (e Entry) HeaderOnly() bool {
	return e.S == nil
}

// IncludeDirs returns include dirs of the entry.
func (e Entry) IncludeDirs() []string {
	if e.S == nil {
		return nil
	}
	return *e.S
}

// FreshAt reports whether the entry is newer than mtime.
func (e Entry) FreshAt(mtime time.Time) bool {
	return e.T > mtime.UnixNano()
}

// Document is the persisted cache document.
type Document struct {
	Version int `toml:"version"`
	// Files maps path to entry.
	Files map[string]Entry `toml:"files,omitempty"`
	// Hashes maps project dir to config fingerprint.
	Hashes map[string]string `toml:"hashes,omitempty"`
	// NeededSrc maps header to its source path, or "" for no source.
	NeededSrc map[string]string `toml:"needed_src,omitempty"`
	// Subproj maps sub-project dir to its config name, or SubprojIgnore.
	Subproj map[string]string `toml:"subproj,omitempty"`
	// LinkerScript maps project dir to linker script path,
	// LinkerScriptNone or LinkerScriptNotFound.
	LinkerScript map[string]string `toml:"linkerscript,omitempty"`
}

func newDocument() Document {
	return Document{
		Version:      Version,
		Files:        make(map[string]Entry),
		Hashes:       make(map[string]string),
		NeededSrc:    make(map[string]string),
		Subproj:      make(map[string]string),
		LinkerScript: make(map[string]string),
	}
}

func (d *Document) init() {
	if d.Files == nil {
		d.Files = make(map[string]Entry)
	}
	if d.Hashes == nil {
		d.Hashes = make(map[string]string)
	}
	if d.NeededSrc == nil {
		d.NeededSrc = make(map[string]string)
	}
	if d.Subproj == nil {
		d.Subproj = make(map[string]string)
	}
	if d.LinkerScript == nil {
		d.LinkerScript = make(map[string]string)
	}
}

// ReadDocument reads the cache document at fname.
func ReadDocument(fname string) (Document, error) {
	buf, err := os.ReadFile(fname)
	if err != nil {
		return Document{}, err
	}
	var d Document
	if err := toml.Unmarshal(buf, &d); err != nil {
		return Document{}, fmt.Errorf("parse %s: %w", fname, err)
	}
	if d.Version != Version {
		return Document{}, fmt.Errorf("%s: version %d; want %d", fname, d.Version, Version)
	}
	d.init()
	return d, nil
}

// Store holds the cache loaded from the previous run, and the cache
// of the current run.
// Staleness is checked against the loaded cache only, so an update in
// the current run doesn't hide a change from other dependents.
type Store struct {
	path    string
	loaded  Document
	current Document
}

// New creates an empty store saved at path.
func New(path string) *Store {
	return &Store{
		path:    path,
		loaded:  newDocument(),
		current: newDocument(),
	}
}

// Load loads the store from path.
// A missing or broken document gives an empty store.
func Load(ctx context.Context, path string) *Store {
	s := New(path)
	d, err := ReadDocument(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		clog.Infof(ctx, "no cache at %s", path)
	case err != nil:
		clog.Warningf(ctx, "discard cache: %v", err)
	default:
		s.loaded = d
		clog.Infof(ctx, "loaded cache %s: files=%d", path, len(d.Files))
	}
	return s
}

// Path returns the path of the document.
func (s *Store) Path() string {
	return s.path
}

// CheckHash records the config fingerprint of the project dir, and
// invalidates the loaded cache if it doesn't match the loaded one.
// It returns true if the cache was invalidated.
func (s *Store) CheckHash(ctx context.Context, dir, hash string) bool {
	s.current.Hashes[dir] = hash
	old, ok := s.loaded.Hashes[dir]
	if ok && old == hash {
		return false
	}
	clog.Infof(ctx, "config of %s changed %q -> %q. invalidate cache", dir, old, hash)
	s.Invalidate()
	return true
}

// Invalidate discards the loaded cache except the hashes table.
func (s *Store) Invalidate() {
	hashes := s.loaded.Hashes
	s.loaded = newDocument()
	s.loaded.Hashes = hashes
}

// Loaded returns the entry of the path in the loaded cache.
func (s *Store) Loaded(path string) (Entry, bool) {
	e, ok := s.loaded.Files[path]
	return e, ok
}

// Put sets the entry of the path in the current cache.
func (s *Store) Put(path string, e Entry) {
	s.current.Files[path] = e
}

// Current returns the entry of the path in the current cache.
func (s *Store) Current(path string) (Entry, bool) {
	e, ok := s.current.Files[path]
	return e, ok
}

// NeededSrc returns the source recorded for the header.
// "" means no source is needed.
func (s *Store) NeededSrc(header string) (string, bool) {
	if src, ok := s.current.NeededSrc[header]; ok {
		return src, true
	}
	src, ok := s.loaded.NeededSrc[header]
	return src, ok
}

// SetNeededSrc records the source for the header.
func (s *Store) SetNeededSrc(header, src string) {
	s.current.NeededSrc[header] = src
}

// Subproj returns the config name recorded for the sub-project dir.
func (s *Store) Subproj(dir string) (string, bool) {
	if c, ok := s.current.Subproj[dir]; ok {
		return c, true
	}
	c, ok := s.loaded.Subproj[dir]
	return c, ok
}

// SetSubproj records the config name for the sub-project dir.
func (s *Store) SetSubproj(dir, config string) {
	s.current.Subproj[dir] = config
}

// LinkerScript returns the linker script recorded for the project dir.
func (s *Store) LinkerScript(dir string) (string, bool) {
	if v, ok := s.current.LinkerScript[dir]; ok {
		return v, true
	}
	v, ok := s.loaded.LinkerScript[dir]
	return v, ok
}

// SetLinkerScript records the linker script for the project dir.
func (s *Store) SetLinkerScript(dir, script string) {
	s.current.LinkerScript[dir] = script
}

// Document returns the document to be saved: the loaded cache
// overwritten by the current cache.
func (s *Store) Document() Document {
	d := newDocument()
	for _, src := range []Document{s.loaded, s.current} {
		for k, v := range src.Files {
			d.Files[k] = v
		}
		for k, v := range src.Hashes {
			d.Hashes[k] = v
		}
		for k, v := range src.NeededSrc {
			d.NeededSrc[k] = v
		}
		for k, v := range src.Subproj {
			d.Subproj[k] = v
		}
		for k, v := range src.LinkerScript {
			d.LinkerScript[k] = v
		}
	}
	return d
}

// Save writes the document atomically (write temp + rename).
func (s *Store) Save(ctx context.Context) error {
	d := s.Document()
	buf, err := toml.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename cache: %w", err)
	}
	clog.Infof(ctx, "saved cache %s: files=%d %d bytes", s.path, len(d.Files), len(buf))
	return nil
}
