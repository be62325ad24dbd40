// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cachestore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type fakeModTimer map[string]time.Time

func (f fakeModTimer) ModTime(ctx context.Context, name string) (time.Time, error) {
	t, ok := f[name]
	if !ok {
		return time.Time{}, fs.ErrNotExist
	}
	return t, nil
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "build", FileName)
	now := time.Unix(1700000000, 0)

	s := Load(ctx, path)
	s.CheckHash(ctx, "/src", "abc")
	s.Put("/src/a.c", NewEntry(now, []string{"/src/a.h"}, []string{"/src/"}))
	s.Put("/src/a.h", NewHeaderEntry(now))
	s.SetNeededSrc("/src/x.h", "")
	s.SetSubproj("/src/lib", "comp.toml")
	s.SetLinkerScript("/src", LinkerScriptNone)
	if err := s.Save(ctx); err != nil {
		t.Fatalf("Save=%v; want nil", err)
	}
	want := s.Document()

	got, err := ReadDocument(path)
	if err != nil {
		t.Fatalf("ReadDocument=%v; want nil", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("document diff -want +got:\n%s", diff)
	}
	if !got.Files["/src/a.h"].HeaderOnly() {
		t.Errorf("a.h is not header-only")
	}
	if src, ok := got.NeededSrc["/src/x.h"]; !ok || src != "" {
		t.Errorf("needed_src[x.h]=%q, %t; want \"\", true", src, ok)
	}
	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("tmp file remains: %v", err)
	}
}

func TestLoadBroken(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte("files = ["), 0644); err != nil {
		t.Fatal(err)
	}
	s := Load(ctx, path)
	if _, ok := s.Loaded("/src/a.c"); ok {
		t.Errorf("broken cache has entry")
	}
	if err := os.WriteFile(path, []byte("version = 99\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadDocument(path); err == nil {
		t.Errorf("ReadDocument(version 99)=nil; want err")
	}
}

func TestRerunIdentical(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	now := time.Unix(1700000000, 0)
	mtimes := fakeModTimer{
		"/src/a.c": now.Add(-time.Hour),
		"/src/a.h": now.Add(-time.Hour),
	}

	s := New(path)
	s.CheckHash(ctx, "/src", "abc")
	s.Put("/src/a.c", NewEntry(now, []string{"/src/a.h"}, []string{"/src/"}))
	s.Put("/src/a.h", NewHeaderEntry(now))
	if err := s.Save(ctx); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	s = Load(ctx, path)
	if s.CheckHash(ctx, "/src", "abc") {
		t.Errorf("CheckHash invalidated with same hash")
	}
	if s.Stale(ctx, mtimes, "/src/a.c", true) {
		t.Errorf("a.c is stale")
	}
	if _, ok := s.Reuse("/src/a.c"); !ok {
		t.Errorf("Reuse(a.c) failed")
	}
	if err := s.Save(ctx); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(string(first), string(second)); diff != "" {
		t.Errorf("rerun cache diff -first +second:\n%s", diff)
	}
}

func TestStale(t *testing.T) {
	ctx := context.Background()
	resolved := time.Unix(1700000000, 0)
	before := resolved.Add(-time.Minute)
	after := resolved.Add(time.Minute)

	newStore := func() *Store {
		s := New("comp_cache")
		s.loaded.Files["/src/a.c"] = NewEntry(resolved, []string{"/src/a.h", "/src/b.h"}, []string{"/src/"})
		s.loaded.Files["/src/a.h"] = NewHeaderEntry(resolved)
		s.loaded.Files["/src/b.h"] = NewHeaderEntry(resolved)
		return s
	}
	for _, tc := range []struct {
		name     string
		path     string
		asSource bool
		mtimes   fakeModTimer
		want     bool
	}{
		{
			name:     "fresh",
			path:     "/src/a.c",
			asSource: true,
			mtimes:   fakeModTimer{"/src/a.c": before, "/src/a.h": before, "/src/b.h": before},
			want:     false,
		},
		{
			name:     "absent",
			path:     "/src/c.c",
			asSource: true,
			mtimes:   fakeModTimer{"/src/c.c": before},
			want:     true,
		},
		{
			name:     "modified",
			path:     "/src/a.c",
			asSource: true,
			mtimes:   fakeModTimer{"/src/a.c": after, "/src/a.h": before, "/src/b.h": before},
			want:     true,
		},
		{
			name:     "dep-modified",
			path:     "/src/a.c",
			asSource: true,
			mtimes:   fakeModTimer{"/src/a.c": before, "/src/a.h": before, "/src/b.h": after},
			want:     true,
		},
		{
			name:     "dep-removed",
			path:     "/src/a.c",
			asSource: true,
			mtimes:   fakeModTimer{"/src/a.c": before, "/src/a.h": before},
			want:     true,
		},
		{
			name:     "header-only-as-header",
			path:     "/src/a.h",
			asSource: false,
			mtimes:   fakeModTimer{"/src/a.h": before},
			want:     false,
		},
		{
			name:     "header-only-as-source",
			path:     "/src/a.h",
			asSource: true,
			mtimes:   fakeModTimer{"/src/a.h": before},
			want:     true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := newStore()
			got := s.Stale(ctx, tc.mtimes, tc.path, tc.asSource)
			if got != tc.want {
				t.Errorf("Stale(%q)=%t; want %t", tc.path, got, tc.want)
			}
		})
	}
}

func TestStaleReadsLoadedOnly(t *testing.T) {
	ctx := context.Background()
	resolved := time.Unix(1700000000, 0)
	mtimes := fakeModTimer{
		"/src/a.c": resolved.Add(-time.Hour),
		"/src/b.c": resolved.Add(-time.Hour),
		"/src/a.h": resolved.Add(time.Minute),
	}
	s := New("comp_cache")
	s.loaded.Files["/src/a.c"] = NewEntry(resolved, []string{"/src/a.h"}, nil)
	s.loaded.Files["/src/b.c"] = NewEntry(resolved, []string{"/src/a.h"}, nil)
	s.loaded.Files["/src/a.h"] = NewHeaderEntry(resolved)

	if !s.Stale(ctx, mtimes, "/src/a.c", true) {
		t.Fatalf("a.c is fresh; want stale")
	}
	// re-resolving a.c updates a.h in the current cache.
	s.Put("/src/a.c", NewEntry(resolved.Add(time.Hour), []string{"/src/a.h"}, nil))
	s.Put("/src/a.h", NewHeaderEntry(resolved.Add(time.Hour)))
	if !s.Stale(ctx, mtimes, "/src/b.c", true) {
		t.Errorf("b.c is fresh after a.c re-resolution; want stale")
	}
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	s := New("comp_cache")
	s.loaded.Hashes["/src"] = "old"
	s.loaded.Files["/src/a.c"] = NewHeaderEntry(time.Unix(1, 0))
	s.loaded.NeededSrc["/src/x.h"] = ""
	s.loaded.Subproj["/src/lib"] = "comp.toml"
	s.loaded.LinkerScript["/src"] = LinkerScriptNone
	s.SetSubproj("/src/other", "comp.toml")

	if !s.CheckHash(ctx, "/src", "new") {
		t.Fatalf("CheckHash with new hash didn't invalidate")
	}
	if _, ok := s.Loaded("/src/a.c"); ok {
		t.Errorf("files table survived")
	}
	if _, ok := s.NeededSrc("/src/x.h"); ok {
		t.Errorf("needed_src table survived")
	}
	if _, ok := s.Subproj("/src/lib"); ok {
		t.Errorf("subproj table survived")
	}
	if _, ok := s.LinkerScript("/src"); ok {
		t.Errorf("linkerscript table survived")
	}
	if c, ok := s.Subproj("/src/other"); !ok || c != "comp.toml" {
		t.Errorf("current choice lost: %q, %t", c, ok)
	}
	d := s.Document()
	if diff := cmp.Diff(map[string]string{"/src": "new"}, d.Hashes); diff != "" {
		t.Errorf("hashes diff -want +got:\n%s", diff)
	}
}

func TestTouch(t *testing.T) {
	t1 := time.Unix(1700000000, 0)
	t2 := t1.Add(time.Minute)
	s := New(filepath.Join(t.TempDir(), FileName))
	s.Put("/src/b.c", NewEntry(t1, []string{"/src/b.h"}, []string{"/inc"}))
	s.Touch("/src/b.c", t2)
	s.Touch("/src/b.h", t2)

	want := NewEntry(t2, []string{"/src/b.h"}, []string{"/inc"})
	if got, _ := s.Current("/src/b.c"); !cmp.Equal(want, got) {
		t.Errorf("Current(b.c)=%v; want %v", got, want)
	}
	if got, _ := s.Current("/src/b.h"); !got.HeaderOnly() || got.T != t2.UnixNano() {
		t.Errorf("Current(b.h)=%v; want header-only at %v", got, t2)
	}
}
