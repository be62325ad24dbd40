// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package watch

import (
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
)

func TestRelevant(t *testing.T) {
	top := filepath.FromSlash("/src/proj")
	for _, tc := range []struct {
		name  string
		path  string
		op    fsnotify.Op
		isDir bool
		want  bool
	}{
		{name: "source", path: "src/a.c", op: fsnotify.Write, want: true},
		{name: "header", path: "inc/a.hpp", op: fsnotify.Create, want: true},
		{name: "config", path: "lib/release.comp.toml", op: fsnotify.Write, want: true},
		{name: "linker-script", path: "link.ld", op: fsnotify.Write, want: true},
		{name: "chmod", path: "src/a.c", op: fsnotify.Chmod, want: false},
		{name: "other-file", path: "README.md", op: fsnotify.Write, want: false},
		{name: "build-dir", path: "build/top#comp.toml/obj/a.o", op: fsnotify.Create, want: false},
		{name: "hidden", path: ".git/index.h", op: fsnotify.Write, want: false},
		{name: "new-dir", path: "src/new", op: fsnotify.Create, isDir: true, want: true},
		{name: "removed-dir", path: "src/old", op: fsnotify.Remove, want: true},
		{name: "outside", path: "../other/a.c", op: fsnotify.Write, want: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ev := fsnotify.Event{Name: filepath.Join(top, filepath.FromSlash(tc.path)), Op: tc.op}
			if got := relevant(top, ev, tc.isDir); got != tc.want {
				t.Errorf("relevant(%q, %v)=%t; want %t", tc.path, tc.op, got, tc.want)
			}
		})
	}
}
