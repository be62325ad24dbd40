// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import (
	"testing"
)

func TestInAnyDir(t *testing.T) {
	dirs := []string{"/top/src", "/top/src/lib", "/top/srcx"}
	for _, tc := range []struct {
		path string
		want string
		ok   bool
	}{
		{path: "/top/src/a.c", want: "/top/src", ok: true},
		{path: "/top/src/lib/b.c", want: "/top/src/lib", ok: true},
		{path: "/top/src/lib", want: "/top/src/lib", ok: true},
		{path: "/top/srcx/c.c", want: "/top/srcx", ok: true},
		{path: "/top/srcy/d.c"},
		{path: "/top/a.c"},
	} {
		got, ok := inAnyDir(tc.path, dirs)
		if got != tc.want || ok != tc.ok {
			t.Errorf("inAnyDir(%q)=%q, %t; want %q, %t", tc.path, got, ok, tc.want, tc.ok)
		}
	}
}

func TestHasPathSuffix(t *testing.T) {
	for _, tc := range []struct {
		path, name string
		want       bool
	}{
		{path: "/top/inc/a.h", name: "a.h", want: true},
		{path: "/top/inc/a.h", name: "inc/a.h", want: true},
		{path: "/top/inc/ba.h", name: "a.h", want: false},
		{path: "/top/inc/a.h", name: "other/a.h", want: false},
	} {
		if got := hasPathSuffix(tc.path, tc.name); got != tc.want {
			t.Errorf("hasPathSuffix(%q, %q)=%t; want %t", tc.path, tc.name, got, tc.want)
		}
	}
}

func TestIrrelevant(t *testing.T) {
	for _, tc := range []struct {
		dir  string
		want bool
	}{
		{dir: "/top", want: false},
		{dir: "/top/src", want: false},
		{dir: "/top/build", want: true},
		{dir: "/top/build/obj", want: true},
		{dir: "/top/src/build", want: false},
		{dir: "/top/.git", want: true},
		{dir: "/top/src/.cache/x", want: true},
	} {
		if got := irrelevant("/top", tc.dir); got != tc.want {
			t.Errorf("irrelevant(%q)=%t; want %t", tc.dir, got, tc.want)
		}
	}
}
