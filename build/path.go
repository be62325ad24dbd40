// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import (
	"os"
	"path/filepath"
	"strings"
)

// BuildDirName is the name of the build output dir in the top dir.
const BuildDirName = "build"

// inDir reports whether path is dir or is under dir.
func inDir(path, dir string) bool {
	if path == dir {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(dir, string(os.PathSeparator))+string(os.PathSeparator))
}

// inAnyDir returns the longest dir in dirs that contains path.
func inAnyDir(path string, dirs []string) (string, bool) {
	var found string
	for _, dir := range dirs {
		if inDir(path, dir) && len(dir) > len(found) {
			found = dir
		}
	}
	return found, found != ""
}

// hasPathSuffix reports whether path names the file spelled as name,
// i.e. path ends with /name.
func hasPathSuffix(path, name string) bool {
	name = filepath.FromSlash(name)
	return path == name || strings.HasSuffix(path, string(os.PathSeparator)+name)
}

// irrelevant reports whether dir, under topDir, is ignored:
// hidden dirs and the build output dir.
func irrelevant(topDir, dir string) bool {
	rel, err := filepath.Rel(topDir, dir)
	if err != nil || rel == "." {
		return false
	}
	elems := strings.Split(rel, string(os.PathSeparator))
	if elems[0] == BuildDirName {
		return true
	}
	for _, elem := range elems {
		if strings.HasPrefix(elem, ".") && elem != ".." {
			return true
		}
	}
	return false
}

// stem returns the file name without extension.
func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// relPath returns path relative to dir, or path if it is not under dir.
func relPath(dir, path string) string {
	if !inDir(path, dir) {
		return path
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return path
	}
	return rel
}

func removeString(list []string, s string) []string {
	r := list[:0]
	for _, e := range list {
		if e != s {
			r = append(r, e)
		}
	}
	return r
}

func containsString(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
