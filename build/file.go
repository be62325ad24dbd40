// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import (
	"context"
	"fmt"
	"path/filepath"
	"time"
)

// File is a source or header file. Its identity is Path.
type File struct {
	// Path is the absolute path, and the cache key.
	Path string
	Dir  string
	Name string
	Stem string
	Ext  string

	// Reason is why the file is in the build: a requiring file,
	// or a build target dir.
	Reason string

	ModTime time.Time

	// Lib is the name of the library the file is compiled into,
	// or empty.
	Lib string

	// IncludeDirs are -I dirs needed to resolve includes of the file,
	// in order of resolution.
	IncludeDirs []string
}

func (f *File) String() string {
	return f.Path
}

// newFile creates a File for path.
// libDirs are library dirs of the project the file belongs to.
func (b *Builder) newFile(ctx context.Context, path, reason string, libDirs []string) (*File, error) {
	mtime, err := b.fsys.ModTime(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("file %s (required by %s): %w", path, reason, err)
	}
	name := filepath.Base(path)
	f := &File{
		Path:    path,
		Dir:     filepath.Dir(path),
		Name:    name,
		Stem:    stem(name),
		Ext:     filepath.Ext(name),
		Reason:  reason,
		ModTime: mtime,
	}
	if lib, ok := inAnyDir(f.Dir, libDirs); ok {
		f.Lib = filepath.Base(lib)
	}
	return f, nil
}
