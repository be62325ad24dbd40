// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package osfs provides OS Filesystem access.
package osfs

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.chromium.org/infra/build/incbuild/o11y/clog"
	"go.chromium.org/infra/build/incbuild/o11y/iometrics"
)

// OSFS provides OS Filesystem access.
// It counts metrics by iometrics, and memoizes realpath lookups
// since the tree is not expected to be restructured during a run.
type OSFS struct {
	*iometrics.IOMetrics

	mu       sync.Mutex
	realpath map[string]string
}

// New creates new OSFS.
func New(name string) *OSFS {
	return &OSFS{
		IOMetrics: iometrics.New(name),
		realpath:  make(map[string]string),
	}
}

const slowThreshold = 1 * time.Minute

func logSlow(ctx context.Context, name string, dur time.Duration, err error) {
	buf := make([]byte, 4*1024)
	n := runtime.Stack(buf, false)
	clog.Warningf(ctx, "slow op %s: %s %v\n%s", name, dur, err, buf[:n])
}

// Stat returns a FileInfo describing the named file, following symlinks.
func (fsys *OSFS) Stat(ctx context.Context, name string) (fs.FileInfo, error) {
	started := time.Now()
	fi, err := os.Stat(name)
	fsys.OpsDone(err)
	if dur := time.Since(started); dur > slowThreshold {
		logSlow(ctx, name, dur, err)
	}
	return fi, err
}

// ModTime returns the modification time of the named file.
func (fsys *OSFS) ModTime(ctx context.Context, name string) (time.Time, error) {
	fi, err := fsys.Stat(ctx, name)
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}

// Exists reports whether the named file or directory exists.
func (fsys *OSFS) Exists(ctx context.Context, name string) bool {
	_, err := fsys.Stat(ctx, name)
	return err == nil
}

// IsFile reports whether name exists and is not a directory.
func (fsys *OSFS) IsFile(ctx context.Context, name string) bool {
	fi, err := fsys.Stat(ctx, name)
	return err == nil && !fi.IsDir()
}

// IsDir reports whether name exists and is a directory.
func (fsys *OSFS) IsDir(ctx context.Context, name string) bool {
	fi, err := fsys.Stat(ctx, name)
	return err == nil && fi.IsDir()
}

// ReadDir reads the named directory, returning all its entries sorted by filename.
func (fsys *OSFS) ReadDir(ctx context.Context, name string) ([]fs.DirEntry, error) {
	started := time.Now()
	ents, err := os.ReadDir(name)
	fsys.DirDone(err)
	if dur := time.Since(started); dur > slowThreshold {
		logSlow(ctx, name, dur, err)
	}
	return ents, err
}

// ReadFile reads the named file and returns the contents.
func (fsys *OSFS) ReadFile(ctx context.Context, name string) ([]byte, error) {
	started := time.Now()
	buf, err := os.ReadFile(name)
	fsys.ReadDone(len(buf), err)
	if dur := time.Since(started); dur > slowThreshold {
		logSlow(ctx, name, dur, err)
	}
	return buf, err
}

// WriteFile writes data to the named file, creating it if necessary.
func (fsys *OSFS) WriteFile(ctx context.Context, name string, data []byte, perm fs.FileMode) error {
	started := time.Now()
	err := os.WriteFile(name, data, perm)
	fsys.WriteDone(len(data), err)
	if dur := time.Since(started); dur > slowThreshold {
		logSlow(ctx, name, dur, err)
	}
	return err
}

// Mkdir creates a new directory. It fails if the directory exists.
func (fsys *OSFS) Mkdir(ctx context.Context, dirname string, perm fs.FileMode) error {
	err := os.Mkdir(dirname, perm)
	fsys.OpsDone(err)
	return err
}

// MkdirAll creates a directory named path, along with any necessary parents.
func (fsys *OSFS) MkdirAll(ctx context.Context, dirname string, perm fs.FileMode) error {
	started := time.Now()
	err := os.MkdirAll(dirname, perm)
	fsys.OpsDone(err)
	if dur := time.Since(started); dur > slowThreshold {
		logSlow(ctx, dirname, dur, err)
	}
	return err
}

// Remove removes the named file or directory.
func (fsys *OSFS) Remove(ctx context.Context, name string) error {
	err := os.Remove(name)
	fsys.OpsDone(err)
	return err
}

// RemoveAll removes path and any children it contains.
func (fsys *OSFS) RemoveAll(ctx context.Context, name string) error {
	started := time.Now()
	err := os.RemoveAll(name)
	fsys.OpsDone(err)
	if dur := time.Since(started); dur > slowThreshold {
		logSlow(ctx, name, dur, err)
	}
	return err
}

// Realpath returns the path name after the evaluation of any symbolic links.
// If name does not exist, it returns name cleaned.
func (fsys *OSFS) Realpath(ctx context.Context, name string) string {
	fsys.mu.Lock()
	rp, ok := fsys.realpath[name]
	fsys.mu.Unlock()
	if ok {
		return rp
	}
	rp, err := filepath.EvalSymlinks(name)
	fsys.OpsDone(err)
	if err != nil {
		rp = filepath.Clean(name)
	}
	if !filepath.IsAbs(rp) {
		if abs, err := filepath.Abs(rp); err == nil {
			rp = abs
		}
	}
	fsys.mu.Lock()
	fsys.realpath[name] = rp
	fsys.mu.Unlock()
	return rp
}

// WalkFunc is called for each directory visited by Walk, top-down.
// dirs and files are base names, sorted.
// Returning filepath.SkipDir skips the children of dir.
type WalkFunc func(dir string, dirs, files []string) error

// Walk walks the directory tree rooted at root, top-down, following
// symbolic links to directories. A directory whose realpath is one of its
// own ancestors' is not entered again.
func (fsys *OSFS) Walk(ctx context.Context, root string, fn WalkFunc) error {
	return fsys.walk(ctx, root, nil, fn)
}

func (fsys *OSFS) walk(ctx context.Context, dir string, ancestors []string, fn WalkFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rp := fsys.Realpath(ctx, dir)
	for _, a := range ancestors {
		if a == rp {
			clog.Warningf(ctx, "symlink loop at %s -> %s", dir, rp)
			return nil
		}
	}
	ents, err := fsys.ReadDir(ctx, dir)
	if err != nil {
		return err
	}
	var dirs, files []string
	for _, ent := range ents {
		name := ent.Name()
		isDir := ent.IsDir()
		if ent.Type()&fs.ModeSymlink != 0 {
			fi, err := fsys.Stat(ctx, filepath.Join(dir, name))
			if err != nil {
				// dangling symlink.
				continue
			}
			isDir = fi.IsDir()
		}
		if isDir {
			dirs = append(dirs, name)
			continue
		}
		files = append(files, name)
	}
	sort.Strings(dirs)
	sort.Strings(files)
	err = fn(dir, dirs, files)
	if errors.Is(err, filepath.SkipDir) {
		return nil
	}
	if err != nil {
		return err
	}
	ancestors = append(ancestors, rp)
	for _, d := range dirs {
		err := fsys.walk(ctx, filepath.Join(dir, d), ancestors, fn)
		if err != nil {
			return err
		}
	}
	return nil
}
