// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.chromium.org/infra/build/incbuild/o11y/clog"
)

// lockFileName is the name of the lock file in the build dir.
const lockFileName = ".incbuild_lock"

type errAlreadyLocked struct {
	err    error
	bufErr error
	fname  string
	owner  string
}

func (l errAlreadyLocked) Error() string {
	if l.bufErr != nil {
		return fmt.Sprintf("%s is locked, and failed to read: %v", l.fname, l.bufErr)
	}
	return fmt.Sprintf("%s is locked by %s: %v", l.fname, l.owner, l.err)
}

func (l errAlreadyLocked) Unwrap() error {
	if l.err != nil {
		return l.err
	}
	return l.bufErr
}

// lock takes the lock of the build dir, waiting for another run
// holding it. It returns a func to release the lock.
func (b *Builder) lock(ctx context.Context) (func(), error) {
	fname := filepath.Join(b.buildDir, lockFileName)
	lock, err := newLockFile(fname)
	switch {
	case errors.Is(err, errors.ErrUnsupported):
		clog.Warningf(ctx, "lockfile is not supported")
		return func() {}, nil
	case err != nil:
		return nil, err
	}
	var owner string
	for {
		err = lock.Lock()
		alreadyLocked := &errAlreadyLocked{}
		if errors.As(err, &alreadyLocked) {
			if owner != alreadyLocked.owner {
				if owner != "" {
					b.ui.Infof("lock holder %s completed", owner)
				}
				owner = alreadyLocked.owner
				b.ui.Infof("waiting for lock holder %s..", owner)
			}
			select {
			case <-ctx.Done():
				lock.Close()
				return nil, context.Cause(ctx)
			case <-time.After(500 * time.Millisecond):
				continue
			}
		} else if err != nil {
			lock.Close()
			return nil, err
		}
		if owner != "" {
			b.ui.Infof("lock holder %s completed", owner)
		}
		break
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			clog.Warningf(ctx, "failed to unlock %s: %v", fname, err)
		}
		if err := lock.Close(); err != nil {
			clog.Warningf(ctx, "failed to close %s: %v", fname, err)
		}
	}, nil
}
