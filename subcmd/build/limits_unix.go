// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

//go:build !windows

package build

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"

	"go.chromium.org/infra/build/incbuild/o11y/clog"
	"go.chromium.org/infra/build/incbuild/ui"
)

// checkResourceLimits warns if the file limit is too low for jobs
// compile workers.
func checkResourceLimits(ctx context.Context, jobs int) {
	var lim unix.Rlimit
	err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim)
	if err != nil {
		clog.Warningf(ctx, "failed to get rlimit: %v", err)
		return
	}
	// compiler, preprocessor and ccache pipes per worker, plus the walk.
	nfile := uint64(jobs)*8 + 64
	clog.Infof(ctx, "rlimit.nofile=%d,%d required=%d?", lim.Cur, lim.Max, nfile)
	if lim.Cur < nfile {
		ui.Default.PrintLines(ui.SGR(ui.Yellow, fmt.Sprintf("WARNING: too low file limit=%d. would fail with too many open files\n", lim.Cur)))
	}
}
