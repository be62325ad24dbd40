// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import "context"

func checkResourceLimits(ctx context.Context, jobs int) {
}
