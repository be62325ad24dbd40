// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ui

import (
	"fmt"
	"time"
)

// FormatDuration formats d for build reports, as "1.23s", "4m05.67s" or
// "1h2m03.45s", rounded to centiseconds.
func FormatDuration(d time.Duration) string {
	d = d.Round(10 * time.Millisecond)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	secs := d.Seconds()
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%dm%05.2fs", h, m, secs)
	case m > 0:
		return fmt.Sprintf("%dm%05.2fs", m, secs)
	}
	return fmt.Sprintf("%.2fs", secs)
}
