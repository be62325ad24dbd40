// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

//go:build windows

package runtimex

import (
	"runtime"

	"golang.org/x/sys/windows"
)

const allProcessorGroups = 0xFFFF

var procGetActiveProcessorCount = windows.NewLazySystemDLL("kernel32.dll").NewProc("GetActiveProcessorCount")

// activeProcessorCount counts cpus of all processor groups.
// runtime.NumCPU only sees the group of the current process, up to 64.
func activeProcessorCount() int {
	if err := procGetActiveProcessorCount.Find(); err != nil {
		return runtime.NumCPU()
	}
	n, _, _ := procGetActiveProcessorCount.Call(allProcessorGroups)
	if n == 0 {
		return runtime.NumCPU()
	}
	return int(n)
}
