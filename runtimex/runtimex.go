// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package runtimex provides cpu counts usable for worker pools.
package runtimex

import (
	"fmt"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

var ncpu = activeProcessorCount()

// NumCPU returns the number of logical CPUs usable by the process.
func NumCPU() int {
	return ncpu
}

// NumWorkers returns the number of compile workers to use for n.
// n > 0 is used as is. Otherwise, the number of logical cores
// reported by cpuid is used, bounded by NumCPU.
func NumWorkers(n int) int {
	if n > 0 {
		return n
	}
	cores := cpuid.CPU.LogicalCores
	if cores <= 0 || cores > ncpu {
		cores = ncpu
	}
	return cores
}

// CPUInfo returns a one line description of the cpu.
func CPUInfo() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "cpu family=%d model=%d stepping=%d ", cpuid.CPU.Family, cpuid.CPU.Model, cpuid.CPU.Stepping)
	fmt.Fprintf(&sb, "brand=%q vendor=%q ", cpuid.CPU.BrandName, cpuid.CPU.VendorString)
	fmt.Fprintf(&sb, "physicalCores=%d threadsPerCore=%d logicalCores=%d numcpu=%d ", cpuid.CPU.PhysicalCores, cpuid.CPU.ThreadsPerCore, cpuid.CPU.LogicalCores, ncpu)
	fmt.Fprintf(&sb, "vm=%t", cpuid.CPU.VM())
	return sb.String()
}
