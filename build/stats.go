// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import (
	"sync"
	"time"
)

// Stats are stats of a build.
type Stats struct {
	Projects int
	Sources  int
	Headers  int

	// Probes is the number of preprocessor runs.
	Probes int
	// Reused is the number of files whose includes came from the cache.
	Reused int

	Compiled   int
	Archived   int
	Executable int

	// ProbeTime is the time spent waiting for the preprocessor.
	ProbeTime time.Duration
}

type stats struct {
	mu sync.Mutex
	s  Stats
}

func (s *stats) probed(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.s.Probes++
	s.s.ProbeTime += d
}

func (s *stats) reused() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.s.Reused++
}

func (s *stats) compiled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.s.Compiled++
}

func (s *stats) archived() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.s.Archived++
}

func (s *stats) linked() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.s.Executable++
}

func (s *stats) stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.s
}
