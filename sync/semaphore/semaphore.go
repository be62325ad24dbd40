// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package semaphore provides named semaphores that bound how many
// toolchain subprocesses run at once.
package semaphore

import (
	"context"
	"fmt"
)

// Semaphore is a semaphore.
type Semaphore struct {
	name string
	ch   chan int
}

// New creates a new semaphore with name and capacity.
// Capacity less than 1 is treated as 1.
func New(name string, n int) *Semaphore {
	if n < 1 {
		n = 1
	}
	ch := make(chan int, n)
	for i := 0; i < n; i++ {
		ch <- i + 1 // tid
	}
	return &Semaphore{
		name: name,
		ch:   ch,
	}
}

// WaitAcquire acquires a semaphore.
// It returns a func to release it.
func (s *Semaphore) WaitAcquire(ctx context.Context) (func(), error) {
	select {
	case tid := <-s.ch:
		return func() {
			s.ch <- tid
		}, nil
	case <-ctx.Done():
		return func() {}, fmt.Errorf("semaphore %s: %w", s.name, context.Cause(ctx))
	}
}

// Do runs f under semaphore.
func (s *Semaphore) Do(ctx context.Context, f func(ctx context.Context) error) error {
	done, err := s.WaitAcquire(ctx)
	if err != nil {
		return err
	}
	defer done()
	return f(ctx)
}
