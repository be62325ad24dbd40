// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ui

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var barFrames = []string{
	"[        ]",
	"[=       ]",
	"[===     ]",
	"[====    ]",
	"[=====   ]",
	"[======  ]",
	"[======= ]",
	"[========]",
	"[ =======]",
	"[  ======]",
	"[   =====]",
	"[    ====]",
	"[     ===]",
	"[      ==]",
	"[       =]",
	"[        ]",
}

// Indicator draws a bar animation while the build is working.
// A nil Indicator is valid and does nothing.
type Indicator struct {
	w        io.Writer
	interval time.Duration

	paused atomic.Bool

	// mu serializes drawing with Pause, so no frame is drawn
	// once Pause returns.
	mu    sync.Mutex
	msg   string
	frame int

	quit, done chan struct{}
}

// NewIndicator creates an indicator drawing on w.
func NewIndicator(w io.Writer) *Indicator {
	return &Indicator{
		w:        w,
		interval: 100 * time.Millisecond,
	}
}

// Start starts the animation with the message.
// If it has already started, it only updates the message.
func (ind *Indicator) Start(format string, args ...any) {
	if ind == nil {
		return
	}
	ind.mu.Lock()
	ind.msg = fmt.Sprintf(format, args...)
	running := ind.quit != nil
	if !running {
		ind.quit = make(chan struct{})
		ind.done = make(chan struct{})
	}
	quit, done := ind.quit, ind.done
	ind.mu.Unlock()
	if running {
		return
	}
	go func() {
		defer close(done)
		ticker := time.NewTicker(ind.interval)
		defer ticker.Stop()
		for {
			select {
			case <-quit:
				return
			case <-ticker.C:
				ind.draw()
			}
		}
	}()
}

func (ind *Indicator) draw() {
	ind.mu.Lock()
	defer ind.mu.Unlock()
	if ind.paused.Load() {
		return
	}
	fmt.Fprintf(ind.w, "\r%s %s\033[K", barFrames[ind.frame%len(barFrames)], ind.msg)
	ind.frame++
}

func (ind *Indicator) clear() {
	fmt.Fprint(ind.w, "\r\033[K")
}

// Stop stops the animation and clears the line.
func (ind *Indicator) Stop() {
	if ind == nil {
		return
	}
	ind.mu.Lock()
	quit, done := ind.quit, ind.done
	ind.quit, ind.done = nil, nil
	ind.mu.Unlock()
	if quit == nil {
		return
	}
	close(quit)
	<-done
	ind.mu.Lock()
	ind.clear()
	ind.mu.Unlock()
}

// Pause suspends drawing and clears the line.
func (ind *Indicator) Pause() {
	if ind == nil {
		return
	}
	ind.mu.Lock()
	defer ind.mu.Unlock()
	if ind.paused.Swap(true) {
		return
	}
	if ind.quit != nil {
		ind.clear()
	}
}

// Resume resumes drawing.
func (ind *Indicator) Resume() {
	if ind == nil {
		return
	}
	ind.paused.Store(false)
}

// Paused reports whether the indicator is paused.
func (ind *Indicator) Paused() bool {
	if ind == nil {
		return false
	}
	return ind.paused.Load()
}
