// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

var (
	// ErrNonInteractive is returned when a prompt is needed in
	// non-interactive mode.
	ErrNonInteractive = errors.New("interactive input required")

	// ErrAborted is returned when the user aborted the prompt.
	ErrAborted = errors.New("aborted by user")
)

// Option is an option of a question.
type Option struct {
	Label string
	// Detail is an annotation shown under the label.
	Detail string
}

// Question asks the user to choose one of options.
type Question struct {
	Title   string
	Options []Option
	// AllowNone allows choosing none of options.
	AllowNone bool
}

func (q Question) String() string {
	var labels []string
	for _, o := range q.Options {
		labels = append(labels, o.Label)
	}
	return fmt.Sprintf("%s [%s]", q.Title, strings.Join(labels, ", "))
}

// Prompter asks the user.
type Prompter interface {
	// Choose returns the index of the chosen option,
	// or -1 for none if q.AllowNone.
	Choose(ctx context.Context, q Question) (int, error)

	// Confirm asks yes or no.
	Confirm(ctx context.Context, msg string) (bool, error)

	// Acknowledge shows msg and waits until the user accepts it.
	Acknowledge(ctx context.Context, msg string) error
}

// NewPrompter returns a prompter for the current process.
func NewPrompter(nonInteractive bool) Prompter {
	switch {
	case nonInteractive:
		return FailPrompter{}
	case isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()):
		return HuhPrompter{}
	default:
		return NewLinePrompter(os.Stdin, os.Stdout)
	}
}

// LinePrompter reads answers line by line.
type LinePrompter struct {
	mu sync.Mutex
	r  *bufio.Reader
	w  io.Writer
	n  int
}

// NewLinePrompter creates a prompter reading answers from r,
// printing questions to w.
func NewLinePrompter(r io.Reader, w io.Writer) *LinePrompter {
	return &LinePrompter{
		r: bufio.NewReader(r),
		w: w,
	}
}

// Count returns number of prompts asked.
func (p *LinePrompter) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}

func (p *LinePrompter) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := p.r.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		if errors.Is(err, io.EOF) {
			return "", ErrAborted
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Choose implements Prompter.
// It loops until a valid index is given.
func (p *LinePrompter) Choose(ctx context.Context, q Question) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n++
	fmt.Fprintln(p.w, q.Title)
	for i, o := range q.Options {
		fmt.Fprintf(p.w, "[%d] %s\n", i, o.Label)
		if o.Detail != "" {
			fmt.Fprintf(p.w, "      %s\n", o.Detail)
		}
	}
	ask := "Press the preceding index to use the file"
	if q.AllowNone {
		ask += ", x for none"
	}
	for {
		fmt.Fprintln(p.w, ask)
		line, err := p.readLine(ctx)
		if err != nil {
			return 0, err
		}
		if q.AllowNone && line == "x" {
			return -1, nil
		}
		i, err := strconv.Atoi(line)
		if err == nil && i >= 0 && i < len(q.Options) {
			return i, nil
		}
		fmt.Fprintf(p.w, "invalid input %q\n", line)
	}
}

// Confirm implements Prompter.
func (p *LinePrompter) Confirm(ctx context.Context, msg string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n++
	for {
		fmt.Fprintf(p.w, "%s y/n\n", msg)
		line, err := p.readLine(ctx)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(line) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}

// Acknowledge implements Prompter.
func (p *LinePrompter) Acknowledge(ctx context.Context, msg string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n++
	fmt.Fprintf(p.w, "%s\nPress Enter to accept this\n", msg)
	_, err := p.readLine(ctx)
	return err
}

// HuhPrompter asks with huh forms on the terminal.
type HuhPrompter struct{}

func runForm(f huh.Field) error {
	err := huh.NewForm(huh.NewGroup(f)).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrAborted
	}
	return err
}

// Choose implements Prompter.
func (HuhPrompter) Choose(ctx context.Context, q Question) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	opts := make([]huh.Option[int], 0, len(q.Options)+1)
	for i, o := range q.Options {
		key := o.Label
		if o.Detail != "" {
			key = o.Label + " - " + o.Detail
		}
		opts = append(opts, huh.NewOption(key, i))
	}
	if q.AllowNone {
		opts = append(opts, huh.NewOption("none", -1))
	}
	var v int
	sel := huh.NewSelect[int]().
		Title(q.Title).
		Options(opts...).
		Value(&v)
	if err := runForm(sel); err != nil {
		return 0, err
	}
	return v, nil
}

// Confirm implements Prompter.
func (HuhPrompter) Confirm(ctx context.Context, msg string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var b bool
	c := huh.NewConfirm().
		Title(msg).
		Affirmative("Yes").
		Negative("No").
		Value(&b)
	if err := runForm(c); err != nil {
		return false, err
	}
	return b, nil
}

// Acknowledge implements Prompter.
func (HuhPrompter) Acknowledge(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n := huh.NewNote().
		Title("WARNING").
		Description(msg).
		Next(true).
		NextLabel("Accept")
	return runForm(n)
}

// FailPrompter fails every prompt with ErrNonInteractive.
type FailPrompter struct{}

// Choose implements Prompter.
func (FailPrompter) Choose(ctx context.Context, q Question) (int, error) {
	return 0, fmt.Errorf("%s: %w", q, ErrNonInteractive)
}

// Confirm implements Prompter.
func (FailPrompter) Confirm(ctx context.Context, msg string) (bool, error) {
	return false, fmt.Errorf("%s: %w", msg, ErrNonInteractive)
}

// Acknowledge implements Prompter.
func (FailPrompter) Acknowledge(ctx context.Context, msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrNonInteractive)
}

// PausingPrompter pauses the indicator while the user is asked.
type PausingPrompter struct {
	Prompter
	Indicator *Indicator
}

func (p PausingPrompter) pause() func() {
	if p.Indicator.Paused() {
		return func() {}
	}
	p.Indicator.Pause()
	return p.Indicator.Resume
}

// Choose implements Prompter.
func (p PausingPrompter) Choose(ctx context.Context, q Question) (int, error) {
	defer p.pause()()
	return p.Prompter.Choose(ctx, q)
}

// Confirm implements Prompter.
func (p PausingPrompter) Confirm(ctx context.Context, msg string) (bool, error) {
	defer p.pause()()
	return p.Prompter.Confirm(ctx, msg)
}

// Acknowledge implements Prompter.
func (p PausingPrompter) Acknowledge(ctx context.Context, msg string) error {
	defer p.pause()()
	return p.Prompter.Acknowledge(ctx, msg)
}
