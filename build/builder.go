// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package build discovers sources and includes of a C/C++ tree, and
// compiles and links it.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/golang/glog"
	"github.com/google/uuid"

	"go.chromium.org/infra/build/incbuild/build/buildconfig"
	"go.chromium.org/infra/build/incbuild/build/cachestore"
	"go.chromium.org/infra/build/incbuild/execute"
	"go.chromium.org/infra/build/incbuild/execute/localexec"
	"go.chromium.org/infra/build/incbuild/o11y/clog"
	"go.chromium.org/infra/build/incbuild/osfs"
	"go.chromium.org/infra/build/incbuild/runtimex"
	"go.chromium.org/infra/build/incbuild/toolsupport/gccutil"
	"go.chromium.org/infra/build/incbuild/ui"
)

// Options are options of a build.
type Options struct {
	// Dir is the absolute top dir. The build dir is created in it.
	Dir string

	// ConfigName is the config file of the top project.
	ConfigName string

	// DefaultConfig is the path of the config file giving defaults
	// of every project. It may not exist.
	DefaultConfig string

	// ExtraFiles are names of excluded or neutral files to compile
	// in the top project.
	ExtraFiles []string
	// ExtraFolders are dirs, relative to Dir, to use as entries.
	ExtraFolders []string
	// LibFolders are dirs, relative to Dir, to bundle as libraries.
	LibFolders []string

	// Jobs is the number of compile workers. 0 uses the number of CPUs.
	Jobs int

	NoCache        bool
	NoCCache       bool
	PrintCommands  bool
	PrintStructure bool
	Verbose        bool

	// Prober gets direct includes of a file. nil runs the preprocessor.
	Prober Prober
	// Executor runs compile, archive and link commands. nil uses localexec.
	Executor execute.Executor
	// ToolFinder checks tools. nil looks in PATH.
	ToolFinder ToolFinder
	// Prompter asks the user. nil fails every question.
	Prompter ui.Prompter
	// Indicator is paused while the user is asked. It may be nil.
	Indicator *ui.Indicator
	// UI shows notices. nil uses ui.Default.
	UI ui.UI
	// Output is where commands and the structure are printed.
	// nil uses stdout.
	Output io.Writer
}

// Builder runs a build.
type Builder struct {
	id   string
	opts Options

	ui        ui.UI
	prompter  ui.Prompter
	indicator *ui.Indicator
	fsys      *osfs.OSFS

	// outMu serializes writes to out from compile workers.
	outMu sync.Mutex
	out   io.Writer

	state    *BuildState
	cache    *cachestore.Store
	defaults buildconfig.Definitions
	buildDir string

	// projects are projects in creation order. The first is the top.
	projects []*Project
	// projectDirs are dirs of projects, including duplicate dirs.
	projectDirs []string

	toolFinder ToolFinder
	prober     Prober
	executor   execute.Executor
	jobs       int

	ccacheOnce sync.Once
	ccache     []string
	ccacheErr  error

	stats stats
	now   func() time.Time
}

// New creates a builder.
func New(ctx context.Context, opts Options) (*Builder, error) {
	if !filepath.IsAbs(opts.Dir) {
		return nil, fmt.Errorf("dir %q must be absolute", opts.Dir)
	}
	opts.Dir = filepath.Clean(opts.Dir)
	if opts.ConfigName == "" {
		opts.ConfigName = buildconfig.DefaultConfigName
	}
	b := &Builder{
		id:         uuid.New().String(),
		opts:       opts,
		ui:         opts.UI,
		indicator:  opts.Indicator,
		out:        opts.Output,
		fsys:       osfs.New("fs"),
		state:      newBuildState(),
		buildDir:   filepath.Join(opts.Dir, BuildDirName),
		toolFinder: opts.ToolFinder,
		prober:     opts.Prober,
		executor:   opts.Executor,
		jobs:       runtimex.NumWorkers(opts.Jobs),
		now:        time.Now,
	}
	if b.ui == nil {
		b.ui = ui.Default
	}
	if b.out == nil {
		b.out = os.Stdout
	}
	p := opts.Prompter
	if p == nil {
		p = ui.FailPrompter{}
	}
	b.prompter = ui.PausingPrompter{Prompter: p, Indicator: b.indicator}
	if b.toolFinder == nil {
		b.toolFinder = PathToolFinder{}
	}
	if b.executor == nil {
		b.executor = localexec.LocalExec{}
	}
	if b.prober == nil {
		b.prober = gccutil.Prober{Executor: b.executor}
	}
	return b, nil
}

// ID returns the id of the build.
func (b *Builder) ID() string {
	return b.id
}

// Build discovers, compiles and links the projects in the top dir.
// The cache is saved only if the build succeeded.
func (b *Builder) Build(ctx context.Context) (Stats, error) {
	started := time.Now()
	ctx = clog.NewSpan(ctx, map[string]string{"build_id": b.id})
	clog.Infof(ctx, "build %s in %s jobs=%d cpu=%s", b.id, b.opts.Dir, b.jobs, runtimex.CPUInfo())

	if err := b.fsys.MkdirAll(ctx, b.buildDir, 0755); err != nil {
		return b.stats.stats(), err
	}
	unlock, err := b.lock(ctx)
	if err != nil {
		return b.stats.stats(), err
	}
	defer unlock()

	cachePath := filepath.Join(b.buildDir, cachestore.FileName)
	if b.opts.NoCache {
		err := b.fsys.Remove(ctx, cachePath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return b.stats.stats(), err
		}
	}
	b.cache = cachestore.Load(ctx, cachePath)

	cfg, err := b.topConfig(ctx)
	if err != nil {
		return b.stats.stats(), err
	}
	if err := b.cleanBuildDir(ctx); err != nil {
		return b.stats.stats(), err
	}
	b.defaults, err = b.loadDefaults(ctx)
	if err != nil {
		return b.stats.stats(), err
	}

	phase := time.Now()
	if err := b.initProjects(ctx, cfg); err != nil {
		return b.stats.stats(), err
	}
	b.verbosef("presort done in %s", ui.FormatDuration(time.Since(phase)))
	if b.opts.PrintStructure {
		b.printStructure(ctx)
	}

	phase = time.Now()
	b.ui.Infof("%s", sgrBold("Starting iterative search"))
	b.indicator.Start("resolving includes")
	for _, p := range b.projects {
		if err := b.search(ctx, p, nil); err != nil {
			b.indicator.Stop()
			return b.stats.stats(), err
		}
	}
	b.indicator.Stop()
	b.verbosef("search done in %s", ui.FormatDuration(time.Since(phase)))

	for _, p := range b.projects {
		if err := b.compile(ctx, p); err != nil {
			return b.stats.stats(), err
		}
	}
	if err := b.link(ctx); err != nil {
		return b.stats.stats(), err
	}
	if err := b.cache.Save(ctx); err != nil {
		return b.stats.stats(), err
	}

	st := b.stats.stats()
	st.Projects = len(b.projects)
	for _, p := range b.projects {
		st.Sources += len(p.sources)
	}
	st.Headers = len(b.state.headers)
	b.verbosef("time spent waiting for preprocessor: %s", ui.FormatDuration(st.ProbeTime))
	b.verbosef("total time %s", ui.FormatDuration(time.Since(started)))
	if log.V(1) {
		clog.Infof(ctx, "stats %#v", st)
	}
	return st, nil
}

// initProjects creates the top project with the config, and its
// sub-projects.
func (b *Builder) initProjects(ctx context.Context, cfg string) error {
	top, err := b.newProject(ctx, b.opts.Dir, cfg, true, nil)
	if err != nil {
		return err
	}
	b.projects = append(b.projects, top)
	b.projectDirs = append(b.projectDirs, top.Dir())
	return b.presort(ctx, top)
}

// topConfig returns the config name of the top project.
// If the config is missing, the user chooses one of config files in
// the top dir. With no config files, the defaults are used.
func (b *Builder) topConfig(ctx context.Context) (string, error) {
	cfg := b.opts.ConfigName
	if b.fsys.IsFile(ctx, filepath.Join(b.opts.Dir, cfg)) {
		return cfg, nil
	}
	b.ui.Infof("needed config file %s not found", cfg)
	ents, err := b.fsys.ReadDir(ctx, b.opts.Dir)
	if err != nil {
		return "", err
	}
	var names []string
	for _, ent := range ents {
		if !ent.IsDir() {
			names = append(names, ent.Name())
		}
	}
	cfgs := configFiles(names)
	if len(cfgs) == 0 {
		b.ui.Infof("no config file found for the top-level project, using defaults")
		return cfg, nil
	}
	q := ui.Question{Title: "Which config file to use?"}
	for _, c := range cfgs {
		q.Options = append(q.Options, ui.Option{Label: c})
	}
	i, err := b.prompter.Choose(ctx, q)
	if err != nil {
		return "", err
	}
	return cfgs[i], nil
}

// cleanBuildDir removes outputs of the previous build, keeping the
// cache and the lock file.
func (b *Builder) cleanBuildDir(ctx context.Context) error {
	ents, err := b.fsys.ReadDir(ctx, b.buildDir)
	if err != nil {
		return err
	}
	for _, ent := range ents {
		switch ent.Name() {
		case cachestore.FileName, lockFileName:
			continue
		}
		if err := b.fsys.RemoveAll(ctx, filepath.Join(b.buildDir, ent.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) loadDefaults(ctx context.Context) (buildconfig.Definitions, error) {
	fname := b.opts.DefaultConfig
	if fname == "" || !b.fsys.IsFile(ctx, fname) {
		b.verbosef("no default config file found")
		return buildconfig.Definitions{}, nil
	}
	defs, err := buildconfig.Load(ctx, fname)
	if err != nil {
		return nil, ConfigError{Path: fname, Err: err}
	}
	return defs, nil
}

// acknowledge asks the user to accept a warning. In non-interactive
// mode, the warning is accepted.
func (b *Builder) acknowledge(ctx context.Context, msg string) error {
	err := b.prompter.Acknowledge(ctx, msg)
	if errors.Is(err, ui.ErrNonInteractive) {
		clog.Warningf(ctx, "accept warning: %v", err)
		return nil
	}
	return err
}

func (b *Builder) verbosef(format string, args ...any) {
	if !b.opts.Verbose {
		return
	}
	b.ui.Infof(format, args...)
}

// rel returns path relative to the top dir.
func (b *Builder) rel(path string) string {
	return relPath(b.opts.Dir, path)
}

func (b *Builder) relAll(paths []string) []string {
	r := make([]string, 0, len(paths))
	for _, p := range paths {
		r = append(r, b.rel(p))
	}
	return r
}

func sgrBold(s string) string {
	return ui.SGR(ui.Bold, s)
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
