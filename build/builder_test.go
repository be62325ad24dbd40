// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"go.chromium.org/infra/build/incbuild/build/buildconfig"
	"go.chromium.org/infra/build/incbuild/build/cachestore"
	"go.chromium.org/infra/build/incbuild/execute"
	"go.chromium.org/infra/build/incbuild/scandeps"
	"go.chromium.org/infra/build/incbuild/toolsupport/gccutil"
	"go.chromium.org/infra/build/incbuild/ui"
)

func setupFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for k, v := range files {
		fname := filepath.Join(dir, k)
		err := os.MkdirAll(filepath.Dir(fname), 0755)
		if err != nil {
			t.Fatal(err)
		}
		err = os.WriteFile(fname, []byte(v), 0644)
		if err != nil {
			t.Fatal(err)
		}
	}
}

// fakeProber resolves includes as `gcc -E -MM` does, by reading
// files: an include is searched in the including file's dir, then in
// include dirs.
type fakeProber struct {
	mu     sync.Mutex
	probed []string
}

func (p *fakeProber) Probe(ctx context.Context, req gccutil.ProbeRequest) (gccutil.ProbeResult, error) {
	p.mu.Lock()
	p.probed = append(p.probed, req.File)
	p.mu.Unlock()

	var deps []string
	seen := make(map[string]bool)
	var visit func(fname string) (string, error)
	visit = func(fname string) (string, error) {
		buf, err := os.ReadFile(fname)
		if err != nil {
			return "", err
		}
		for _, name := range scandeps.IncludeNames(ctx, fname, buf) {
			path, ok := lookupInclude(filepath.Dir(fname), req.IncludeDirs, name)
			if !ok {
				return name, nil
			}
			if seen[path] {
				continue
			}
			seen[path] = true
			deps = append(deps, path)
			missing, err := visit(path)
			if missing != "" || err != nil {
				return missing, err
			}
		}
		return "", nil
	}
	missing, err := visit(req.File)
	if err != nil {
		return gccutil.ProbeResult{}, err
	}
	if missing != "" {
		return gccutil.ProbeResult{Missing: missing}, nil
	}
	return gccutil.ProbeResult{Deps: deps}, nil
}

func (p *fakeProber) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.probed)
}

func lookupInclude(dir string, includeDirs []string, name string) (string, bool) {
	for _, d := range append([]string{dir}, includeDirs...) {
		path := filepath.Join(d, name)
		fi, err := os.Stat(path)
		if err == nil && fi.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}

// fakeExecutor records commands, and creates files given by -o.
type fakeExecutor struct {
	mu   sync.Mutex
	cmds [][]string
}

func (e *fakeExecutor) Run(ctx context.Context, cmd *execute.Cmd) error {
	e.mu.Lock()
	e.cmds = append(e.cmds, cmd.Args)
	e.mu.Unlock()
	for i, arg := range cmd.Args {
		if arg == "-o" && i+1 < len(cmd.Args) {
			return os.WriteFile(cmd.Args[i+1], nil, 0644)
		}
	}
	return nil
}

// commands returns commands whose ID has the prefix.
func (e *fakeExecutor) commands(prefix string) [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var cmds [][]string
	for _, c := range e.cmds {
		if len(c) > 0 && c[0] == prefix {
			cmds = append(cmds, c)
		}
	}
	return cmds
}

type fakeToolFinder struct{}

func (fakeToolFinder) LookPath(file string) (string, error) {
	if file == ccacheTool {
		return "", fs.ErrNotExist
	}
	return "/usr/bin/" + file, nil
}

type testUI struct {
	mu   sync.Mutex
	msgs []string
}

func (u *testUI) add(prefix, format string, args ...any) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.msgs = append(u.msgs, prefix+ui.StripANSIEscapeCodes(fmt.Sprintf(format, args...)))
}

func (u *testUI) PrintLines(msgs ...string)          { u.add("", "%s", strings.Join(msgs, "\n")) }
func (u *testUI) Infof(format string, args ...any)    { u.add("", format, args...) }
func (u *testUI) Warningf(format string, args ...any) { u.add("WARNING: ", format, args...) }
func (u *testUI) Errorf(format string, args ...any)   { u.add("ERROR: ", format, args...) }
func (u *testUI) NewIndicator() *ui.Indicator         { return nil }

func (u *testUI) warnings() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	var w []string
	for _, m := range u.msgs {
		if strings.HasPrefix(m, "WARNING: ") {
			w = append(w, m)
		}
	}
	return w
}

type testBuild struct {
	b        *Builder
	prober   *fakeProber
	executor *fakeExecutor
	ui       *testUI
}

// newTestBuilder creates a builder in dir running at now.
// prompter may be nil to fail on any question.
func newTestBuilder(t *testing.T, dir string, prompter ui.Prompter, now time.Time) testBuild {
	t.Helper()
	tb := testBuild{
		prober:   &fakeProber{},
		executor: &fakeExecutor{},
		ui:       &testUI{},
	}
	b, err := New(context.Background(), Options{
		Dir:        dir,
		Jobs:       2,
		NoCCache:   true,
		Prober:     tb.prober,
		Executor:   tb.executor,
		ToolFinder: fakeToolFinder{},
		Prompter:   prompter,
		UI:         tb.ui,
		Output:     io.Discard,
	})
	if err != nil {
		t.Fatal(err)
	}
	b.now = func() time.Time { return now }
	tb.b = b
	return tb
}

func (tb testBuild) build(t *testing.T) Stats {
	t.Helper()
	st, err := tb.b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build=%v; want nil", err)
	}
	return st
}

func readCache(t *testing.T, dir string) []byte {
	t.Helper()
	buf, err := os.ReadFile(filepath.Join(dir, BuildDirName, cachestore.FileName))
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

func readDocument(t *testing.T, dir string) cachestore.Document {
	t.Helper()
	d, err := cachestore.ReadDocument(filepath.Join(dir, BuildDirName, cachestore.FileName))
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestBuildIncremental(t *testing.T) {
	dir := t.TempDir()
	setupFiles(t, dir, map[string]string{
		"a.c": `#include "a.h"
int main() { return 0; }
`,
		"a.h": "int a(void);\n",
	})
	now := time.Now().Add(time.Hour)

	tb := newTestBuilder(t, dir, nil, now)
	st := tb.build(t)
	if diff := cmp.Diff([]string{filepath.Join(dir, "a.c")}, tb.prober.probed); diff != "" {
		t.Errorf("probed diff -want +got:\n%s", diff)
	}
	if st.Compiled != 1 || st.Executable != 1 {
		t.Errorf("compiled=%d executable=%d; want 1, 1", st.Compiled, st.Executable)
	}
	want := cachestore.Document{
		Version: cachestore.Version,
		Files: map[string]cachestore.Entry{
			filepath.Join(dir, "a.c"): cachestore.NewEntry(now, []string{filepath.Join(dir, "a.h")}, nil),
			filepath.Join(dir, "a.h"): cachestore.NewHeaderEntry(now),
		},
		Hashes: map[string]string{
			dir: "-1",
		},
		LinkerScript: map[string]string{
			dir: cachestore.LinkerScriptNotFound,
		},
	}
	got := readDocument(t, dir)
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("cache diff -want +got:\n%s", diff)
	}
	first := readCache(t, dir)

	tb = newTestBuilder(t, dir, nil, now.Add(time.Hour))
	st = tb.build(t)
	if st.Probes != 0 || st.Reused != 1 {
		t.Errorf("rerun probes=%d reused=%d; want 0, 1", st.Probes, st.Reused)
	}
	if second := readCache(t, dir); !bytes.Equal(first, second) {
		t.Errorf("rerun cache differs:\n%s\n---\n%s", first, second)
	}
}

func TestBuildDefaultChoice(t *testing.T) {
	dir := t.TempDir()
	setupFiles(t, dir, map[string]string{
		"comp.toml":   `ENTRYPOINT = ["src"]`,
		"src/a.c":     `#include "util.h"` + "\n",
		"src/b.c":     `#include "util.h"` + "\n",
		"n1/util.h":   "",
		"n2/util.h":   "",
		"src/main.c":  "int main() { return 0; }\n",
		"n2/other.h":  "",
		"n1/unused.h": "",
	})
	now := time.Now().Add(time.Hour)

	// choose n1/util.h, and use it for all files.
	prompter := ui.NewLinePrompter(strings.NewReader("0\ny\n"), io.Discard)
	tb := newTestBuilder(t, dir, prompter, now)
	tb.build(t)
	if got := prompter.Count(); got != 2 {
		t.Errorf("prompts=%d; want 2 (choose, confirm)", got)
	}
	d := readDocument(t, dir)
	for _, src := range []string{"src/a.c", "src/b.c"} {
		e := d.Files[filepath.Join(dir, src)]
		if diff := cmp.Diff([]string{filepath.Join(dir, "n1/util.h")}, e.I); diff != "" {
			t.Errorf("%s deps diff -want +got:\n%s", src, diff)
		}
		if diff := cmp.Diff([]string{filepath.Join(dir, "n1")}, e.IncludeDirs()); diff != "" {
			t.Errorf("%s include dirs diff -want +got:\n%s", src, diff)
		}
	}
	if src, ok := d.NeededSrc[filepath.Join(dir, "n1/util.h")]; !ok || src != "" {
		t.Errorf("needed_src[util.h]=%q, %t; want \"\", true", src, ok)
	}

	// no prompt on rerun: any question fails.
	tb = newTestBuilder(t, dir, nil, now.Add(time.Hour))
	st := tb.build(t)
	if st.Probes != 0 {
		t.Errorf("rerun probes=%d; want 0", st.Probes)
	}
}

func TestBuildNoSource(t *testing.T) {
	dir := t.TempDir()
	setupFiles(t, dir, map[string]string{
		"comp.toml": `ENTRYPOINT = ["src"]`,
		"src/a.c":   `#include "x.h"` + "\n",
		"src/x.h":   "",
	})
	now := time.Now().Add(time.Hour)
	tb := newTestBuilder(t, dir, nil, now)
	tb.build(t)
	d := readDocument(t, dir)
	xh := filepath.Join(dir, "src/x.h")
	if src, ok := d.NeededSrc[xh]; !ok || src != "" {
		t.Fatalf("needed_src[x.h]=%q, %t; want \"\", true", src, ok)
	}

	// x.c added in a neutral dir is not searched while x.h is
	// unmodified.
	setupFiles(t, dir, map[string]string{
		"shared/x.c": "",
	})
	tb = newTestBuilder(t, dir, nil, now.Add(time.Hour))
	st := tb.build(t)
	if st.Sources != 1 {
		t.Errorf("sources=%d; want 1", st.Sources)
	}
	if st.Compiled != 1 {
		t.Errorf("compiled=%d; want 1", st.Compiled)
	}
}

func TestBuildAdoptSource(t *testing.T) {
	dir := t.TempDir()
	setupFiles(t, dir, map[string]string{
		"comp.toml":  `ENTRYPOINT = ["src"]`,
		"src/a.c":    `#include "util.h"` + "\n",
		"src/util.h": "",
		"lib/util.c": `#include "util.h"` + "\n",
	})
	now := time.Now().Add(time.Hour)
	tb := newTestBuilder(t, dir, nil, now)
	st := tb.build(t)
	if st.Sources != 2 {
		t.Errorf("sources=%d; want 2", st.Sources)
	}
	d := readDocument(t, dir)
	if got, want := d.NeededSrc[filepath.Join(dir, "src/util.h")], filepath.Join(dir, "lib/util.c"); got != want {
		t.Errorf("needed_src[util.h]=%q; want %q", got, want)
	}
}

func TestBuildSourceIncludedAsHeader(t *testing.T) {
	dir := t.TempDir()
	setupFiles(t, dir, map[string]string{
		"comp.toml":   `ENTRYPOINT = ["src"]`,
		"src/main.c":  `#include "impl.c"` + "\n",
		"src/impl.c":  "static int impl(void) { return 0; }\n",
		"src/other.c": "",
	})
	now := time.Now().Add(time.Hour)
	tb := newTestBuilder(t, dir, nil, now)
	st := tb.build(t)
	if st.Sources != 2 || st.Compiled != 2 {
		t.Errorf("sources=%d compiled=%d; want 2, 2", st.Sources, st.Compiled)
	}
	top := tb.b.projects[0]
	if _, ok := top.source("impl"); ok {
		t.Errorf("impl.c is compiled in %s", top)
	}
	if _, ok := tb.b.state.owner(filepath.Join(dir, "src/impl.c")); ok {
		t.Errorf("impl.c has an owner")
	}
	for _, c := range tb.executor.commands("gcc") {
		if containsString(c, filepath.Join(dir, "src/impl.c")) {
			t.Errorf("impl.c is compiled: %q", c)
		}
	}

	tb = newTestBuilder(t, dir, nil, now.Add(time.Hour))
	if st := tb.build(t); st.Probes != 0 || st.Sources != 2 {
		t.Errorf("rerun probes=%d sources=%d; want 0, 2", st.Probes, st.Sources)
	}
}

func TestBuildSourceIncludedAsHeaderLater(t *testing.T) {
	dir := t.TempDir()
	setupFiles(t, dir, map[string]string{
		"comp.toml":  `ENTRYPOINT = ["src"]`,
		"src/a.c":    `#include "impl.c"` + "\n" + `#include "q.h"` + "\n",
		"src/impl.c": "",
		"src/q.h":    "",
		"shared/q.c": `#include "impl.c"` + "\n",
	})
	tb := newTestBuilder(t, dir, nil, time.Now().Add(time.Hour))
	st := tb.build(t)
	if st.Sources != 2 || st.Compiled != 2 {
		t.Errorf("sources=%d compiled=%d; want 2, 2", st.Sources, st.Compiled)
	}
	q, ok := tb.b.state.owner(filepath.Join(dir, "shared/q.c"))
	if !ok {
		t.Fatalf("shared/q.c has no owner")
	}
	f, _ := q.source("q")
	if diff := cmp.Diff([]string{filepath.Join(dir, "src")}, f.IncludeDirs); diff != "" {
		t.Errorf("shared/q.c include dirs diff -want +got:\n%s", diff)
	}
	for _, c := range tb.executor.commands("gcc") {
		if containsString(c, filepath.Join(dir, "src/impl.c")) {
			t.Errorf("impl.c is compiled: %q", c)
		}
	}
}

func TestBuildCrossProject(t *testing.T) {
	dir := t.TempDir()
	setupFiles(t, dir, map[string]string{
		"app/main.c": `#include "lib.h"
int main() { return lib(); }
`,
		"sub/comp.toml": `ENTRYPOINT = ["inc"]
NEUTRALS = ["src"]
`,
		"sub/inc/lib.h": "int lib(void);\n",
		"sub/src/lib.c": `#include "lib.h"
int lib(void) { return 0; }
`,
	})
	now := time.Now().Add(time.Hour)
	tb := newTestBuilder(t, dir, nil, now)
	st := tb.build(t)
	if st.Projects != 2 {
		t.Fatalf("projects=%d; want 2", st.Projects)
	}
	top, sub := tb.b.projects[0], tb.b.projects[1]
	libc := filepath.Join(dir, "sub/src/lib.c")
	if _, ok := sub.source("lib"); !ok {
		t.Errorf("lib.c is not in %s", sub)
	}
	if _, ok := top.source("lib"); ok {
		t.Errorf("lib.c is in %s", top)
	}
	if p, ok := tb.b.state.owner(libc); !ok || p != sub {
		t.Errorf("owner(lib.c)=%v, %t; want %s", p, ok, sub)
	}

	links := tb.executor.commands("g++")
	var link []string
	for _, c := range links {
		if !containsString(c, "-c") {
			link = c
		}
	}
	buildDir := filepath.Join(dir, BuildDirName)
	want := []string{
		"g++",
		filepath.Join(buildDir, top.Subdir, nonPropDir, "main.o"),
		filepath.Join(buildDir, sub.Subdir, objDir, "lib.o"),
	}
	if diff := cmp.Diff(want, link); diff != "" {
		t.Errorf("link diff -want +got:\n%s", diff)
	}

	tb = newTestBuilder(t, dir, nil, now.Add(time.Hour))
	st = tb.build(t)
	if st.Probes != 0 {
		t.Errorf("rerun probes=%d; want 0", st.Probes)
	}
	if _, ok := tb.b.projects[1].source("lib"); !ok {
		t.Errorf("rerun: lib.c is not in %s", tb.b.projects[1])
	}
}

func TestBuildPrefersEntryMatch(t *testing.T) {
	dir := t.TempDir()
	setupFiles(t, dir, map[string]string{
		"comp.toml":      `ENTRYPOINT = ["src"]`,
		"src/a.c":        `#include "util.h"` + "\n",
		"src/inc/util.h": "",
		"shared/util.h":  "",
	})
	now := time.Now().Add(time.Hour)
	tb := newTestBuilder(t, dir, nil, now)
	tb.build(t)
	d := readDocument(t, dir)
	e := d.Files[filepath.Join(dir, "src/a.c")]
	if diff := cmp.Diff([]string{filepath.Join(dir, "src/inc")}, e.IncludeDirs()); diff != "" {
		t.Errorf("include dirs diff -want +got:\n%s", diff)
	}
}

func TestBuildMissingInclude(t *testing.T) {
	dir := t.TempDir()
	setupFiles(t, dir, map[string]string{
		"comp.toml":  `EXCLUDES = ["old"]`,
		"a.c":        `#include "nope.h"` + "\n",
		"old/nope.h": "",
	})
	tb := newTestBuilder(t, dir, nil, time.Now().Add(time.Hour))
	_, err := tb.b.Build(context.Background())
	var merr MissingIncludeError
	if !errors.As(err, &merr) {
		t.Fatalf("Build=%v; want MissingIncludeError", err)
	}
	if diff := cmp.Diff([]string{"old/nope.h"}, merr.ExcludedMatches); diff != "" {
		t.Errorf("excluded matches diff -want +got:\n%s", diff)
	}
	_, err = os.Stat(filepath.Join(dir, BuildDirName, cachestore.FileName))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("cache is written: %v", err)
	}
}

func TestBuildExcludedRequire(t *testing.T) {
	dir := t.TempDir()
	setupFiles(t, dir, map[string]string{
		"comp.toml":  `EXCLUDES = ["old"]`,
		"a.c":        `#include "old/impl.c"` + "\n",
		"old/impl.c": "",
	})
	tb := newTestBuilder(t, dir, nil, time.Now().Add(time.Hour))
	_, err := tb.b.Build(context.Background())
	var eerr ExcludedRequireError
	if !errors.As(err, &eerr) {
		t.Fatalf("Build=%v; want ExcludedRequireError", err)
	}
	want := ExcludedRequireError{
		File:       filepath.Join(dir, "old/impl.c"),
		RequiredBy: filepath.Join(dir, "a.c"),
	}
	if diff := cmp.Diff(want, eerr); diff != "" {
		t.Errorf("error diff -want +got:\n%s", diff)
	}
	if cmds := tb.executor.commands("gcc"); len(cmds) != 0 {
		t.Errorf("compile=%q; want none", cmds)
	}
}

func TestBuildNonInteractive(t *testing.T) {
	dir := t.TempDir()
	setupFiles(t, dir, map[string]string{
		"comp.toml": `ENTRYPOINT = ["src"]`,
		"src/a.c":   `#include "util.h"` + "\n",
		"n1/util.h": "",
		"n2/util.h": "",
	})
	tb := newTestBuilder(t, dir, nil, time.Now().Add(time.Hour))
	_, err := tb.b.Build(context.Background())
	if !errors.Is(err, ui.ErrNonInteractive) {
		t.Errorf("Build=%v; want %v", err, ui.ErrNonInteractive)
	}
}

func TestStaleness(t *testing.T) {
	dir := t.TempDir()
	setupFiles(t, dir, map[string]string{
		"a.c":  `#include "a.h"` + "\n",
		"a.h":  `#include "c.h"` + "\n",
		"c.h":  "",
		"b.c":  `#include "b.h"` + "\n",
		"b.h":  "",
		"m.cc": "int main() { return 0; }\n",
	})
	now := time.Now().Add(time.Hour)
	tb := newTestBuilder(t, dir, nil, now)
	tb.build(t)

	// c.h modified after the first build.
	mtime := now.Add(time.Hour)
	if err := os.Chtimes(filepath.Join(dir, "c.h"), mtime, mtime); err != nil {
		t.Fatal(err)
	}
	tb = newTestBuilder(t, dir, nil, now.Add(2*time.Hour))
	st := tb.build(t)
	if diff := cmp.Diff([]string{filepath.Join(dir, "a.c")}, tb.prober.probed); diff != "" {
		t.Errorf("probed diff -want +got:\n%s", diff)
	}
	if st.Reused != 2 {
		t.Errorf("reused=%d; want 2", st.Reused)
	}

	tb = newTestBuilder(t, dir, nil, now.Add(3*time.Hour))
	if st := tb.build(t); st.Probes != 0 {
		t.Errorf("third run probes=%d; want 0", st.Probes)
	}
}

func TestBuildConfigChanged(t *testing.T) {
	dir := t.TempDir()
	setupFiles(t, dir, map[string]string{
		"comp.toml": `CFLAGS = ["-O2"]`,
		"a.c":       "int main() { return 0; }\n",
	})
	now := time.Now().Add(time.Hour)
	tb := newTestBuilder(t, dir, nil, now)
	tb.build(t)

	setupFiles(t, dir, map[string]string{
		"comp.toml": `CFLAGS = ["-O0"]`,
	})
	tb = newTestBuilder(t, dir, nil, now.Add(time.Hour))
	if st := tb.build(t); st.Probes != 1 {
		t.Errorf("probes=%d; want 1", st.Probes)
	}
	cmds := tb.executor.commands("gcc")
	if len(cmds) != 1 || !containsString(cmds[0], "-O0") {
		t.Errorf("compile=%q; want with -O0", cmds)
	}
}

// fileClass is a class of a discovered file.
type fileClass int

const (
	classSource fileClass = iota
	classHeader
	classNeutral
	classExcluded
)

func (c fileClass) String() string {
	switch c {
	case classSource:
		return "source"
	case classHeader:
		return "header"
	case classNeutral:
		return "neutral"
	case classExcluded:
		return "excluded"
	}
	return "unknown"
}

// fileClasses returns classes path belongs to in s.
func fileClasses(s *BuildState, path string) []fileClass {
	var cs []fileClass
	if _, ok := s.sources[path]; ok {
		cs = append(cs, classSource)
	}
	if _, ok := s.headers[path]; ok {
		cs = append(cs, classHeader)
	}
	if s.neutral[path] {
		cs = append(cs, classNeutral)
	}
	if s.excludedSet[path] {
		cs = append(cs, classExcluded)
	}
	return cs
}

// initOnly creates projects of the builder, without searching
// includes.
func initOnly(t *testing.T, b *Builder) error {
	t.Helper()
	ctx := context.Background()
	if err := os.RemoveAll(b.buildDir); err != nil {
		t.Fatal(err)
	}
	if err := b.fsys.MkdirAll(ctx, b.buildDir, 0755); err != nil {
		t.Fatal(err)
	}
	b.cache = cachestore.New(filepath.Join(b.buildDir, cachestore.FileName))
	return b.initProjects(ctx, b.opts.ConfigName)
}

func presortOnly(t *testing.T, b *Builder) {
	t.Helper()
	if err := initOnly(t, b); err != nil {
		t.Fatalf("initProjects=%v; want nil", err)
	}
}

func TestPresortPartition(t *testing.T) {
	dir := t.TempDir()
	setupFiles(t, dir, map[string]string{
		"comp.toml": `ENTRYPOINT = ["src"]
EXCLUDES = ["old"]
NEUTRALS = ["shared"]
`,
		"src/main.c":        "",
		"src/main.h":        "",
		"src/inner/x.cpp":   "",
		"src/lib/comp.toml": "",
		"src/lib/l.c":       "",
		"src/lib/l.h":       "",
		"old/a.c":           "",
		"old/a.h":           "",
		"old/deep/b.h":      "",
		"shared/util.h":     "",
		"shared/util.c":     "",
		"other/o.h":         "",
		"README.md":         "",
		".git/x.h":          "",
	})
	tb := newTestBuilder(t, dir, nil, time.Now())
	presortOnly(t, tb.b)

	want := map[string]fileClass{
		"src/main.c":      classSource,
		"src/main.h":      classHeader,
		"src/inner/x.cpp": classSource,
		"src/lib/l.c":     classSource,
		"src/lib/l.h":     classHeader,
		"old/a.c":         classExcluded,
		"old/a.h":         classExcluded,
		"old/deep/b.h":    classExcluded,
		"shared/util.h":   classNeutral,
		"shared/util.c":   classNeutral,
		"other/o.h":       classNeutral,
	}
	got := make(map[string]fileClass)
	for name := range want {
		cs := fileClasses(tb.b.state, filepath.Join(dir, name))
		if len(cs) != 1 {
			t.Errorf("%s classes=%v; want exactly one", name, cs)
			continue
		}
		got[name] = cs[0]
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("classes diff -want +got:\n%s", diff)
	}
	for _, name := range []string{"README.md", ".git/x.h"} {
		if cs := fileClasses(tb.b.state, filepath.Join(dir, name)); len(cs) != 0 {
			t.Errorf("%s classes=%v; want none", name, cs)
		}
	}
	if len(tb.b.projects) != 2 {
		t.Fatalf("projects=%d; want 2", len(tb.b.projects))
	}
	if p, _ := tb.b.state.owner(filepath.Join(dir, "src/lib/l.c")); p != tb.b.projects[1] {
		t.Errorf("owner(l.c)=%v; want %v", p, tb.b.projects[1])
	}
}

func TestPresortProjectInNeutralDir(t *testing.T) {
	dir := t.TempDir()
	setupFiles(t, dir, map[string]string{
		"comp.toml":       `ENTRYPOINT = ["src"]`,
		"src/main.c":      "",
		"other/comp.toml": "",
		"other/o.c":       "",
	})
	prompter := ui.NewLinePrompter(strings.NewReader("\n"), io.Discard)
	tb := newTestBuilder(t, dir, prompter, time.Now())
	presortOnly(t, tb.b)

	if n := prompter.Count(); n != 1 {
		t.Errorf("prompts=%d; want 1", n)
	}
	var found int
	for _, w := range tb.ui.warnings() {
		if strings.Contains(w, "project found in neutral folder other.") {
			found++
		}
	}
	if found != 1 {
		t.Errorf("warnings=%q; want one for neutral folder other", tb.ui.warnings())
	}
	if len(tb.b.projects) != 1 {
		t.Errorf("projects=%d; want 1", len(tb.b.projects))
	}
	if cs := fileClasses(tb.b.state, filepath.Join(dir, "other/o.c")); !cmp.Equal(cs, []fileClass{classNeutral}) {
		t.Errorf("other/o.c classes=%v; want [neutral]", cs)
	}
}

func TestPresortErrors(t *testing.T) {
	for _, tc := range []struct {
		name  string
		files map[string]string
		check func(error) bool
	}{
		{
			name: "overlap",
			files: map[string]string{
				"comp.toml": `ENTRYPOINT = ["src"]
NEUTRALS = ["src"]
`,
				"src/a.c": "",
			},
			check: func(err error) bool {
				var e OverlapError
				return errors.As(err, &e)
			},
		},
		{
			name: "duplicate-stem",
			files: map[string]string{
				"a/x.c": "",
				"b/x.c": "",
			},
			check: func(err error) bool {
				var e DuplicateSourceError
				return errors.As(err, &e)
			},
		},
		{
			name: "lib-not-entry",
			files: map[string]string{
				"comp.toml": `ENTRYPOINT = ["src"]
AS_LIB = ["shared"]
`,
				"src/a.c":    "",
				"shared/b.c": "",
			},
			check: func(err error) bool {
				var e LibraryPlacementError
				return errors.As(err, &e)
			},
		},
		{
			name: "duplicate-project",
			files: map[string]string{
				"comp.toml":           `ENTRYPOINT = ["src"]`,
				"src/main.c":          "",
				"src/a/lib/comp.toml": "",
				"src/a/lib/x.c":       "",
				"src/b/lib/comp.toml": "",
				"src/b/lib/y.c":       "",
			},
			check: func(err error) bool {
				var e DuplicateProjectError
				return errors.As(err, &e) && e.Subdir == "lib#comp.toml"
			},
		},
		{
			name: "missing-entry",
			files: map[string]string{
				"comp.toml": `ENTRYPOINT = ["none"]`,
			},
			check: func(err error) bool {
				var e MissingPathError
				return errors.As(err, &e)
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			setupFiles(t, dir, tc.files)
			tb := newTestBuilder(t, dir, nil, time.Now())
			err := initOnly(t, tb.b)
			if !tc.check(err) {
				t.Errorf("initProjects=%v; want %s error", err, tc.name)
			}
		})
	}
}

func TestExtraFiles(t *testing.T) {
	dir := t.TempDir()
	setupFiles(t, dir, map[string]string{
		"comp.toml": `ENTRYPOINT = ["src"]
EXCLUDES = ["old"]
`,
		"src/a.c":   "",
		"old/b.c":   "",
		"old/c.c":   "",
		"other/c.c": "",
	})
	tb := newTestBuilder(t, dir, nil, time.Now())
	tb.b.opts.ExtraFiles = []string{"old/b.c"}
	presortOnly(t, tb.b)
	if cs := fileClasses(tb.b.state, filepath.Join(dir, "old/b.c")); !cmp.Equal(cs, []fileClass{classSource}) {
		t.Errorf("old/b.c classes=%v; want [source]", cs)
	}

	tb = newTestBuilder(t, dir, nil, time.Now())
	tb.b.opts.ExtraFiles = []string{"c.c"}
	err := initOnly(t, tb.b)
	var eerr ExtraFileError
	if !errors.As(err, &eerr) || len(eerr.Matches) != 2 {
		t.Errorf("initProjects=%v; want ExtraFileError with 2 matches", err)
	}
}

func TestStructure(t *testing.T) {
	dir := t.TempDir()
	setupFiles(t, dir, map[string]string{
		"comp.toml": `ENTRYPOINT = ["src"]
EXCLUDES = ["old"]
`,
		"src/a.c":           "",
		"src/lib/comp.toml": "",
		"src/lib/l.c":       "",
		"old/b.c":           "",
	})
	tb := newTestBuilder(t, dir, nil, time.Now())
	presortOnly(t, tb.b)
	tr, err := tb.b.structure(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	got := ui.StripANSIEscapeCodes(tr.String())
	for _, want := range []string{"src", "lib (P)", "old"} {
		if !strings.Contains(got, want) {
			t.Errorf("structure=%q; want %q", got, want)
		}
	}
	if strings.Contains(got, BuildDirName) {
		t.Errorf("structure=%q; has build dir", got)
	}
}

func TestChunks(t *testing.T) {
	files := func(n int) []*File {
		var list []*File
		for i := 0; i < n; i++ {
			list = append(list, &File{Path: fmt.Sprintf("f%d.c", i)})
		}
		return list
	}
	for _, tc := range []struct {
		name  string
		files int
		n     int
		want  []int
	}{
		{name: "even", files: 4, n: 2, want: []int{2, 2}},
		{name: "uneven", files: 5, n: 3, want: []int{2, 2, 1}},
		{name: "more-workers", files: 1, n: 3, want: []int{1, 0, 0}},
		{name: "zero-workers", files: 2, n: 0, want: []int{2}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := chunks(files(tc.files), tc.n)
			var got []int
			seen := make(map[string]bool)
			for _, chunk := range c {
				got = append(got, len(chunk))
				for _, f := range chunk {
					if seen[f.Path] {
						t.Errorf("%s in multiple chunks", f.Path)
					}
					seen[f.Path] = true
				}
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("chunk sizes diff -want +got:\n%s", diff)
			}
			if len(seen) != tc.files {
				t.Errorf("files in chunks=%d; want %d", len(seen), tc.files)
			}
		})
	}
}

func TestLinkArgs(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	tb := newTestBuilder(t, dir, nil, time.Now())
	b := tb.b
	b.cache = cachestore.New(filepath.Join(b.buildDir, cachestore.FileName))

	newProj := func(rel string, onlyParent bool, subs ...string) *Project {
		p := &Project{
			Options: &buildconfig.Options{
				MainDir:                  filepath.Join(dir, rel),
				ConfigName:               "comp.toml",
				OnlyLinkWithDirectParent: onlyParent,
			},
			Subdir: filepath.Base(filepath.Join(dir, rel)) + "#comp.toml",
			linker: []string{"ld"},
		}
		for _, s := range subs {
			p.SubprojectDirs = append(p.SubprojectDirs, filepath.Join(dir, s))
		}
		return p
	}
	top := newProj(".", false, "a")
	a := newProj("a", false, "a/b")
	bb := newProj("a/b", true)
	bb.PublicPrecomps = []string{filepath.Join(dir, "a/b/pre.o")}
	top.Precomps = []string{filepath.Join(dir, "main.o")}
	b.projects = []*Project{top, a, bb}
	for _, p := range b.projects {
		if err := os.MkdirAll(p.Dir(), 0755); err != nil {
			t.Fatal(err)
		}
	}
	files := map[string]string{}
	for _, f := range []string{
		filepath.Join(top.Subdir, nonPropDir, "m.o"),
		filepath.Join(top.Subdir, objDir, "t.o"),
		filepath.Join(a.Subdir, objDir, "a.o"),
		filepath.Join(a.Subdir, libDir, "alib.a"),
		filepath.Join(a.Subdir, nonPropDir, "private.o"),
		filepath.Join(bb.Subdir, objDir, "b.o"),
	} {
		files[filepath.Join(BuildDirName, f)] = ""
	}
	setupFiles(t, dir, files)

	out := func(parts ...string) string {
		return filepath.Join(append([]string{b.buildDir}, parts...)...)
	}
	for _, tc := range []struct {
		p    *Project
		want []string
	}{
		{
			p: top,
			want: []string{
				"ld",
				out(top.Subdir, nonPropDir, "m.o"),
				out(top.Subdir, objDir, "t.o"),
				out(a.Subdir, objDir, "a.o"),
				out(a.Subdir, libDir, "alib.a"),
				filepath.Join(dir, "main.o"),
			},
		},
		{
			p: a,
			want: []string{
				"ld",
				out(a.Subdir, nonPropDir, "private.o"),
				out(a.Subdir, objDir, "a.o"),
				out(a.Subdir, libDir, "alib.a"),
				out(top.Subdir, objDir, "t.o"),
				out(bb.Subdir, objDir, "b.o"),
				filepath.Join(dir, "a/b/pre.o"),
			},
		},
	} {
		t.Run(tc.p.Subdir, func(t *testing.T) {
			got, err := b.linkArgs(ctx, tc.p)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("linkArgs diff -want +got:\n%s", diff)
			}
		})
	}
}

func TestLinkerScript(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	scripts := []string{filepath.Join(dir, "a.ld"), filepath.Join(dir, "b.ld")}

	prompter := ui.NewLinePrompter(strings.NewReader("1\n"), io.Discard)
	tb := newTestBuilder(t, dir, prompter, time.Now())
	b := tb.b
	b.cache = cachestore.New(filepath.Join(b.buildDir, cachestore.FileName))
	p := &Project{
		Options:       &buildconfig.Options{MainDir: dir},
		LinkerScripts: scripts,
	}
	got, err := b.linkerScript(ctx, p)
	if err != nil || got != scripts[1] {
		t.Errorf("linkerScript=%q, %v; want %q, nil", got, err, scripts[1])
	}
	// cached.
	got, err = b.linkerScript(ctx, p)
	if err != nil || got != scripts[1] || prompter.Count() != 1 {
		t.Errorf("linkerScript=%q, %v prompts=%d; want %q, nil, 1", got, err, prompter.Count(), scripts[1])
	}

	b.cache.SetLinkerScript(dir, cachestore.LinkerScriptNone)
	got, err = b.linkerScript(ctx, p)
	if err != nil || got != "" {
		t.Errorf("linkerScript=%q, %v; want \"\", nil", got, err)
	}

	p.LinkerScripts = nil
	if _, err := b.linkerScript(ctx, p); err != nil {
		t.Fatal(err)
	}
	if v, _ := b.cache.LinkerScript(dir); v != cachestore.LinkerScriptNotFound {
		t.Errorf("linkerscript=%q; want %q", v, cachestore.LinkerScriptNotFound)
	}
}

func TestDuality(t *testing.T) {
	dir := t.TempDir()
	setupFiles(t, dir, map[string]string{
		"comp.toml":     `ENTRYPOINT = ["src"]`,
		"src/a.c":       `#include "conf.h"` + "\n" + `#include "util.h"` + "\n",
		"src/conf.h":    "",
		"shared/util.h": "",
		"shared/conf.h": "",
	})
	tb := newTestBuilder(t, dir, nil, time.Now().Add(time.Hour))
	tb.build(t)
	var found bool
	for _, w := range tb.ui.warnings() {
		if strings.Contains(w, "Multiple files of the name conf.h") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings=%q; want multiple conf.h", tb.ui.warnings())
	}
}

func TestCompileArgs(t *testing.T) {
	dir := t.TempDir()
	tb := newTestBuilder(t, dir, nil, time.Now())
	b := tb.b
	p := &Project{
		Options: &buildconfig.Options{
			MainDir:  dir,
			CExts:    buildconfig.NewExtSet(".c"),
			CPPExts:  buildconfig.NewExtSet(".cc"),
			CFlags:   []string{"-O2"},
			CPPFlags: []string{"-std=c++20"},
			LibDirs:  []string{filepath.Join(dir, "mylib")},
		},
		Subdir: "top#comp.toml",
		cc:     []string{"gcc"},
		cxx:    []string{"g++"},
		ccache: []string{"ccache"},
	}
	for _, tc := range []struct {
		f    *File
		want []string
	}{
		{
			f: &File{Path: filepath.Join(dir, "a.c"), Dir: dir, Stem: "a", Ext: ".c", IncludeDirs: []string{"/inc"}},
			want: []string{"ccache", "gcc", "-I/inc", "-c", filepath.Join(dir, "a.c"), "-o",
				filepath.Join(b.buildDir, "top#comp.toml", objDir, "a.o"), "-O2"},
		},
		{
			f: &File{Path: filepath.Join(dir, "mylib/b.cc"), Dir: filepath.Join(dir, "mylib"), Stem: "b", Ext: ".cc", Lib: "mylib"},
			want: []string{"ccache", "g++", "-c", filepath.Join(dir, "mylib/b.cc"), "-o",
				filepath.Join(b.buildDir, "top#comp.toml", "mylib", "b.o"), "-std=c++20"},
		},
	} {
		t.Run(tc.f.Stem, func(t *testing.T) {
			got := b.compileArgs(p, tc.f)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("compileArgs diff -want +got:\n%s", diff)
			}
		})
	}
}

func TestBuildLibrary(t *testing.T) {
	dir := t.TempDir()
	setupFiles(t, dir, map[string]string{
		"comp.toml":  `AS_LIB = ["mylib"]`,
		"main.c":     `#include "mylib/x.h"` + "\n",
		"mylib/x.h":  "",
		"mylib/x.c":  "",
		"mylib/y.c":  "",
		"mylib/y.h":  "",
		"other/ok.h": "",
	})
	tb := newTestBuilder(t, dir, nil, time.Now().Add(time.Hour))
	st := tb.build(t)
	if st.Archived != 1 {
		t.Errorf("archived=%d; want 1", st.Archived)
	}
	ar := tb.executor.commands("ar")
	if len(ar) != 1 {
		t.Fatalf("ar commands=%q; want 1", ar)
	}
	objs := ar[0][3:]
	sort.Strings(objs)
	top := tb.b.projects[0]
	want := []string{
		filepath.Join(tb.b.buildDir, top.Subdir, "mylib", "x.o"),
		filepath.Join(tb.b.buildDir, top.Subdir, "mylib", "y.o"),
	}
	if diff := cmp.Diff(want, objs); diff != "" {
		t.Errorf("archived objects diff -want +got:\n%s", diff)
	}
}
