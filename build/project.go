// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"go.chromium.org/infra/build/incbuild/build/buildconfig"
	"go.chromium.org/infra/build/incbuild/o11y/clog"
)

// Project is a directory tree governed by one config.
type Project struct {
	// Options are options parsed from the config.
	// Entries, Excludes and Neutrals are updated by presort.
	Options *buildconfig.Options

	Top bool

	// Subdir is the name of the project's dir in the build dir.
	Subdir string

	// SubprojectDirs are dirs of sub-projects found in entries.
	SubprojectDirs []string

	extraFolders []string
	extraFiles   []string

	entries    *dirList
	excludes   *dirList
	neutrals   *dirList
	excludeSrc *dirList

	entryFiles []string

	// Precomps are precompiled files in entries.
	// PublicPrecomps are those not in non-propagated dirs.
	Precomps       []string
	PublicPrecomps []string

	LinkerScripts []string

	sources     map[string]*File
	sourceOrder []string

	// tools. cc and cxx are used for probes as is, and prefixed with
	// ccache for compiles.
	cc, cxx, linker, ar []string
	ccache              []string
}

// Dir returns the main dir of the project.
func (p *Project) Dir() string {
	return p.Options.MainDir
}

func (p *Project) String() string {
	return p.Options.MainDir + "#" + p.Options.ConfigName
}

// Sources returns compiled sources of the project, in the order added.
func (p *Project) Sources() []*File {
	files := make([]*File, 0, len(p.sourceOrder))
	for _, s := range p.sourceOrder {
		files = append(files, p.sources[s])
	}
	return files
}

func (p *Project) source(stem string) (*File, bool) {
	f, ok := p.sources[stem]
	return f, ok
}

// addSource adds f to compiled sources.
// Sources are unique by stem in a project, since objects are named
// after the stem.
func (p *Project) addSource(f *File) error {
	if other, ok := p.sources[f.Stem]; ok {
		if other.Path == f.Path {
			return nil
		}
		return DuplicateSourceError{
			Name:        f.Name,
			Path:        f.Path,
			Reason:      f.Reason,
			OtherPath:   other.Path,
			OtherReason: other.Reason,
		}
	}
	p.sources[f.Stem] = f
	p.sourceOrder = append(p.sourceOrder, f.Stem)
	return nil
}

// removeSource removes path from compiled sources.
func (p *Project) removeSource(path string) bool {
	s := stem(filepath.Base(path))
	f, ok := p.sources[s]
	if !ok || f.Path != path {
		return false
	}
	delete(p.sources, s)
	p.sourceOrder = removeString(p.sourceOrder, s)
	return true
}

// toolFor returns the compiler and flags for f.
func (p *Project) toolFor(f *File) ([]string, []string) {
	if p.Options.CExts.Has(f.Ext) {
		return p.cc, p.Options.CFlags
	}
	return p.cxx, p.Options.CPPFlags
}

// nonPropagated reports whether dir is in a non-propagated dir.
func (p *Project) nonPropagated(dir string) bool {
	_, ok := inAnyDir(dir, p.Options.NonPropagated)
	return ok
}

// inSubproject reports whether path is in a sub-project of p.
func (p *Project) inSubproject(path string) bool {
	_, ok := inAnyDir(path, p.SubprojectDirs)
	return ok
}

// dirList is an ordered set of dirs.
type dirList struct {
	list []string
	set  map[string]bool
}

func newDirList(dirs []string) *dirList {
	d := &dirList{set: make(map[string]bool)}
	for _, dir := range dirs {
		d.add(dir)
	}
	return d
}

func (d *dirList) add(dir string) {
	if d.set[dir] {
		return
	}
	d.set[dir] = true
	d.list = append(d.list, dir)
}

func (d *dirList) remove(dir string) {
	if !d.set[dir] {
		return
	}
	delete(d.set, dir)
	d.list = removeString(d.list, dir)
}

func (d *dirList) has(dir string) bool {
	return d.set[dir]
}

// overlap returns dirs in both d and o.
func (d *dirList) overlap(o *dirList) []string {
	var dirs []string
	for _, dir := range d.list {
		if o.has(dir) {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// newProject creates the project at dir using config configName.
// inherited are definitions inherited from the parent project.
func (b *Builder) newProject(ctx context.Context, dir, configName string, isTop bool, inherited buildconfig.Definitions) (*Project, error) {
	b.ui.Infof("%s %s", sgrBold("Initializing project"), b.rel(dir))
	cfgPath := filepath.Join(dir, configName)
	own, err := buildconfig.Load(ctx, cfgPath)
	if err != nil {
		return nil, ConfigError{Path: cfgPath, Err: err}
	}
	defs := buildconfig.Merge(b.defaults, inherited, own)
	for _, key := range buildconfig.Unknown(defs) {
		b.ui.Warningf("config variable %s in %s is unknown", key, b.rel(cfgPath))
		err := b.acknowledge(ctx, "Press Enter to acknowledge this. Tip: you can use # to write comments in config files")
		if err != nil {
			return nil, err
		}
	}
	hash, err := buildconfig.Fingerprint(cfgPath)
	if err != nil {
		return nil, ConfigError{Path: cfgPath, Err: err}
	}
	if b.cache.CheckHash(ctx, dir, hash) {
		b.verbosef("config %s changed. discard cache", b.rel(cfgPath))
	}

	testDirs, err := b.testDirs(ctx, dir)
	if err != nil {
		return nil, err
	}
	opts, err := buildconfig.ParseOptions(dir, configName, isTop, defs, testDirs)
	if err != nil {
		return nil, ConfigError{Path: cfgPath, Err: err}
	}
	for _, w := range opts.Warnings {
		b.ui.Warningf("%s: %s", b.rel(cfgPath), w)
	}
	if !opts.EntrypointDefined {
		b.verbosef("no entrypoint was defined for project %s. adding the top-level folder", b.rel(dir))
	}
	p := &Project{
		Options: opts,
		Top:     isTop,
		Subdir:  filepath.Base(dir) + "#" + configName,
		sources: make(map[string]*File),
	}
	if isTop {
		for _, l := range b.opts.LibFolders {
			opts.LibDirs = append(opts.LibDirs, filepath.Join(dir, l))
		}
		p.extraFolders = b.opts.ExtraFolders
		p.extraFiles = b.opts.ExtraFiles
	}
	if err := b.checkPaths(ctx, p); err != nil {
		return nil, err
	}
	if err := checkExts(p); err != nil {
		return nil, err
	}
	p.entries = newDirList(opts.Entries)
	p.excludes = newDirList(opts.Excludes)
	p.neutrals = newDirList(opts.Neutrals)
	p.excludeSrc = newDirList(opts.ExcludeSrc)
	for _, d := range p.extraFolders {
		path := filepath.Join(dir, d)
		if !b.fsys.IsDir(ctx, path) {
			return nil, MissingPathError{Kind: "extra folder", Path: d, Project: dir}
		}
		p.entries.add(path)
		p.excludes.remove(path)
		p.neutrals.remove(path)
	}
	if err := b.checkTools(ctx, p); err != nil {
		return nil, err
	}
	if err := b.makeBuildSubdir(ctx, p); err != nil {
		return nil, err
	}
	clog.Infof(ctx, "project %s: entries=%q excludes=%q neutrals=%q libs=%q", p, p.entries.list, p.excludes.list, p.neutrals.list, opts.LibDirs)
	return p, nil
}

// testDirs returns top-level dirs of dir whose name ends with "test".
func (b *Builder) testDirs(ctx context.Context, dir string) ([]string, error) {
	ents, err := b.fsys.ReadDir(ctx, dir)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, ent := range ents {
		if strings.HasSuffix(ent.Name(), "test") && b.fsys.IsDir(ctx, filepath.Join(dir, ent.Name())) {
			dirs = append(dirs, filepath.Join(dir, ent.Name()))
		}
	}
	return dirs, nil
}

func (b *Builder) checkPaths(ctx context.Context, p *Project) error {
	opts := p.Options
	for _, c := range []struct {
		kind string
		dirs []string
	}{
		{kind: "library", dirs: opts.LibDirs},
		{kind: "entrypoint", dirs: opts.Entries},
		{kind: "neutral", dirs: opts.Neutrals},
	} {
		for _, d := range c.dirs {
			if !b.fsys.Exists(ctx, d) {
				return MissingPathError{Kind: c.kind, Path: d, Project: opts.MainDir}
			}
		}
	}
	for _, c := range []struct {
		kind string
		dirs []string
	}{
		{kind: "exclude", dirs: opts.Excludes},
		{kind: "exclude-src", dirs: opts.ExcludeSrc},
	} {
		for _, d := range c.dirs {
			if !b.fsys.Exists(ctx, d) {
				b.ui.Warningf("%s path %s wasn't found in project %s", c.kind, b.rel(d), b.rel(opts.MainDir))
			}
		}
	}
	return nil
}

func checkExts(p *Project) error {
	opts := p.Options
	var exts []string
	exts = append(exts, opts.CExts.Intersect(opts.CPPExts)...)
	exts = append(exts, opts.CExts.Intersect(opts.HeaderExts)...)
	exts = append(exts, opts.CPPExts.Intersect(opts.HeaderExts)...)
	if len(exts) > 0 {
		return ExtensionOverlapError{Project: opts.MainDir, Exts: exts}
	}
	return nil
}

// makeBuildSubdir creates the project's dir in the build dir.
func (b *Builder) makeBuildSubdir(ctx context.Context, p *Project) error {
	dir := filepath.Join(b.buildDir, p.Subdir)
	err := b.fsys.Mkdir(ctx, dir, 0755)
	if errors.Is(err, fs.ErrExist) {
		return DuplicateProjectError{Subdir: p.Subdir}
	}
	if err != nil {
		return err
	}
	for _, sub := range []string{nonPropDir, objDir, libDir} {
		if err := b.fsys.Mkdir(ctx, filepath.Join(dir, sub), 0755); err != nil {
			return err
		}
	}
	return nil
}

// Names of dirs in a project's build dir.
const (
	nonPropDir = "non_prop"
	objDir     = "obj"
	libDir     = "lib"
)

// objectDir returns the dir f is compiled into.
func (b *Builder) objectDir(p *Project, f *File) string {
	dir := filepath.Join(b.buildDir, p.Subdir)
	switch {
	case f.Lib != "":
		return filepath.Join(dir, f.Lib)
	case p.nonPropagated(f.Dir):
		return filepath.Join(dir, nonPropDir)
	default:
		return filepath.Join(dir, objDir)
	}
}

// realpath returns the realpath of dir.
func (b *Builder) realpath(ctx context.Context, dir string) string {
	return b.fsys.Realpath(ctx, dir)
}

// ownerProject returns the project owning path: the project whose dir
// is the longest prefix of path.
func (b *Builder) ownerProject(ctx context.Context, path string) (*Project, bool) {
	dir, ok := inAnyDir(path, b.projectDirs)
	if !ok {
		return nil, false
	}
	rp := b.realpath(ctx, dir)
	for _, p := range b.projects {
		if p.Dir() == dir {
			return p, true
		}
	}
	for _, p := range b.projects {
		if b.realpath(ctx, p.Dir()) == rp {
			return p, true
		}
	}
	return nil, false
}
