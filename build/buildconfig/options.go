// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package buildconfig

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.chromium.org/infra/build/incbuild/toolsupport/shutil"
)

// ExtSet is a set of file extensions, such as ".c".
type ExtSet map[string]bool

// NewExtSet creates a new ExtSet of exts.
func NewExtSet(exts ...string) ExtSet {
	s := make(ExtSet, len(exts))
	for _, e := range exts {
		s[e] = true
	}
	return s
}

// Has reports whether the set has ext.
func (s ExtSet) Has(ext string) bool {
	return s[ext]
}

// HasFile reports whether fname has an extension in the set.
func (s ExtSet) HasFile(fname string) bool {
	return s[filepath.Ext(fname)]
}

// Union returns a new set of s and o.
func (s ExtSet) Union(o ExtSet) ExtSet {
	u := make(ExtSet, len(s)+len(o))
	for e := range s {
		u[e] = true
	}
	for e := range o {
		u[e] = true
	}
	return u
}

// Intersect returns sorted extensions both in s and o.
func (s ExtSet) Intersect(o ExtSet) []string {
	var exts []string
	for e := range s {
		if o[e] {
			exts = append(exts, e)
		}
	}
	sort.Strings(exts)
	return exts
}

// Sorted returns sorted extensions in the set.
func (s ExtSet) Sorted() []string {
	exts := make([]string, 0, len(s))
	for e := range s {
		exts = append(exts, e)
	}
	sort.Strings(exts)
	return exts
}

func (s ExtSet) String() string {
	return "{" + strings.Join(s.Sorted(), " ") + "}"
}

// Default tools and extensions.
var (
	DefaultCExts          = NewExtSet(".c", ".s", ".S")
	DefaultCPPExts        = NewExtSet(".cpp", ".cc")
	DefaultHeaderExts     = NewExtSet(".h", ".hpp")
	PrecompiledObjExts    = NewExtSet(".o", ".obj")
	PrecompiledLibExts    = NewExtSet(".a", ".so")
	DefaultLinkScriptExts = NewExtSet(".ld")
)

const (
	DefaultCComp   = "gcc"
	DefaultCPPComp = "g++"
	DefaultAR      = "ar"
)

// Options are options of a project derived from its definitions.
// Paths are absolute, joined to the project's main dir.
type Options struct {
	MainDir    string
	ConfigName string

	// Entries are entry dirs. If ENTRYPOINT is not defined, it is
	// the main dir.
	Entries           []string
	EntrypointDefined bool
	Excludes          []string
	ExcludeSrc        []string
	Neutrals          []string
	LibDirs           []string
	ExcludedFiles     []string
	// NonPropagated are dirs whose files are private to the project.
	NonPropagated []string

	HeaderExts      ExtSet
	CExts           ExtSet
	CPPExts         ExtSet
	PrecompiledExts ExtSet
	LinkScriptExts  ExtSet

	CFlags      []string
	CPPFlags    []string
	LinkerFlags []string

	// Tools. *Set is true if the config defines it explicitly.
	CComp, CPPComp, Linker, AR             string
	CCompSet, CPPCompSet, LinkerSet, ARSet bool

	GenerateExecutable       bool
	GenerateTest             bool
	OnlyLinkWithDirectParent bool

	// NextConfig is the config name used for sub-projects.
	NextConfig string

	// Inherited are definitions passed to sub-projects.
	Inherited Definitions

	// Warnings are non fatal issues found in the definitions.
	Warnings []string
}

// SourceExts returns extensions of C and C++ sources.
func (o *Options) SourceExts() ExtSet {
	return o.CExts.Union(o.CPPExts)
}

// AllowedExts returns extensions of sources and headers.
func (o *Options) AllowedExts() ExtSet {
	return o.SourceExts().Union(o.HeaderExts)
}

// ParseOptions parses definitions of the project at mainDir.
// testDirs are top-level dirs of the project whose name ends with "test",
// used for GENERATE_TEST and default excludes.
func ParseOptions(mainDir, configName string, isTop bool, defs Definitions, testDirs []string) (*Options, error) {
	o := &Options{
		MainDir:            mainDir,
		ConfigName:         configName,
		HeaderExts:         DefaultHeaderExts,
		CExts:              DefaultCExts,
		CPPExts:            DefaultCPPExts,
		PrecompiledExts:    PrecompiledObjExts.Union(PrecompiledLibExts),
		LinkScriptExts:     DefaultLinkScriptExts,
		CComp:              DefaultCComp,
		CPPComp:            DefaultCPPComp,
		AR:                 DefaultAR,
		GenerateExecutable: isTop,
		NextConfig:         DefaultConfigName,
	}
	p := optionParser{defs: defs, mainDir: mainDir}
	o.EntrypointDefined = defs.Has(KeyEntrypoint)
	o.Entries = p.paths(KeyEntrypoint)
	o.Excludes = p.paths(KeyExcludes)
	o.ExcludeSrc = p.paths(KeyExcludeSrc)
	o.Neutrals = p.paths(KeyNeutrals)
	o.LibDirs = p.paths(KeyAsLib)
	o.ExcludedFiles = p.paths(KeyExcludedFiles)

	o.CFlags = p.flags(KeyCFlags, map[string]*[]string{KeyCPPFlags: &o.CPPFlags, KeyLinkerFlags: &o.LinkerFlags})
	o.CPPFlags = p.flags(KeyCPPFlags, map[string]*[]string{KeyCFlags: &o.CFlags, KeyLinkerFlags: &o.LinkerFlags})
	o.LinkerFlags = p.flags(KeyLinkerFlags, map[string]*[]string{KeyCFlags: &o.CFlags, KeyCPPFlags: &o.CPPFlags})

	o.HeaderExts = o.HeaderExts.Union(NewExtSet(p.strings(KeyHeader)...))
	o.CExts = o.CExts.Union(NewExtSet(p.strings(KeyC)...))
	o.CPPExts = o.CPPExts.Union(NewExtSet(p.strings(KeyCPP)...))

	o.CComp, o.CCompSet = p.tool(KeyCComp, o.CComp)
	o.CPPComp, o.CPPCompSet = p.tool(KeyCPPComp, o.CPPComp)
	o.AR, o.ARSet = p.tool(KeyAR, o.AR)
	o.Linker, o.LinkerSet = p.tool(KeyLinker, o.CPPComp)

	o.GenerateTest = p.bool(KeyGenerateTest)
	if defs.Has(KeyGenerateExecutable) {
		o.GenerateExecutable = p.bool(KeyGenerateExecutable)
	}
	o.OnlyLinkWithDirectParent = p.bool(KeyOnlyLinkWithDirectParent)

	if !o.EntrypointDefined {
		o.Entries = []string{mainDir}
	}
	switch {
	case o.GenerateTest:
		o.NonPropagated = append([]string(nil), testDirs...)
		o.Entries = append(o.Entries, testDirs...)
		o.GenerateExecutable = true
	case o.GenerateExecutable:
		o.NonPropagated = append([]string(nil), o.Entries...)
	}
	for _, dir := range p.paths(KeyPropagate) {
		o.NonPropagated = removeString(o.NonPropagated, dir)
	}

	if next := p.string(KeyNextConfig); next != "" {
		o.NextConfig = next
	} else if o.GenerateTest {
		o.NextConfig = configName
	}
	if defs.Has(KeyQT5Make) {
		o.Warnings = append(o.Warnings, fmt.Sprintf("%s is not supported; generate moc/uic files before building", KeyQT5Make))
	}
	if !o.GenerateTest && len(o.Excludes) == 0 {
		o.Excludes = append(o.Excludes, testDirs...)
	}
	inherited, err := defs.Inherit()
	if err != nil {
		p.errs = append(p.errs, err)
	}
	o.Inherited = inherited
	if len(p.errs) > 0 {
		return nil, p.errs[0]
	}
	return o, nil
}

type optionParser struct {
	defs    Definitions
	mainDir string
	errs    []error
}

func (p *optionParser) strings(key string) []string {
	s, err := p.defs.Strings(key)
	if err != nil {
		p.errs = append(p.errs, err)
	}
	return s
}

func (p *optionParser) string(key string) string {
	s, err := p.defs.String(key)
	if err != nil {
		p.errs = append(p.errs, err)
	}
	return s
}

func (p *optionParser) bool(key string) bool {
	b, err := p.defs.Bool(key)
	if err != nil {
		p.errs = append(p.errs, err)
	}
	return b
}

func (p *optionParser) paths(key string) []string {
	var paths []string
	for _, s := range p.strings(key) {
		paths = append(paths, filepath.Join(p.mainDir, s))
	}
	return paths
}

func (p *optionParser) tool(key, def string) (string, bool) {
	if !p.defs.Has(key) {
		return def, false
	}
	return p.string(key), true
}

// flags parses flags for key. An element naming other flags splices
// their values parsed so far.
func (p *optionParser) flags(key string, others map[string]*[]string) []string {
	var flags []string
	for _, s := range p.strings(key) {
		if other, ok := others[s]; ok {
			flags = append(flags, (*other)...)
			continue
		}
		args, err := shutil.Split(s)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		flags = append(flags, args...)
	}
	return flags
}

func removeString(list []string, s string) []string {
	var r []string
	for _, e := range list {
		if e != s {
			r = append(r, e)
		}
	}
	return r
}
