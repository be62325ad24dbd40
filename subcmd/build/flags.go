// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.chromium.org/infra/build/incbuild/build"
	"go.chromium.org/infra/build/incbuild/build/buildconfig"
)

// DefaultConfigEnv is the environment variable naming the default
// config file.
const DefaultConfigEnv = "INCBUILD_DEFAULT_CONFIG"

// listFlag is a flag that can be repeated.
type listFlag []string

func (l *listFlag) String() string {
	return strings.Join(*l, ",")
}

func (l *listFlag) Set(v string) error {
	if v == "" {
		return errors.New("empty value")
	}
	*l = append(*l, v)
	return nil
}

// Flags are flags of a build, shared by build and watch.
type Flags struct {
	Dir           string
	DefaultConfig string

	ExtraFiles   listFlag
	ExtraFolders listFlag
	LibFolders   listFlag

	Jobs int

	NoCache        bool
	NoCCache       bool
	PrintCommands  bool
	PrintStructure bool
	Verbose        bool
	NonInteractive bool
}

// Register registers flags in fs.
func (f *Flags) Register(fs *flag.FlagSet) {
	fs.StringVar(&f.Dir, "C", ".", "top dir of the project to build")
	fs.StringVar(&f.DefaultConfig, "default_config", "", "config file giving defaults of every project. $"+DefaultConfigEnv+", or default.toml in the user config dir if empty")
	fs.Var(&f.ExtraFiles, "F", "source file of an excluded or neutral folder to compile in the top project. can be repeated")
	fs.Var(&f.ExtraFolders, "D", "folder to use as an entrypoint instead of excluded or neutral. can be repeated")
	fs.Var(&f.LibFolders, "L", "folder to bundle into a library. can be repeated")
	fs.IntVar(&f.Jobs, "j", 1, "number of compile workers. 0 uses the number of CPUs")
	fs.BoolVar(&f.NoCache, "no_cache", false, "delete the cache before starting")
	fs.BoolVar(&f.NoCCache, "no_ccache", false, "don't use ccache")
	fs.BoolVar(&f.PrintCommands, "p", false, "print compile and link commands")
	fs.BoolVar(&f.PrintStructure, "print_structure", false, "print the structure of the top dir")
	fs.BoolVar(&f.Verbose, "verbose", false, "show more information")
	fs.BoolVar(&f.NonInteractive, "non_interactive", false, "fail instead of asking questions")
}

// Options returns build options for the flags.
// args are positional args: an optional config name of the top project.
func (f *Flags) Options(args []string) (build.Options, error) {
	if len(args) > 1 {
		return build.Options{}, fmt.Errorf("too many args: %q", args)
	}
	dir, err := filepath.Abs(f.Dir)
	if err != nil {
		return build.Options{}, err
	}
	fi, err := os.Stat(dir)
	if err != nil {
		return build.Options{}, err
	}
	if !fi.IsDir() {
		return build.Options{}, fmt.Errorf("%s is not a directory", dir)
	}
	if f.Jobs < 0 {
		return build.Options{}, fmt.Errorf("-j must not be negative: %d", f.Jobs)
	}
	opts := build.Options{
		Dir:            dir,
		ConfigName:     buildconfig.DefaultConfigName,
		DefaultConfig:  defaultConfigPath(f.DefaultConfig),
		ExtraFiles:     f.ExtraFiles,
		ExtraFolders:   f.ExtraFolders,
		LibFolders:     f.LibFolders,
		Jobs:           f.Jobs,
		NoCache:        f.NoCache,
		NoCCache:       f.NoCCache,
		PrintCommands:  f.PrintCommands,
		PrintStructure: f.PrintStructure,
		Verbose:        f.Verbose,
	}
	if len(args) == 1 {
		opts.ConfigName = args[0]
	}
	return opts, nil
}

// defaultConfigPath returns the default config file path:
// fname if set, then $INCBUILD_DEFAULT_CONFIG, then default.toml in
// the user config dir.
func defaultConfigPath(fname string) string {
	if fname != "" {
		return fname
	}
	if v := os.Getenv(DefaultConfigEnv); v != "" {
		return v
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "incbuild", "default.toml")
}
