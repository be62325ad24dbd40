// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import (
	"fmt"
	"strings"

	"go.chromium.org/infra/build/incbuild/ui"
)

// ErrAborted is returned when the user aborted a prompt.
var ErrAborted = ui.ErrAborted

// ConfigError is an error in a project config.
type ConfigError struct {
	Path string
	Err  error
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e ConfigError) Unwrap() error {
	return e.Err
}

// MissingPathError is an error of a path definition that doesn't exist.
type MissingPathError struct {
	// Kind is a kind of the definition, e.g. "entrypoint".
	Kind    string
	Path    string
	Project string
}

func (e MissingPathError) Error() string {
	return fmt.Sprintf("%s path %s wasn't found in project %s", e.Kind, e.Path, e.Project)
}

// OverlapError is an error of dirs defined as more than one of
// entries, excludes and neutrals.
type OverlapError struct {
	Project string
	Dirs    []string
}

func (e OverlapError) Error() string {
	return fmt.Sprintf("overlap between neutral, exclude and entry definitions in %s: %s", e.Project, strings.Join(e.Dirs, ", "))
}

// ExtensionOverlapError is an error of file extensions defined as
// more than one of header, C and C++.
type ExtensionOverlapError struct {
	Project string
	Exts    []string
}

func (e ExtensionOverlapError) Error() string {
	return fmt.Sprintf("overlapping header, C and C++ file extensions in %s: %s", e.Project, strings.Join(e.Exts, " "))
}

// DuplicateLibraryError is an error of library dirs with the same name.
type DuplicateLibraryError struct {
	Name string
	Dirs []string
}

func (e DuplicateLibraryError) Error() string {
	return fmt.Sprintf("library with name %q is defined twice: %s", e.Name, strings.Join(e.Dirs, ", "))
}

// LibraryPlacementError is an error of a library dir that can't be
// bundled.
type LibraryPlacementError struct {
	Dir    string
	Reason string
}

func (e LibraryPlacementError) Error() string {
	return fmt.Sprintf("library %s %s", e.Dir, e.Reason)
}

// DuplicateSourceError is an error of source files with the same stem
// in a project.
type DuplicateSourceError struct {
	Name        string
	Path        string
	Reason      string
	OtherPath   string
	OtherReason string
}

func (e DuplicateSourceError) Error() string {
	return fmt.Sprintf("file %s defined twice: %s (required by %s) and %s (required by %s)", e.Name, e.Path, e.Reason, e.OtherPath, e.OtherReason)
}

// DuplicateProjectError is an error of projects with the same build subdir.
type DuplicateProjectError struct {
	Subdir string
}

func (e DuplicateProjectError) Error() string {
	return fmt.Sprintf("subproject with name %s defined twice. multiple symbolic links to the same project are allowed, but projects themselves must have unique names", e.Subdir)
}

// ExtraFileError is an error of an extra file pattern that doesn't match
// exactly one file.
type ExtraFileError struct {
	Pattern string
	Matches []string
}

func (e ExtraFileError) Error() string {
	if len(e.Matches) == 0 {
		return fmt.Sprintf("no files matching extra file %s found", e.Pattern)
	}
	return fmt.Sprintf("multiple files found for extra file %s: %s", e.Pattern, strings.Join(e.Matches, ", "))
}

// MissingToolError is an error of a tool that is not found.
type MissingToolError struct {
	// Kind is a kind of the tool, e.g. "C compiler".
	Kind  string
	Tried []string
}

func (e MissingToolError) Error() string {
	return fmt.Sprintf("%s not found: tried %s", e.Kind, strings.Join(e.Tried, ", "))
}

// MissingIncludeError is an error of an include that doesn't match
// any known file.
type MissingIncludeError struct {
	Name       string
	RequiredBy string

	// Hints.
	ExcludedMatches []string
	SameNameMatches []string
	OtherProjects   []string
}

func (e MissingIncludeError) Error() string {
	return fmt.Sprintf("file %s is required by %s, but no file like this is in this project", e.Name, e.RequiredBy)
}

// Hints returns lines that may help to fix the error.
func (e MissingIncludeError) Hints() []string {
	var lines []string
	if len(e.ExcludedMatches) > 0 {
		lines = append(lines, "matches were found in excluded folders:")
		lines = append(lines, indent(e.ExcludedMatches)...)
	}
	if len(e.SameNameMatches) > 0 {
		lines = append(lines, "found files matching the required name, but in non-matching folder:")
		lines = append(lines, indent(e.SameNameMatches)...)
	}
	if len(e.OtherProjects) > 0 {
		lines = append(lines, "found files with matching names in other projects. including source files from another project is only supported if the source file is in a neutral folder:")
		lines = append(lines, indent(e.OtherProjects)...)
		lines = append(lines, "consider putting them in a neutral folder, or making them header files.")
	}
	return lines
}

func indent(paths []string) []string {
	lines := make([]string, 0, len(paths))
	for _, p := range paths {
		lines = append(lines, "\t"+p)
	}
	return lines
}

// ExcludedRequireError is an error of a file required from an excluded dir.
type ExcludedRequireError struct {
	File       string
	RequiredBy string
}

func (e ExcludedRequireError) Error() string {
	return fmt.Sprintf("file %s requires %s which is in an excluded folder", e.RequiredBy, e.File)
}

// CommandError is an error of a compile, archive or link command.
type CommandError struct {
	Desc    string
	Command string
	Stderr  string
	Err     error
}

func (e CommandError) Error() string {
	msg := fmt.Sprintf("%s failed: %v\n%s", e.Desc, e.Err, e.Command)
	if e.Stderr != "" {
		msg += "\n" + strings.TrimRight(e.Stderr, "\n")
	}
	return msg
}

func (e CommandError) Unwrap() error {
	return e.Err
}
