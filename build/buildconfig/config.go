// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package buildconfig provides project config (comp.toml) for incbuild.
package buildconfig

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"go.chromium.org/infra/build/incbuild/o11y/clog"
)

// DefaultConfigName is the config file name used when none is given.
const DefaultConfigName = "comp.toml"

// Known config keys.
const (
	KeyInherit                  = "INHERIT"
	KeyExcludeSrc               = "EXCLUDE_SRC"
	KeyEntrypoint               = "ENTRYPOINT"
	KeyNeutrals                 = "NEUTRALS"
	KeyExcludes                 = "EXCLUDES"
	KeyHeader                   = "HEADER"
	KeyC                        = "C"
	KeyCPP                      = "CPP"
	KeyCComp                    = "CCOMP"
	KeyCFlags                   = "CFLAGS"
	KeyCPPComp                  = "CPPCOMP"
	KeyCPPFlags                 = "CPPFLAGS"
	KeyLinker                   = "LINKER"
	KeyLinkerFlags              = "LINKERFLAGS"
	KeyAR                       = "AR"
	KeyAsLib                    = "AS_LIB"
	KeyGenerateExecutable       = "GENERATE_EXECUTABLE"
	KeyGenerateTest             = "GENERATE_TEST"
	KeyExcludedFiles            = "EXCLUDED_FILES"
	KeyPropagate                = "PROPAGATE"
	KeyNextConfig               = "NEXT_CONFIG"
	KeyQT5Make                  = "QT5_MAKE"
	KeyOnlyLinkWithDirectParent = "ONLY_LINK_WITH_DIRECT_PARENT"
)

var knownKeys = map[string]bool{
	KeyInherit:                  true,
	KeyExcludeSrc:               true,
	KeyEntrypoint:               true,
	KeyNeutrals:                 true,
	KeyExcludes:                 true,
	KeyHeader:                   true,
	KeyC:                        true,
	KeyCPP:                      true,
	KeyCComp:                    true,
	KeyCFlags:                   true,
	KeyCPPComp:                  true,
	KeyCPPFlags:                 true,
	KeyLinker:                   true,
	KeyLinkerFlags:              true,
	KeyAR:                       true,
	KeyAsLib:                    true,
	KeyGenerateExecutable:       true,
	KeyGenerateTest:             true,
	KeyExcludedFiles:            true,
	KeyPropagate:                true,
	KeyNextConfig:               true,
	KeyQT5Make:                  true,
	KeyOnlyLinkWithDirectParent: true,
}

// IsKnown reports whether key is a known config key.
func IsKnown(key string) bool {
	return knownKeys[key]
}

// Definitions are key-values defined in a config file.
type Definitions map[string]any

// Load loads definitions from fname.
// It returns empty definitions if fname doesn't exist.
func Load(ctx context.Context, fname string) (Definitions, error) {
	buf, err := os.ReadFile(fname)
	if errors.Is(err, fs.ErrNotExist) {
		clog.Infof(ctx, "no config %s", fname)
		return Definitions{}, nil
	}
	if err != nil {
		return nil, err
	}
	defs := Definitions{}
	err = toml.Unmarshal(buf, &defs)
	if err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("%s:%d:%d: %w", fname, row, col, err)
		}
		return nil, fmt.Errorf("%s: %w", fname, err)
	}
	clog.Infof(ctx, "loaded config %s: %d keys", fname, len(defs))
	return defs, nil
}

// Fingerprint returns a fingerprint of the config file,
// or "-1" if it doesn't exist.
func Fingerprint(fname string) (string, error) {
	buf, err := os.ReadFile(fname)
	if errors.Is(err, fs.ErrNotExist) {
		return "-1", nil
	}
	if err != nil {
		return "", err
	}
	h := sha1.Sum(buf)
	return hex.EncodeToString(h[:]), nil
}

// Merge merges layers of definitions. Later layers win.
func Merge(layers ...Definitions) Definitions {
	defs := Definitions{}
	for _, l := range layers {
		for k, v := range l {
			defs[k] = v
		}
	}
	return defs
}

// Unknown returns unknown keys in defs, sorted.
func Unknown(defs Definitions) []string {
	var keys []string
	for k := range defs {
		if !knownKeys[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether key is defined.
func (d Definitions) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Strings returns a list of strings for key.
// A single string value is treated as a list of the string.
func (d Definitions) Strings(key string) ([]string, error) {
	v, ok := d[key]
	if !ok {
		return nil, nil
	}
	switch v := v.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		s := make([]string, 0, len(v))
		for i, e := range v {
			es, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d]: want string, got %T", key, i, e)
			}
			s = append(s, es)
		}
		return s, nil
	}
	return nil, fmt.Errorf("%s: want string or list of strings, got %T", key, v)
}

// String returns a string for key.
func (d Definitions) String(key string) (string, error) {
	v, ok := d[key]
	if !ok {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: want string, got %T", key, v)
	}
	return s, nil
}

// Bool returns a bool for key.
func (d Definitions) Bool(key string) (bool, error) {
	v, ok := d[key]
	if !ok {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%s: want bool, got %T", key, v)
	}
	return b, nil
}

// Inherit returns definitions to be inherited by sub-projects,
// named by INHERIT.
func (d Definitions) Inherit() (Definitions, error) {
	names, err := d.Strings(KeyInherit)
	if err != nil {
		return nil, err
	}
	inherited := Definitions{}
	for _, name := range names {
		if !knownKeys[name] {
			return nil, fmt.Errorf("%s: unknown config key %q", KeyInherit, name)
		}
		v, ok := d[name]
		if !ok {
			return nil, fmt.Errorf("%s: %q is not defined in this project", KeyInherit, name)
		}
		inherited[name] = v
	}
	return inherited, nil
}
