// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package buildconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fname := filepath.Join(dir, "comp.toml")
	err := os.WriteFile(fname, []byte(`
# comment
ENTRYPOINT = ["src", "app"]
CCOMP = "arm-none-eabi-gcc"
GENERATE_EXECUTABLE = true
`), 0644)
	if err != nil {
		t.Fatal(err)
	}
	defs, err := Load(ctx, fname)
	if err != nil {
		t.Fatalf("Load(ctx, %q)=%v; want nil", fname, err)
	}
	entries, err := defs.Strings(KeyEntrypoint)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"src", "app"}, entries); diff != "" {
		t.Errorf("ENTRYPOINT diff -want +got:\n%s", diff)
	}
	if got, err := defs.String(KeyCComp); err != nil || got != "arm-none-eabi-gcc" {
		t.Errorf("CCOMP=%q, %v; want arm-none-eabi-gcc, nil", got, err)
	}
	if got, err := defs.Bool(KeyGenerateExecutable); err != nil || !got {
		t.Errorf("GENERATE_EXECUTABLE=%t, %v; want true, nil", got, err)
	}

	missing := filepath.Join(dir, "missing.toml")
	defs, err = Load(ctx, missing)
	if err != nil || len(defs) != 0 {
		t.Errorf("Load(ctx, %q)=%v, %v; want empty, nil", missing, defs, err)
	}

	broken := filepath.Join(dir, "broken.toml")
	if err := os.WriteFile(broken, []byte("ENTRYPOINT = [\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = Load(ctx, broken)
	if err == nil {
		t.Errorf("Load(ctx, %q)=nil; want err", broken)
	}
}

func TestFingerprint(t *testing.T) {
	dir := t.TempDir()
	fname := filepath.Join(dir, "comp.toml")
	got, err := Fingerprint(fname)
	if err != nil || got != "-1" {
		t.Errorf("Fingerprint(missing)=%q, %v; want -1, nil", got, err)
	}
	if err := os.WriteFile(fname, []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err = Fingerprint(fname)
	// sha1("abc")
	want := "a9993e364706816aba3e25717850c26c9cd0d89d"
	if err != nil || got != want {
		t.Errorf("Fingerprint=%q, %v; want %q, nil", got, err, want)
	}
}

func TestMergeAndUnknown(t *testing.T) {
	defs := Merge(
		Definitions{"CCOMP": "gcc", "CFLAGS": "-O0"},
		Definitions{"CFLAGS": "-O1"},
		Definitions{"CFLAGS": "-O2", "FOO": 1, "BAR": true},
	)
	want := Definitions{"CCOMP": "gcc", "CFLAGS": "-O2", "FOO": 1, "BAR": true}
	if diff := cmp.Diff(want, defs); diff != "" {
		t.Errorf("Merge diff -want +got:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"BAR", "FOO"}, Unknown(defs)); diff != "" {
		t.Errorf("Unknown diff -want +got:\n%s", diff)
	}
}

func TestAccessorErrors(t *testing.T) {
	defs := Definitions{
		"ENTRYPOINT":          []any{"src", int64(1)},
		"CCOMP":               []any{"gcc"},
		"GENERATE_EXECUTABLE": "yes",
		"HEADER":              int64(3),
	}
	if _, err := defs.Strings(KeyEntrypoint); err == nil {
		t.Errorf("Strings(ENTRYPOINT)=nil; want err")
	}
	if _, err := defs.Strings(KeyHeader); err == nil {
		t.Errorf("Strings(HEADER)=nil; want err")
	}
	if _, err := defs.String(KeyCComp); err == nil {
		t.Errorf("String(CCOMP)=nil; want err")
	}
	if _, err := defs.Bool(KeyGenerateExecutable); err == nil {
		t.Errorf("Bool(GENERATE_EXECUTABLE)=nil; want err")
	}
}

func TestInherit(t *testing.T) {
	for _, tc := range []struct {
		name    string
		defs    Definitions
		want    Definitions
		wantErr bool
	}{
		{
			name: "none",
			defs: Definitions{"CCOMP": "gcc"},
			want: Definitions{},
		},
		{
			name: "inherit",
			defs: Definitions{
				"INHERIT": []any{"CCOMP", "CFLAGS"},
				"CCOMP":   "clang",
				"CFLAGS":  "-O2",
				"LINKER":  "ld",
			},
			want: Definitions{"CCOMP": "clang", "CFLAGS": "-O2"},
		},
		{
			name: "undefined",
			defs: Definitions{
				"INHERIT": []any{"CCOMP"},
			},
			wantErr: true,
		},
		{
			name: "unknown",
			defs: Definitions{
				"INHERIT": []any{"COMPILER"},
				"COMPILER": "gcc",
			},
			wantErr: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.defs.Inherit()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Inherit()=%v, %v; want err %t", got, err, tc.wantErr)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Inherit diff -want +got:\n%s", diff)
			}
		})
	}
}
