// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package links

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/bureau-foundation/kiln/lib/testutil"
)

func TestExecuteSymlinkWithExclude(t *testing.T) {
	source := t.TempDir()
	testutil.WriteTree(t, source, map[string]string{
		"bin/cp":   "cp binary",
		"bin/ls":   "ls binary",
		"bin/mv":   "mv binary",
		"bin/skip": "excluded",
	})
	artifact := t.TempDir()

	executor := &Executor{Env: map[string]string{"ARTIFACT": artifact}}
	err := executor.Execute([]Rule{
		{Action: "exclude", Select: source + "/bin/skip"},
		{Action: "symlink", Select: source + "/bin/*", Prefix: source, Target: "$ARTIFACT"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := []string{"bin/cp", "bin/ls", "bin/mv"}
	if got := testutil.TreePaths(t, artifact); !reflect.DeepEqual(got, want) {
		t.Errorf("tree = %v, want %v", got, want)
	}
	if got := testutil.Readlink(t, filepath.Join(artifact, "bin", "cp")); got != filepath.Join(source, "bin", "cp") {
		t.Errorf("symlink target = %q", got)
	}
}

func TestExecuteFirstMatchWins(t *testing.T) {
	source := t.TempDir()
	testutil.WriteTree(t, source, map[string]string{"bin/tool": "x"})
	first := t.TempDir()
	second := t.TempDir()

	executor := &Executor{Env: map[string]string{}}
	err := executor.Execute([]Rule{
		{Action: "symlink", Select: source + "/bin/tool", Prefix: source, Target: first},
		{Action: "symlink", Select: source + "/bin/*", Prefix: source, Target: second},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if _, err := os.Lstat(filepath.Join(first, "bin", "tool")); err != nil {
		t.Errorf("first rule should have claimed the path: %v", err)
	}
	if _, err := os.Lstat(filepath.Join(second, "bin", "tool")); !os.IsNotExist(err) {
		t.Error("second rule must not revisit a claimed path")
	}
}

func TestExecuteRelativeSymlink(t *testing.T) {
	source := t.TempDir()
	testutil.WriteTree(t, source, map[string]string{"lib/libz.so": "z"})
	artifact := t.TempDir()

	executor := &Executor{Env: map[string]string{}}
	err := executor.Execute([]Rule{
		{Action: "relative_symlink", Select: source + "/lib/*", Prefix: source, Target: artifact},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	got := testutil.Readlink(t, filepath.Join(artifact, "lib", "libz.so"))
	if filepath.IsAbs(got) {
		t.Errorf("relative_symlink produced absolute target %q", got)
	}
	resolved := filepath.Join(artifact, "lib", got)
	if filepath.Clean(resolved) != filepath.Join(source, "lib", "libz.so") {
		t.Errorf("relative link resolves to %q", filepath.Clean(resolved))
	}
}

func TestExecuteCopy(t *testing.T) {
	source := t.TempDir()
	testutil.WriteTree(t, source, map[string]string{"etc/resolv.conf": "nameserver 1.1.1.1\n"})
	artifact := t.TempDir()

	executor := &Executor{Env: map[string]string{}}
	err := executor.Execute([]Rule{
		{Action: "copy", Select: source + "/etc/*", Prefix: source, Target: artifact},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	path := filepath.Join(artifact, "etc", "resolv.conf")
	info, err := os.Lstat(path)
	if err != nil {
		t.Fatalf("lstat: %v", err)
	}
	if !info.Mode().IsRegular() {
		t.Error("copy must produce a regular file, not a link")
	}
	if got := testutil.ReadFile(t, path); got != "nameserver 1.1.1.1\n" {
		t.Errorf("content = %q", got)
	}
}

func TestExecuteLauncherAction(t *testing.T) {
	source := t.TempDir()
	testutil.WriteTree(t, source, map[string]string{
		"bin/script": "#!/usr/bin/python\nprint()\n",
		"bin/native": "\x7fELF binary",
	})
	root := t.TempDir()
	launcher := filepath.Join(root, "launcher", "bin", "launcher")
	testutil.WriteTree(t, root, map[string]string{"launcher/bin/launcher": "ELF"})
	artifact := filepath.Join(root, "artifact")

	executor := &Executor{Env: map[string]string{}, LauncherProgram: launcher}
	err := executor.Execute([]Rule{
		{Action: "launcher", Select: source + "/bin/*", Prefix: source, Target: artifact},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	// Script: dest -> launcher (relative), dest.real -> script.
	script := filepath.Join(artifact, "bin", "script")
	if got := testutil.Readlink(t, script); got != "../../launcher/bin/launcher" {
		t.Errorf("script link = %q", got)
	}
	if got := testutil.Readlink(t, script+".real"); got != filepath.Join(source, "bin", "script") {
		t.Errorf("real link = %q", got)
	}

	// Non-script: plain absolute symlink, no .real.
	native := filepath.Join(artifact, "bin", "native")
	if got := testutil.Readlink(t, native); got != filepath.Join(source, "bin", "native") {
		t.Errorf("native link = %q", got)
	}
	if _, err := os.Lstat(native + ".real"); !os.IsNotExist(err) {
		t.Error("non-script must not get a .real link")
	}
}

func TestExecuteLauncherActionRequiresProgram(t *testing.T) {
	source := t.TempDir()
	testutil.WriteTree(t, source, map[string]string{"bin/script": "#!/bin/sh\n"})

	executor := &Executor{Env: map[string]string{}}
	err := executor.Execute([]Rule{
		{Action: "launcher", Select: source + "/bin/*", Prefix: source, Target: t.TempDir()},
	})
	if err == nil {
		t.Fatal("expected error when no launcher program is configured")
	}
}

func TestExecuteUnknownAction(t *testing.T) {
	source := t.TempDir()
	testutil.WriteTree(t, source, map[string]string{"f": "x"})

	executor := &Executor{Env: map[string]string{}}
	err := executor.Execute([]Rule{
		{Action: "hardlink", Select: source + "/f", Prefix: source, Target: t.TempDir()},
	})
	if err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestExecuteMissingVariable(t *testing.T) {
	executor := &Executor{Env: map[string]string{}}
	err := executor.Execute([]Rule{
		{Action: "symlink", Select: "$NOPE/*", Target: "/out"},
	})
	if err == nil {
		t.Fatal("expected substitution error")
	}
}
