// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for kiln packages.
//
// Most kiln tests build a small file tree, run an operation over it,
// and assert on the resulting tree. [WriteTree] and [TreePaths] cover
// the two ends of that pattern. All helpers call t.Fatalf on failure
// rather than returning errors, since test setup failures are not
// recoverable.
//
// This package has no kiln-internal dependencies.
package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// WriteTree materializes a file tree under root. Map keys are
// slash-separated relative paths; values are file contents. A key
// ending in "/" creates an empty directory. A value starting with
// "->" creates a symlink to the remainder. Parent directories are
// created as needed.
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for relative, content := range files {
		path := filepath.Join(root, filepath.FromSlash(relative))
		if strings.HasSuffix(relative, "/") {
			if err := os.MkdirAll(path, 0o755); err != nil {
				t.Fatalf("creating directory %s: %v", path, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("creating parent of %s: %v", path, err)
		}
		if target, isLink := strings.CutPrefix(content, "->"); isLink {
			if err := os.Symlink(target, path); err != nil {
				t.Fatalf("creating symlink %s: %v", path, err)
			}
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", path, err)
		}
	}
}

// TreePaths returns the sorted slash-separated relative paths of all
// non-directory entries (files and symlinks) under root.
func TreePaths(t *testing.T, root string) []string {
	t.Helper()
	var paths []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		relative, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(relative))
		return nil
	})
	if err != nil {
		t.Fatalf("walking %s: %v", root, err)
	}
	sort.Strings(paths)
	return paths
}

// ReadFile returns the contents of path as a string.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(content)
}

// Readlink returns the target of the symlink at path.
func Readlink(t *testing.T, path string) string {
	t.Helper()
	target, err := os.Readlink(path)
	if err != nil {
		t.Fatalf("reading symlink %s: %v", path, err)
	}
	return target
}

// MakeExecutable adds the execute bits to path.
func MakeExecutable(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	if err := os.Chmod(path, info.Mode().Perm()|0o111); err != nil {
		t.Fatalf("chmod %s: %v", path, err)
	}
}
