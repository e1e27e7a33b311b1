// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fsutil provides the small filesystem helpers shared by the
// postprocessing and profile components: write protection, empty
// directory teardown, and file-set enumeration.
package fsutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// WriteProtect removes all write permission bits from path. Only
// regular files should be passed; directories are left to the caller
// (write-protected directories make rm -rf miserable).
func WriteProtect(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	mode := info.Mode()
	if !mode.IsRegular() {
		return nil
	}
	if err := os.Chmod(path, mode.Perm()&^0o222); err != nil {
		return fmt.Errorf("write-protecting %s: %w", path, err)
	}
	return nil
}

// IsExecutable reports whether any execute bit is set on path.
func IsExecutable(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.Mode().Perm()&0o111 != 0, nil
}

// RemoveEmptyUpTo removes dir if it is empty, then walks toward the
// filesystem root removing each ancestor that has become empty,
// stopping at (and never removing) root. Non-empty directories
// terminate the walk without error.
func RemoveEmptyUpTo(dir, root string) error {
	dir = filepath.Clean(dir)
	root = filepath.Clean(root)

	for dir != root {
		if !strings.HasPrefix(dir+string(filepath.Separator), root+string(filepath.Separator)) {
			return fmt.Errorf("directory %s is not below %s", dir, root)
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("reading %s: %w", dir, err)
		}
		if len(entries) > 0 {
			return nil
		}
		if err := os.Remove(dir); err != nil {
			return fmt.Errorf("removing empty directory %s: %w", dir, err)
		}
		dir = filepath.Dir(dir)
	}
	return nil
}

// ListFiles returns the set of all non-directory paths (regular
// files and symlinks) under root, keyed by absolute path. Used for
// the before/after diff that drives exact profile teardown.
func ListFiles(root string) (map[string]struct{}, error) {
	files := make(map[string]struct{})
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			files[path] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing files under %s: %w", root, err)
	}
	return files, nil
}
