// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package profile builds and tears down ephemeral build profiles: a
// symlink-farm aggregation of dependency artifacts laid over a
// target directory for the duration of a build.
//
// Push and Pop bracket a build. Push records the exact set of files
// it creates (by diffing before/after file enumerations) into a
// manifest; Pop replays that manifest deleting each file and any
// directories left empty. The manifest is the only bookkeeping —
// there is no other record of what a push installed, and a second
// Push on the same directory before its Pop produces an inconsistent
// manifest (callers serialize externally; this package takes no
// locks).
package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bureau-foundation/kiln/lib/buildspec"
	"github.com/bureau-foundation/kiln/lib/fsutil"
)

// ErrMissingFile is returned by Pop when a file listed in the
// manifest is absent. The manifest is authoritative: a missing entry
// means something else deleted profile files mid-build, and teardown
// refuses to paper over it.
var ErrMissingFile = errors.New("file listed in manifest is missing")

// Push builds the profile in targetDir from the spec's import list
// and writes the install manifest to manifestPath. Pre-existing
// files under targetDir are never deleted or modified; the manifest
// records exactly the files the farm build added.
func Push(builder *Builder, targetDir string, imports []buildspec.Import, virtuals map[string]string, manifestPath string) (*Manifest, error) {
	before, err := fsutil.ListFiles(targetDir)
	if err != nil {
		return nil, fmt.Errorf("enumerating %s before profile build: %w", targetDir, err)
	}

	if err := builder.Build(imports, targetDir, virtuals); err != nil {
		return nil, err
	}

	after, err := fsutil.ListFiles(targetDir)
	if err != nil {
		return nil, fmt.Errorf("enumerating %s after profile build: %w", targetDir, err)
	}

	var installed []string
	for path := range after {
		if _, existed := before[path]; !existed {
			installed = append(installed, path)
		}
	}
	sort.Strings(installed)

	manifest := &Manifest{InstalledFiles: installed}
	if err := WriteManifest(manifestPath, manifest); err != nil {
		return nil, err
	}
	return manifest, nil
}

// Pop removes every file the manifest lists, then removes each
// file's parent directory and further ancestors while they are empty,
// stopping at rootBoundary. Directories that still hold anything —
// in particular everything that pre-existed the push and was not
// emptied by it — are untouched.
func Pop(manifestPath, rootBoundary string) error {
	manifest, err := ReadManifest(manifestPath)
	if err != nil {
		return err
	}

	for _, path := range manifest.InstalledFiles {
		if err := os.Remove(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: %s", ErrMissingFile, path)
			}
			return fmt.Errorf("removing %s: %w", path, err)
		}
		if err := fsutil.RemoveEmptyUpTo(filepath.Dir(path), rootBoundary); err != nil {
			return err
		}
	}
	return nil
}
