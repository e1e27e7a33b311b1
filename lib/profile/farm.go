// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package profile

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/kiln/lib/buildspec"
)

// Resolver maps artifact IDs to store paths. Satisfied by
// store.Store.
type Resolver interface {
	Resolve(id string) (string, error)
}

// Builder assembles a symlink-farm profile: the union of a set of
// artifact trees, expressed as symlinks into the immutable store.
type Builder struct {
	// Store resolves artifact IDs.
	Store Resolver

	// Logger reports per-artifact progress. Defaults to
	// slog.Default.
	Logger *slog.Logger
}

// markerContent is what gets written to the profile.json marker.
type markerContent struct {
	// Artifacts are the concrete artifact IDs linked into the
	// profile, in import order.
	Artifacts []string `json:"artifacts"`
}

// Build links every file of every imported artifact into targetDir,
// preserving each artifact's internal layout, and writes the
// profile.json marker that run-time interpreter lookup keys on.
// Virtual capability names in imports are resolved through virtuals
// first.
//
// Existing files are never overwritten: a collision between an
// artifact file and anything already in targetDir (including a file
// from an earlier import) is an error. A pre-existing profile.json
// is left untouched.
func (b *Builder) Build(imports []buildspec.Import, targetDir string, virtuals map[string]string) error {
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var ids []string
	for _, imp := range imports {
		id, err := resolveVirtual(imp.ID, virtuals)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	for _, id := range ids {
		artifactPath, err := b.Store.Resolve(id)
		if err != nil {
			return err
		}
		logger.Debug("linking artifact into profile", "artifact", id, "target", targetDir)
		if err := linkTree(artifactPath, targetDir); err != nil {
			return fmt.Errorf("linking %s: %w", id, err)
		}
	}

	markerPath := filepath.Join(targetDir, "profile.json")
	if _, err := os.Lstat(markerPath); err == nil {
		return nil
	}
	data, err := json.MarshalIndent(&markerContent{Artifacts: ids}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding profile marker: %w", err)
	}
	if err := os.WriteFile(markerPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing profile marker: %w", err)
	}
	return nil
}

// linkTree symlinks every non-directory under sourceRoot into
// targetRoot at the same relative path, creating intermediate
// directories as needed.
func linkTree(sourceRoot, targetRoot string) error {
	return filepath.WalkDir(sourceRoot, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relative, err := filepath.Rel(sourceRoot, path)
		if err != nil {
			return err
		}
		target := filepath.Join(targetRoot, relative)

		if entry.IsDir() {
			if path == sourceRoot {
				return nil
			}
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", target, err)
			}
			return nil
		}

		if _, err := os.Lstat(target); err == nil {
			return fmt.Errorf("conflict: %s already exists", target)
		}
		if err := os.Symlink(path, target); err != nil {
			return fmt.Errorf("symlinking %s -> %s: %w", target, path, err)
		}
		return nil
	})
}
