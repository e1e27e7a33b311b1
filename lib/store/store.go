// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package store resolves artifact IDs against the local build store.
//
// The store itself — hashing build specs, running builds, packing
// artifacts — is a separate concern; this package only provides the
// read-side interface the postprocessing and profile components
// need: ID to path resolution and the build directory location.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/kiln/lib/config"
)

// ErrArtifactNotFound is returned by Resolve for IDs with no artifact
// directory in the store.
var ErrArtifactNotFound = errors.New("artifact not found")

// Store is a read-only view of the build store.
type Store struct {
	root     string
	buildDir string
}

// New creates a Store from configuration.
func New(cfg config.StoreConfig) *Store {
	return &Store{root: cfg.Root, buildDir: cfg.BuildDir}
}

// BuildDir returns the directory temporary builds run under.
func (s *Store) BuildDir() string {
	return s.buildDir
}

// Resolve maps an artifact ID ("name/hash") to its artifact
// directory. Returns an error wrapping ErrArtifactNotFound when the
// directory does not exist.
func (s *Store) Resolve(id string) (string, error) {
	name, hash, ok := strings.Cut(id, "/")
	if !ok || name == "" || hash == "" || strings.Contains(hash, "/") {
		return "", fmt.Errorf("malformed artifact ID %q (want \"name/hash\")", id)
	}

	path := filepath.Join(s.root, name, hash)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrArtifactNotFound, id)
		}
		return "", fmt.Errorf("resolving %s: %w", id, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("resolving %s: %s is not a directory", id, path)
	}
	return path, nil
}
