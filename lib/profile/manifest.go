// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Manifest records the exact set of files one Push installed. It is
// the sole source of truth for teardown: Pop deletes precisely these
// paths and nothing else. Created by Push, persisted as JSON,
// consumed once by the matching Pop.
type Manifest struct {
	// InstalledFiles are the absolute paths created by the push,
	// sorted.
	InstalledFiles []string `json:"installed-files"`
}

// WriteManifest persists the manifest to path.
func WriteManifest(path string, manifest *Manifest) error {
	sorted := append([]string(nil), manifest.InstalledFiles...)
	sort.Strings(sorted)

	data, err := json.MarshalIndent(&Manifest{InstalledFiles: sorted}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &manifest, nil
}
