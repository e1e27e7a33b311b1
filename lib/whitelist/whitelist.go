// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package whitelist emits the filesystem-access glob patterns that
// scope a sandboxed build: the build directory, the conventional
// system paths a build may read, and the tree of every imported
// artifact.
package whitelist

import (
	"fmt"
	"path/filepath"
)

// Resolver maps an artifact ID to its store path.
type Resolver interface {
	Resolve(id string) (string, error)
}

// Generate returns the glob patterns for a build: buildDir/**,
// /tmp/**, /etc/**, then one <artifact>/** per ID in input order.
//
// Resolution failures abort the whole generation — callers hold the
// returned slice and emit it only on success, so a sandbox never
// runs with a partial whitelist.
func Generate(buildDir string, artifactIDs []string, resolver Resolver) ([]string, error) {
	patterns := []string{
		filepath.Join(buildDir, "**"),
		"/tmp/**",
		"/etc/**",
	}
	for _, id := range artifactIDs {
		path, err := resolver.Resolve(id)
		if err != nil {
			return nil, fmt.Errorf("whitelisting %s: %w", id, err)
		}
		patterns = append(patterns, filepath.Join(path, "**"))
	}
	return patterns, nil
}
