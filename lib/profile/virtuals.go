// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package profile

import (
	"fmt"
	"sort"
	"strings"
)

// virtualPrefix marks an artifact ID as a virtual capability name to
// be resolved at profile-build time ("virtual:blas").
const virtualPrefix = "virtual:"

// ParseVirtualsEnv decodes the HDIST_VIRTUALS encoding: ";"-separated
// "virtual:NAME=artifact_id" pairs. An empty string yields an empty
// map.
func ParseVirtualsEnv(encoded string) (map[string]string, error) {
	virtuals := make(map[string]string)
	for _, pair := range strings.Split(encoded, ";") {
		if pair == "" {
			continue
		}
		name, id, ok := strings.Cut(pair, "=")
		if !ok || !strings.HasPrefix(name, virtualPrefix) {
			return nil, fmt.Errorf("malformed virtuals entry %q (want \"virtual:NAME=artifact_id\")", pair)
		}
		virtuals[name] = id
	}
	return virtuals, nil
}

// FormatVirtualsEnv is the inverse of ParseVirtualsEnv, with sorted
// keys for stable output.
func FormatVirtualsEnv(virtuals map[string]string) string {
	pairs := make([]string, 0, len(virtuals))
	for name, id := range virtuals {
		pairs = append(pairs, name+"="+id)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ";")
}

// resolveVirtual maps a virtual capability name to its concrete
// artifact ID; concrete IDs pass through unchanged.
func resolveVirtual(id string, virtuals map[string]string) (string, error) {
	if !strings.HasPrefix(id, virtualPrefix) {
		return id, nil
	}
	concrete, ok := virtuals[id]
	if !ok {
		return "", fmt.Errorf("virtual %q has no binding", id)
	}
	return concrete, nil
}
