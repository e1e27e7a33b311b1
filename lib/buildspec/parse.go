// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package buildspec

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/jsonc"
)

// Parse strips JSONC comments and trailing commas from data, then
// unmarshals the result into a Spec.
func Parse(data []byte) (*Spec, error) {
	stripped := jsonc.ToJSON(data)

	var spec Spec
	if err := json.Unmarshal(stripped, &spec); err != nil {
		return nil, fmt.Errorf("parsing build spec: %w", err)
	}
	return &spec, nil
}

// ReadFile reads and parses a JSONC build spec from disk.
func ReadFile(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	spec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

// DecodeKey navigates to a sub-document of a JSONC file and decodes
// it into out. The key is a "/"-separated path of object keys; "/" or
// "" selects the whole document. This is how commands read their
// section out of a larger spec ("--key=parameters/links").
func DecodeKey(data []byte, key string, out any) error {
	stripped := jsonc.ToJSON(data)

	var document any
	if err := json.Unmarshal(stripped, &document); err != nil {
		return fmt.Errorf("parsing document: %w", err)
	}

	current := document
	for _, segment := range strings.Split(key, "/") {
		if segment == "" {
			continue
		}
		object, ok := current.(map[string]any)
		if !ok {
			return fmt.Errorf("key %q: segment %q does not address an object", key, segment)
		}
		child, exists := object[segment]
		if !exists {
			return fmt.Errorf("key %q: segment %q not found", key, segment)
		}
		current = child
	}

	// Round-trip through JSON so out gets its own typed decode
	// (including FileSpec validation hooks).
	raw, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("re-encoding sub-document at %q: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding sub-document at %q: %w", key, err)
	}
	return nil
}

// DecodeFileKey reads path and decodes the sub-document at key into
// out. See DecodeKey.
func DecodeFileKey(path, key string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := DecodeKey(data, key, out); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
