// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package materialize executes the "files" section of a build spec:
// it writes each declared file into the target tree with environment
// substitution applied to targets (and optionally to text content).
//
// Creation is exclusive: an existing file at a substituted target
// fails the call with ErrTargetExists. That is the only collision
// guard — two specs naming the same target, or two concurrent
// invocations racing on one directory, produce this deterministic
// error instead of silent corruption. Files written by earlier specs
// in the same call are not rolled back; callers run the DSL inside a
// disposable scratch directory.
package materialize

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/kiln/lib/buildspec"
)

// ErrTargetExists is returned when a substituted target path already
// exists on disk.
var ErrTargetExists = errors.New("target already exists")

// lineSeparator joins text lines. Fixed (never the host separator)
// so materialized trees hash identically across platforms.
const lineSeparator = "\n"

// Run writes every file in specs. Relative targets are relative to
// the current working directory. The order of specs never affects
// the final tree contents, only which error surfaces first when two
// entries collide.
func Run(specs []buildspec.FileSpec, env map[string]string) error {
	for _, spec := range specs {
		if err := writeOne(spec, env); err != nil {
			return err
		}
	}
	return nil
}

func writeOne(spec buildspec.FileSpec, env map[string]string) error {
	target, err := buildspec.Substitute(spec.Target, env)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating parent directory for %s: %w", target, err)
		}
	}

	content, err := renderContent(spec.Content, env)
	if err != nil {
		return fmt.Errorf("rendering %s: %w", target, err)
	}

	mode := os.FileMode(0o644)
	if spec.Executable {
		mode = 0o755
	}

	file, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrTargetExists, target)
		}
		return fmt.Errorf("creating %s: %w", target, err)
	}

	if _, err := file.Write(content); err != nil {
		file.Close()
		return fmt.Errorf("writing %s: %w", target, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", target, err)
	}
	return nil
}

// renderContent produces the file body for a spec. The spec's
// variant rules were enforced at parse time, so only the two legal
// shapes appear here.
func renderContent(content buildspec.FileContent, env map[string]string) ([]byte, error) {
	switch c := content.(type) {
	case buildspec.TextContent:
		text := strings.Join(c.Lines, lineSeparator)
		if c.ExpandVars {
			expanded, err := buildspec.Substitute(text, env)
			if err != nil {
				return nil, err
			}
			text = expanded
		}
		return []byte(text), nil
	case buildspec.ObjectContent:
		return CanonicalJSON(c.Value)
	default:
		return nil, fmt.Errorf("unknown file content variant %T", content)
	}
}

// CanonicalJSON serializes value with sorted object keys and
// two-space indentation. Identical values always produce identical
// bytes, keeping object-valued files hash-stable.
func CanonicalJSON(value any) ([]byte, error) {
	// encoding/json sorts map keys; the fixed indent pins the
	// whitespace. Values decoded from a spec are map/slice/scalar
	// shapes, so this covers everything that can appear.
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding object content: %w", err)
	}
	return data, nil
}
