// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package buildspec

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrMissingVariable is returned by Substitute when a referenced
// variable has no value in the environment map.
var ErrMissingVariable = errors.New("missing variable")

// substPattern matches $NAME and ${NAME} references. Variable names
// must start with a letter or underscore and contain only letters,
// digits, and underscores. "$$" is an escape for a literal dollar.
var substPattern = regexp.MustCompile(`\$(\$|[A-Za-z_][A-Za-z0-9_]*|\{[A-Za-z_][A-Za-z0-9_]*\})`)

// Substitute replaces $NAME and ${NAME} references in input with
// values from env. Every referenced variable must be present: build
// specs are hashed, so a silently-empty expansion would produce a
// tree that differs from what the spec author reviewed. Returns an
// error wrapping ErrMissingVariable naming the first absent variable.
func Substitute(input string, env map[string]string) (string, error) {
	var missing string

	result := substPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := match[1:]
		if name == "$" {
			return "$"
		}
		if name[0] == '{' {
			name = name[1 : len(name)-1]
		}
		value, exists := env[name]
		if !exists {
			if missing == "" {
				missing = name
			}
			return match
		}
		return value
	})

	if missing != "" {
		return "", fmt.Errorf("substituting %q: %w: %s", input, ErrMissingVariable, missing)
	}
	return result, nil
}
