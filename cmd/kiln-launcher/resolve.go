// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/kiln/lib/shebang"
)

// Invocation is everything resolved from one launcher call: the
// interpreter to exec and the argument vector to hand it.
type Invocation struct {
	// Interpreter is the resolved interpreter path.
	Interpreter string

	// Argv is the full argument vector, starting with Interpreter.
	Argv []string
}

// Resolve turns the invoked path (argv[0], a symlink to this
// launcher) and the remaining arguments into a concrete interpreter
// invocation.
//
// The real script sits at <invoked>.real; its first line is a
// shebang whose interpreter field is a ":"-separated candidate list
// using two placeholders:
//
//	${PROFILE_BIN_DIR}/python3:${ORIGIN}/../../cpython/abc123/bin/python3
//
// ${PROFILE_BIN_DIR} resolves by walking the symlink chain of the
// invoked path and searching each chain directory's ancestors for a
// profile marker; ${ORIGIN} is the physical directory of the real
// script. The first candidate that exists and is executable wins.
func Resolve(invoked string, args []string) (*Invocation, error) {
	realScript := invoked + ".real"
	first, err := readFirstLine(realScript)
	if err != nil {
		return nil, err
	}
	reference, shebangArg, err := shebang.ParseReference(first)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", realScript, err)
	}

	origin, err := physicalDir(realScript)
	if err != nil {
		return nil, err
	}
	profileBin := findProfileBin(invoked)

	var tried []string
	for _, candidate := range strings.Split(reference, ":") {
		expanded, ok := expandCandidate(candidate, profileBin, origin)
		if !ok {
			continue
		}
		if unix.Access(expanded, unix.X_OK) != nil {
			tried = append(tried, expanded)
			continue
		}

		argv := []string{expanded}
		if shebangArg != "" {
			argv = append(argv, shebangArg)
		}
		argv = append(argv, realScript)
		argv = append(argv, args...)
		return &Invocation{Interpreter: expanded, Argv: argv}, nil
	}
	return nil, fmt.Errorf("no usable interpreter for %s (tried %s)",
		invoked, strings.Join(tried, ", "))
}

// expandCandidate substitutes the placeholders in one candidate. A
// candidate whose placeholder has no value (no profile found) is
// skipped.
func expandCandidate(candidate, profileBin, origin string) (string, bool) {
	switch {
	case strings.HasPrefix(candidate, "${PROFILE_BIN_DIR}/"):
		if profileBin == "" {
			return "", false
		}
		return filepath.Join(profileBin, strings.TrimPrefix(candidate, "${PROFILE_BIN_DIR}/")), true
	case strings.HasPrefix(candidate, "${ORIGIN}/"):
		return filepath.Join(origin, strings.TrimPrefix(candidate, "${ORIGIN}/")), true
	default:
		return candidate, true
	}
}

// findProfileBin walks the symlink chain starting at path. For each
// link in the chain it searches the link's physical directory and
// all ancestors for the profile marker; the first hit names the
// profile, and its bin directory is returned. Returns "" when the
// chain holds no profile.
func findProfileBin(path string) string {
	current := path
	for i := 0; i < 64; i++ { // symlink chains are short; bound against cycles
		dir, err := physicalDir(current)
		if err != nil {
			return ""
		}
		for probe := dir; ; probe = filepath.Dir(probe) {
			if _, err := os.Stat(filepath.Join(probe, "profile.json")); err == nil {
				return filepath.Join(probe, "bin")
			}
			if probe == filepath.Dir(probe) {
				break
			}
		}

		info, err := os.Lstat(current)
		if err != nil || info.Mode()&os.ModeSymlink == 0 {
			return ""
		}
		target, err := os.Readlink(current)
		if err != nil {
			return ""
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(current), target)
		}
		current = target
	}
	return ""
}

// physicalDir returns the symlink-free directory containing path.
func physicalDir(path string) (string, error) {
	dir, err := filepath.EvalSymlinks(filepath.Dir(path))
	if err != nil {
		return "", fmt.Errorf("resolving directory of %s: %w", path, err)
	}
	return dir, nil
}

// readFirstLine reads the first line of path, without its newline.
func readFirstLine(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	line := string(content)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimRight(line, "\r"), nil
}
