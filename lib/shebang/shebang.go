// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package shebang rewrites the interpreter references of installed
// scripts so an artifact stays runnable after it is moved, or
// symlinked into a profile whose interpreter should win over the one
// the script was built against.
//
// Two mutually exclusive strategies exist. The launcher strategy
// turns the script into a symlink to an external launcher program
// and parks the real script next to it with a combined
// "${PROFILE_BIN_DIR}/…:${ORIGIN}/…" reference for the launcher to
// resolve at run time. The multiline strategy rewrites the script in
// place into a /bin/sh + interpreter polyglot whose shell preamble
// locates the right interpreter by following the invocation's
// symlink chain and searching for a profile marker file.
package shebang

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedInterpreter is returned by the multiline strategy
// when no registered language matches the script's interpreter. The
// postprocess walker treats this as non-fatal: the file is left
// unmodified and the walk continues.
var ErrUnsupportedInterpreter = errors.New("unsupported interpreter")

// ErrMissingLauncher is returned when the launcher program a
// relocation would point scripts at does not exist. Checked up front,
// before any file is touched.
var ErrMissingLauncher = errors.New("launcher program not found")

// profileMarker is the file whose presence identifies a directory as
// a profile root. The generated shell preambles and the runtime
// launcher both search for it.
const profileMarker = "profile.json"

// Line is a parsed shebang line.
type Line struct {
	// Interpreter is the interpreter path, the first token after "#!".
	Interpreter string

	// Arg is the single argument the kernel would pass to the
	// interpreter: everything after the first token, joined. Empty
	// if the shebang had no argument.
	Arg string
}

// parseLine parses a first line that is known to start with "#!".
func parseLine(first string) (Line, error) {
	if !strings.HasPrefix(first, "#!") {
		return Line{}, fmt.Errorf("not a shebang line: %q", first)
	}
	tokens := strings.Fields(first[2:])
	if len(tokens) == 0 {
		return Line{}, fmt.Errorf("empty shebang line")
	}
	// The kernel treats everything after the interpreter as one
	// argument, so the remaining tokens collapse into one.
	return Line{
		Interpreter: tokens[0],
		Arg:         strings.Join(tokens[1:], " "),
	}, nil
}

// ParseReference parses the shebang line of a relocated ".real"
// script, returning the combined interpreter reference (the
// ":"-separated candidate list written by the launcher strategy) and
// the optional shebang argument. Used by the runtime launcher.
func ParseReference(first string) (reference, arg string, err error) {
	parsed, err := parseLine(first)
	if err != nil {
		return "", "", err
	}
	return parsed.Interpreter, parsed.Arg, nil
}

// splitLines splits content into lines, each retaining its trailing
// newline (the last line may lack one). Rewrites operate on whole
// lines so that untouched script bytes survive exactly.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
