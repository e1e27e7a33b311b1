// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shebang

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/kiln/lib/fsutil"
)

// LauncherRelocator rewrites scripts to run through an external
// launcher program. For each qualifying script the original file
// moves to "<path>.real" with its shebang rewritten to a combined
// interpreter reference, and the script path itself becomes a
// relative symlink to the launcher:
//
//	bin/thescript       -> ../../launcher/bin/launcher (symlink)
//	bin/thescript.real  #!${PROFILE_BIN_DIR}/python:${ORIGIN}/../../py/bin/python
//
// The launcher resolves the reference at run time: the profile
// candidate wins when the script is reached through a profile, the
// ${ORIGIN}-relative fallback keeps a bare artifact working after
// relocation.
type LauncherRelocator struct {
	launcherProgram string
}

// NewLauncherRelocator validates that the launcher program exists and
// returns a relocator pointing scripts at it. Returns an error
// wrapping ErrMissingLauncher otherwise — this is fatal and reported
// before any file is mutated.
func NewLauncherRelocator(launcherProgram string) (*LauncherRelocator, error) {
	if _, err := os.Stat(launcherProgram); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingLauncher, launcherProgram)
	}
	return &LauncherRelocator{launcherProgram: launcherProgram}, nil
}

// Relocate transforms path if it qualifies: a regular file whose
// path contains "bin", executable, starting with "#!". Anything else
// is silently left alone, which also makes the transformation
// idempotent — a relocated script is a symlink and no longer
// qualifies.
//
// The "bin" substring test is deliberately coarse (it matches
// "sbin", "binutils", …). It is the documented heuristic for "is an
// entry point" and scripts outside bin-like directories are not
// invoked through profiles, so a stricter rule buys nothing.
func (r *LauncherRelocator) Relocate(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() || !strings.Contains(path, "bin") {
		return nil
	}
	if info.Mode().Perm()&0o111 == 0 {
		return nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if !strings.HasPrefix(string(content), "#!") {
		return nil
	}

	lines := splitLines(string(content))
	parsed, err := parseLine(strings.TrimRight(lines[0], "\r\n"))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	dir := filepath.Dir(path)
	relInterpreter, err := filepath.Rel(dir, parsed.Interpreter)
	if err != nil {
		return fmt.Errorf("relative interpreter path for %s: %w", path, err)
	}

	// Combined reference: profile candidate first, artifact-relative
	// fallback second. The launcher tries them in order.
	combined := fmt.Sprintf("${PROFILE_BIN_DIR}/%s:${ORIGIN}/%s",
		filepath.Base(parsed.Interpreter), relInterpreter)
	first := "#!" + combined
	if parsed.Arg != "" {
		first += " " + parsed.Arg
	}
	lines[0] = first + "\n"

	realPath := path + ".real"
	if err := os.WriteFile(realPath, []byte(strings.Join(lines, "")), info.Mode().Perm()); err != nil {
		return fmt.Errorf("writing %s: %w", realPath, err)
	}
	if err := fsutil.WriteProtect(realPath); err != nil {
		return err
	}

	relLauncher, err := filepath.Rel(dir, r.launcherProgram)
	if err != nil {
		return fmt.Errorf("relative launcher path for %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	if err := os.Symlink(relLauncher, path); err != nil {
		return fmt.Errorf("symlinking %s -> %s: %w", path, relLauncher, err)
	}
	return nil
}
