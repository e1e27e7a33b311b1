// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shebang

import (
	"testing"
)

func TestParseReference(t *testing.T) {
	reference, arg, err := ParseReference("#!${PROFILE_BIN_DIR}/python3:${ORIGIN}/../../py/bin/python3 -E")
	if err != nil {
		t.Fatalf("ParseReference: %v", err)
	}
	if reference != "${PROFILE_BIN_DIR}/python3:${ORIGIN}/../../py/bin/python3" {
		t.Errorf("reference = %q", reference)
	}
	if arg != "-E" {
		t.Errorf("arg = %q, want %q", arg, "-E")
	}
}

func TestParseReferenceNoArg(t *testing.T) {
	reference, arg, err := ParseReference("#!/usr/bin/python3")
	if err != nil {
		t.Fatalf("ParseReference: %v", err)
	}
	if reference != "/usr/bin/python3" || arg != "" {
		t.Errorf("got (%q, %q)", reference, arg)
	}
}

func TestParseReferenceMultipleTokensCollapse(t *testing.T) {
	// The kernel passes everything after the interpreter as a single
	// argument; parsing mirrors that.
	_, arg, err := ParseReference("#!/usr/bin/env python -u")
	if err != nil {
		t.Fatalf("ParseReference: %v", err)
	}
	if arg != "python -u" {
		t.Errorf("arg = %q, want %q", arg, "python -u")
	}
}

func TestParseReferenceRejectsNonShebang(t *testing.T) {
	if _, _, err := ParseReference("import os"); err == nil {
		t.Fatal("expected error for a non-shebang line")
	}
	if _, _, err := ParseReference("#!"); err == nil {
		t.Fatal("expected error for an empty shebang")
	}
}

func TestSplitLines(t *testing.T) {
	lines := splitLines("a\nb\nc")
	if len(lines) != 3 || lines[0] != "a\n" || lines[2] != "c" {
		t.Errorf("splitLines without trailing newline: %q", lines)
	}

	lines = splitLines("a\nb\n")
	if len(lines) != 2 || lines[1] != "b\n" {
		t.Errorf("splitLines with trailing newline: %q", lines)
	}

	if got := splitLines(""); got != nil {
		t.Errorf("splitLines(\"\") = %q, want nil", got)
	}
}
