// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shebang

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/kiln/lib/testutil"
)

// writeScript writes an executable script and returns its path.
func writeScript(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestRelocateMultilinePython(t *testing.T) {
	root := t.TempDir()
	path := writeScript(t, root, "artifact/bin/tool",
		"#!"+root+"/py/bin/python3 -E\n"+
			`"""Frobnicates widgets."""`+"\n"+
			"import sys\n")

	if err := RelocateMultiline(path); err != nil {
		t.Fatalf("RelocateMultiline: %v", err)
	}
	content := testutil.ReadFile(t, path)
	lines := strings.Split(content, "\n")

	if lines[0] != "#!/bin/sh" {
		t.Errorf("first line = %q, want #!/bin/sh", lines[0])
	}
	if lines[1] != "# -*- mode: python -*-" {
		t.Errorf("second line = %q, want emacs modeline", lines[1])
	}
	if !strings.HasPrefix(lines[2], `"true" '''\';`) {
		t.Errorf("packed snippet line = %q", lines[2])
	}
	if lines[3] != "''' # end multi-line shebang" {
		t.Errorf("closing line = %q", lines[3])
	}
	if !strings.Contains(content, `__doc__ = """Frobnicates widgets."""`) {
		t.Error("module docstring was not reassigned to __doc__")
	}
	if !strings.Contains(content, "import sys\n") {
		t.Error("script body lost")
	}
	if !strings.HasSuffix(content, "# vi: filetype=python\n") {
		t.Errorf("missing vi modeline at end: %q", content[len(content)-40:])
	}

	// The packed snippet embeds the shebang argument and the relative
	// fallback path.
	if !strings.Contains(lines[2], `arg="-E"`) {
		t.Errorf("snippet missing argument assignment: %q", lines[2])
	}
	if !strings.Contains(lines[2], `r="../../py/bin"`) {
		t.Errorf("snippet missing relative interpreter dir: %q", lines[2])
	}
	if !strings.Contains(lines[2], `i="python3"`) {
		t.Errorf("snippet missing interpreter name: %q", lines[2])
	}
}

func TestRelocateMultilineIdempotent(t *testing.T) {
	root := t.TempDir()
	path := writeScript(t, root, "artifact/bin/tool",
		"#!"+root+"/py/bin/python\nprint('hi')\n")

	if err := RelocateMultiline(path); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	first := testutil.ReadFile(t, path)

	// The rewritten script starts with #!/bin/sh, which the system
	// interpreter rule passes through untouched.
	if err := RelocateMultiline(path); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if second := testutil.ReadFile(t, path); second != first {
		t.Error("second pass modified an already-relocated script")
	}
}

func TestRelocateMultilineSystemInterpreters(t *testing.T) {
	root := t.TempDir()
	for _, shebang := range []string{
		"#!/bin/sh",
		"#!/usr/bin/env python",
		"#! /usr/bin/perl",
	} {
		path := writeScript(t, root, "bin/"+strings.NewReplacer("/", "_", " ", "_").Replace(shebang), shebang+"\nbody\n")
		original := testutil.ReadFile(t, path)
		if err := RelocateMultiline(path); err != nil {
			t.Errorf("%q: unexpected error: %v", shebang, err)
			continue
		}
		if got := testutil.ReadFile(t, path); got != original {
			t.Errorf("%q: system-interpreter script was modified", shebang)
		}
	}
}

func TestRelocateMultilineUnsupportedInterpreter(t *testing.T) {
	root := t.TempDir()
	path := writeScript(t, root, "bin/tool", "#!"+root+"/perl/bin/perl\nbody\n")
	original := testutil.ReadFile(t, path)

	err := RelocateMultiline(path)
	if !errors.Is(err, ErrUnsupportedInterpreter) {
		t.Fatalf("expected ErrUnsupportedInterpreter, got %v", err)
	}
	if got := testutil.ReadFile(t, path); got != original {
		t.Error("unsupported script must be left unmodified")
	}
}

func TestRelocateMultilineSkipsNonQualifying(t *testing.T) {
	root := t.TempDir()

	// Not executable.
	plain := filepath.Join(root, "data.py")
	if err := os.WriteFile(plain, []byte("#!"+root+"/py/bin/python\n"), 0o644); err != nil {
		t.Fatalf("writing: %v", err)
	}
	if err := RelocateMultiline(plain); err != nil {
		t.Errorf("non-executable file: %v", err)
	}

	// Executable but no shebang.
	binary := writeScript(t, root, "bin/elf", "\x7fELF...")
	if err := RelocateMultiline(binary); err != nil {
		t.Errorf("binary file: %v", err)
	}
	if got := testutil.ReadFile(t, binary); got != "\x7fELF..." {
		t.Error("binary file was modified")
	}

	// Symlink.
	link := filepath.Join(root, "bin", "link")
	if err := os.Symlink("elf", link); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if err := RelocateMultiline(link); err != nil {
		t.Errorf("symlink: %v", err)
	}
}

func TestPatchPythonDocstringPrefixes(t *testing.T) {
	root := t.TempDir()
	cases := []struct {
		name      string
		docstring string
		want      string
	}{
		{"plain", `"""doc"""`, `__doc__ = """doc"""`},
		{"raw", `r'''doc'''`, `__doc__ = r'''doc'''`},
		{"unicode bytes", `uB"""doc"""`, `__doc__ = uB"""doc"""`},
	}
	for _, tc := range cases {
		path := writeScript(t, root, "bin/"+tc.name,
			"#!"+root+"/py/bin/python\n"+
				"# leading comment\n"+
				"\n"+
				tc.docstring+"\n")
		if err := RelocateMultiline(path); err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if content := testutil.ReadFile(t, path); !strings.Contains(content, tc.want+"\n") {
			t.Errorf("%s: docstring not reassigned, content:\n%s", tc.name, content)
		}
	}
}

func TestPatchPythonStopsDocstringScanAtCode(t *testing.T) {
	root := t.TempDir()
	path := writeScript(t, root, "bin/tool",
		"#!"+root+"/py/bin/python\n"+
			"import textwrap\n"+
			`"""not a docstring, just an expression"""`+"\n")
	if err := RelocateMultiline(path); err != nil {
		t.Fatalf("RelocateMultiline: %v", err)
	}
	if content := testutil.ReadFile(t, path); strings.Contains(content, "__doc__") {
		t.Error("string after first code line must not be treated as docstring")
	}
}

func TestPackScript(t *testing.T) {
	packed := packScript(`a=1 # comment
# full comment line

while true; do
    if [ -e x ]; then
        b=2
    fi
done
`)
	want := `a=1;while true; do if [ -e x ]; then b=2;fi;done;`
	if packed != want {
		t.Errorf("packScript:\n got %q\nwant %q", packed, want)
	}
}

func TestAddModelinesRespectsExisting(t *testing.T) {
	lines := []string{"#!/bin/sh\n", "# -*- mode: python -*-\n", "body\n", "# vi: filetype=python\n"}
	result := addModelines(lines, "python")
	emacs, vi := 0, 0
	for _, line := range result {
		if strings.Contains(line, "-*-") {
			emacs++
		}
		if strings.Contains(line, " vi:") {
			vi++
		}
	}
	if emacs != 1 || vi != 1 {
		t.Errorf("modelines duplicated: emacs=%d vi=%d in %q", emacs, vi, result)
	}
}
