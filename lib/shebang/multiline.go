// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shebang

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// systemInterpreterPattern matches shebangs that already point into a
// system directory, including "/usr/bin/env …" forms. These are
// portable as-is and are never rewritten. The inserted "#!/bin/sh"
// preamble matches too, which is what makes the multiline rewrite a
// no-op on its own output.
var systemInterpreterPattern = regexp.MustCompile(`^#!\s*(/bin|/usr/bin)/`)

// language is one entry in the interpreter registry: a predicate on
// the shebang line and the patch that rewrites the script into a
// sh/interpreter polyglot. The registry is ordered; the first match
// wins.
type language struct {
	name    string
	matches func(shebang string) bool
	patch   func(path string, lines []string) ([]string, error)
}

// languages is the interpreter registry. Python is the only
// supported language today: its module docstring convention and
// triple-quoted strings are what make the polyglot preamble
// possible. Adding a language means adding an entry here.
var languages = []language{
	{
		name:    "python",
		matches: func(shebang string) bool { return strings.Contains(shebang, "python") },
		patch:   patchPython,
	},
}

// RelocateMultiline rewrites the script at path in place so that it
// locates its interpreter at run time instead of hardcoding an
// absolute path. Applies only to regular executable files starting
// with "#!"; everything else is left alone.
//
// Shebangs under /bin or /usr/bin pass through untouched. Other
// interpreters must match a registry entry; a script that matches
// nothing is left unmodified and the call returns an error wrapping
// ErrUnsupportedInterpreter.
func RelocateMultiline(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
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
	shebang := strings.TrimRight(lines[0], "\r\n")
	if systemInterpreterPattern.MatchString(shebang) {
		return nil
	}

	var patched []string
	found := false
	for _, lang := range languages {
		if lang.matches(shebang) {
			patched, err = lang.patch(path, lines)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %q in %s", ErrUnsupportedInterpreter, shebang, path)
	}

	if slices.Equal(patched, lines) {
		return nil
	}
	if err := os.WriteFile(path, []byte(strings.Join(patched, "")), info.Mode().Perm()); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// pyEmptyPattern matches blank and comment-only lines, which may
// precede the module docstring.
var pyEmptyPattern = regexp.MustCompile(`^\s*(#.*)?$`)

// pyDocstringPattern matches the opening line of a triple-quoted
// module docstring, with any combination of string prefix letters.
var pyDocstringPattern = regexp.MustCompile(`^\s*[uUbBrR]*('''|""")`)

// patchPython replaces a Python script's shebang with a multiline
// polyglot preamble:
//
//	#!/bin/sh
//	"true" '''\';<minified launcher snippet>
//	''' # end multi-line shebang
//	<original script>
//
// /bin/sh executes the middle line as a command; Python parses the
// same bytes as a string expression and ignores them. Because that
// string would otherwise claim the module docstring slot, a real
// docstring at the top of the script gets an explicit "__doc__ = "
// assignment.
func patchPython(path string, lines []string) ([]string, error) {
	shebang := strings.TrimRight(lines[0], "\r\n")
	parsed, err := parseLine(shebang)
	if err != nil {
		return nil, err
	}

	body := slices.Clone(lines[1:])
	for i, line := range body {
		if pyDocstringPattern.MatchString(line) {
			body[i] = "__doc__ = " + line
		}
		if !pyEmptyPattern.MatchString(line) {
			break
		}
	}

	descriptor, err := describeLauncher(path, parsed)
	if err != nil {
		return nil, err
	}
	preamble := "#!/bin/sh\n" +
		`"true" '''\';` + packScript(descriptor.snippet()) + "\n" +
		"''' # end multi-line shebang\n"

	return addModelines(append(splitLines(preamble), body...), "python"), nil
}

// launcherDescriptor carries the four values that fully determine the
// generated launcher shell snippet.
type launcherDescriptor struct {
	// relPath is the relative path from the script's directory to
	// the directory holding the original interpreter — the fallback
	// when no profile marker is found.
	relPath string

	// interpreter is the interpreter's base name, looked up in a
	// profile's bin directory.
	interpreter string

	// argAssign is the optional `arg="…"` assignment embedding the
	// shebang argument, or a bare space when there is none.
	argAssign string

	// argExpr is the argument expansion inserted into exec calls,
	// ` "$arg" ` or a bare space.
	argExpr string
}

func describeLauncher(path string, parsed Line) (launcherDescriptor, error) {
	relPath, err := filepath.Rel(filepath.Dir(path), filepath.Dir(parsed.Interpreter))
	if err != nil {
		return launcherDescriptor{}, fmt.Errorf("relative interpreter directory: %w", err)
	}
	descriptor := launcherDescriptor{
		relPath:     relPath,
		interpreter: filepath.Base(parsed.Interpreter),
		argAssign:   " ",
		argExpr:     " ",
	}
	if parsed.Arg != "" {
		descriptor.argAssign = fmt.Sprintf("arg=%q", parsed.Arg)
		descriptor.argExpr = ` "$arg" `
	}
	return descriptor, nil
}

// snippet renders the launcher shell script. The invocation may go
// through a chain of symlinks p_n -> … -> p_1 -> script; $0 is p_n
// and the first non-link is the script itself. For every link in the
// chain the snippet walks the physical path upward toward / looking
// for the profile marker file; on a hit it execs the interpreter
// from that profile's bin directory. With no marker anywhere it
// execs the interpreter at the precomputed path relative to the
// script's own directory.
//
// Comments and indentation here are for the reader; packScript
// strips them before embedding.
func (d launcherDescriptor) snippet() string {
	return `r="` + d.relPath + `" # relative path to interpreter dir if profile lookup fails
i="` + d.interpreter + `" # interpreter base name
` + d.argAssign + `
o=` + "`pwd`" + `

# Follow the chain of links by cd-ing into each link's directory
# and calling readlink. $p is the current link. After the loop we
# are in the real script's directory.
p="$0"
while true; do
    # Test whether $p is a link before changing directory.
    test -L "$p"
    il=$?
    cd ` + "`dirname \"$p\"`" + `
    pdir=` + "`pwd -P`" + `
    d="$pdir"

    # Walk upward toward / looking for the profile marker.
    while [ "$d" != / ]; do
      [ -e ` + profileMarker + ` ]&&cd "$o"&&exec "$d/bin/$i" "$0"` + d.argExpr + `"$@"
      cd ..
      d=` + "`pwd -P`" + `
    done

    cd "$pdir"
    if [ "$il" -ne 0 ];then break;fi
    p=` + "`readlink $p`" + `
done

# No profile found anywhere in the chain; exec relative.
cd "$r"
p=` + "`pwd -P`" + `
cd "$o"
exec "$p/$i" "$0"` + d.argExpr + `"$@"
exit 127
`
}

// packScript minifies a shell script onto one line: comments and
// blank lines dropped, remaining lines joined with ";". Lines ending
// in "do" or "then" keep a trailing space instead — a semicolon
// directly after those keywords is a syntax error.
func packScript(script string) string {
	var packed strings.Builder
	for _, line := range strings.Split(script, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasSuffix(line, " do") || strings.HasSuffix(line, " then") {
			packed.WriteString(line + " ")
		} else {
			packed.WriteString(line + ";")
		}
	}
	return packed.String()
}

// addModelines inserts editor mode hints for emacs and vi, since the
// /bin/sh shebang defeats filetype auto-detection. Each hint is only
// added when no line already carries one.
func addModelines(lines []string, languageName string) []string {
	result := slices.Clone(lines[:1])

	hasEmacs := false
	hasVi := false
	for _, line := range lines {
		if strings.Contains(line, "-*-") {
			hasEmacs = true
		}
		if strings.Contains(line, " vi:") {
			hasVi = true
		}
	}

	if !hasEmacs {
		result = append(result, fmt.Sprintf("# -*- mode: %s -*-\n", languageName))
	}
	result = append(result, lines[1:]...)
	if !hasVi {
		result = append(result, fmt.Sprintf("# vi: filetype=%s\n", languageName))
	}
	return result
}
