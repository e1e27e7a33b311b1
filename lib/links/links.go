// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package links executes the symlink-rule DSL used to mirror parts
// of the host system (or other trees) into an artifact. Rules are
// JSON objects, applied in order with first-match-wins per source
// path:
//
//	[
//	  {"action": "exclude", "select": "/bin/cp"},
//	  {"action": "symlink", "select": "/bin/*", "prefix": "/", "target": "$ARTIFACT"}
//	]
//
// "select" is a glob, expanded against the environment before
// globbing. "prefix" is stripped from each matched path and the
// remainder re-rooted under "target" to form the link destination.
package links

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/kiln/lib/buildspec"
	"github.com/bureau-foundation/kiln/lib/shebang"
)

// Rule is one entry of the links DSL.
type Rule struct {
	// Action is one of "exclude", "symlink", "absolute_symlink",
	// "relative_symlink", "copy", "launcher".
	Action string `json:"action"`

	// Select is the glob choosing source paths. Environment
	// variables are substituted before globbing.
	Select string `json:"select"`

	// Prefix is the leading path stripped from each selected source
	// before re-rooting under Target.
	Prefix string `json:"prefix,omitempty"`

	// Target is the destination root. Environment variables are
	// substituted.
	Target string `json:"target,omitempty"`
}

// Executor applies link rules.
type Executor struct {
	// Env provides variable values for Select and Target.
	Env map[string]string

	// LauncherProgram is required by "launcher" rules; the
	// constructor for that action validates its existence.
	LauncherProgram string

	// Logger reports each created link. Defaults to slog.Default.
	Logger *slog.Logger
}

// Execute applies rules in order. Each source path is claimed by the
// first rule whose glob matches it; later rules never revisit it.
// "exclude" claims paths without creating anything.
func (e *Executor) Execute(rules []Rule) error {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	claimed := make(map[string]struct{})

	for _, rule := range rules {
		selectGlob, err := buildspec.Substitute(rule.Select, e.Env)
		if err != nil {
			return fmt.Errorf("rule %q: %w", rule.Action, err)
		}
		matches, err := filepath.Glob(selectGlob)
		if err != nil {
			return fmt.Errorf("rule %q: bad glob %q: %w", rule.Action, selectGlob, err)
		}

		for _, source := range matches {
			if _, done := claimed[source]; done {
				continue
			}
			claimed[source] = struct{}{}

			if rule.Action == "exclude" {
				continue
			}

			destination, err := e.destination(rule, source)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
				return fmt.Errorf("creating parent of %s: %w", destination, err)
			}

			logger.Debug("applying link rule", "action", rule.Action, "source", source, "dest", destination)
			if err := e.applyAction(rule.Action, source, destination); err != nil {
				return err
			}
		}
	}
	return nil
}

// destination computes the link destination for source under a rule:
// strip the prefix, re-root under target.
func (e *Executor) destination(rule Rule, source string) (string, error) {
	target, err := buildspec.Substitute(rule.Target, e.Env)
	if err != nil {
		return "", fmt.Errorf("rule %q: %w", rule.Action, err)
	}
	prefix := rule.Prefix
	if prefix == "" {
		prefix = "/"
	}
	relative := strings.TrimPrefix(source, prefix)
	relative = strings.TrimPrefix(relative, "/")
	return filepath.Join(target, relative), nil
}

func (e *Executor) applyAction(action, source, destination string) error {
	switch action {
	case "symlink", "absolute_symlink":
		absolute, err := filepath.Abs(source)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", source, err)
		}
		return makeSymlink(absolute, destination)

	case "relative_symlink":
		relative, err := filepath.Rel(filepath.Dir(destination), source)
		if err != nil {
			return fmt.Errorf("relativizing %s: %w", source, err)
		}
		return makeSymlink(relative, destination)

	case "copy":
		content, err := os.ReadFile(source)
		if err != nil {
			return fmt.Errorf("reading %s: %w", source, err)
		}
		info, err := os.Stat(source)
		if err != nil {
			return fmt.Errorf("stat %s: %w", source, err)
		}
		if err := os.WriteFile(destination, content, info.Mode().Perm()); err != nil {
			return fmt.Errorf("copying to %s: %w", destination, err)
		}
		return nil

	case "launcher":
		return e.linkThroughLauncher(source, destination)

	default:
		return fmt.Errorf("unknown link action %q", action)
	}
}

// linkThroughLauncher routes an executable script through the
// launcher program: destination becomes a symlink to the launcher,
// destination+".real" a symlink to the real script, whose shebang
// the launcher reads at run time. Non-script sources degrade to a
// plain absolute symlink.
func (e *Executor) linkThroughLauncher(source, destination string) error {
	if e.LauncherProgram == "" {
		return fmt.Errorf("%w: launcher rules require a launcher program (set LAUNCHER)",
			shebang.ErrMissingLauncher)
	}

	absolute, err := filepath.Abs(source)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", source, err)
	}

	isScript, err := startsWithShebang(absolute)
	if err != nil {
		return err
	}
	if !isScript {
		return makeSymlink(absolute, destination)
	}

	if err := makeSymlink(absolute, destination+".real"); err != nil {
		return err
	}
	relLauncher, err := filepath.Rel(filepath.Dir(destination), e.LauncherProgram)
	if err != nil {
		return fmt.Errorf("relativizing launcher for %s: %w", destination, err)
	}
	return makeSymlink(relLauncher, destination)
}

func startsWithShebang(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	var magic [2]byte
	n, _ := file.Read(magic[:])
	return n == 2 && magic[0] == '#' && magic[1] == '!', nil
}

func makeSymlink(oldname, newname string) error {
	if err := os.Symlink(oldname, newname); err != nil {
		return fmt.Errorf("symlinking %s -> %s: %w", newname, oldname, err)
	}
	return nil
}
