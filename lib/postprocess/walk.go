// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package postprocess walks a finished artifact tree and applies a
// configured handler chain to every entry: shebang relocation and
// write protection, in that order. Relocation must run first — a
// write-protected script cannot be renamed-and-rewritten.
package postprocess

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/kiln/lib/fsutil"
	"github.com/bureau-foundation/kiln/lib/shebang"
)

// Handler processes one filesystem entry. Handlers receive files and
// directories alike and are expected to skip what does not apply to
// them.
type Handler func(path string) error

// Walker applies a handler chain over a path tree.
type Walker struct {
	// Handlers run in order for every entry.
	Handlers []Handler

	// Logger reports non-fatal conditions (unsupported
	// interpreters). Defaults to slog.Default.
	Logger *slog.Logger
}

// Walk applies the handler chain to root. A regular file gets the
// handlers directly. A directory is traversed post-order: all
// descendants of a directory are handled before the directory entry
// itself, so a future directory handler could safely finalize a
// directory whose contents are done. (No current handler acts on
// directories — keeping them writable preserves rm -rf on the tree.)
//
// An ErrUnsupportedInterpreter from a handler is logged and the walk
// continues; the offending file is simply left as it was. Every
// other error aborts the walk.
func (w *Walker) Walk(root string) error {
	info, err := os.Lstat(root)
	if err != nil {
		return fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return w.apply(root)
	}
	return w.walkDir(root)
}

func (w *Walker) walkDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}

	// Descend into subdirectories first.
	for _, entry := range entries {
		if entry.IsDir() {
			if err := w.walkDir(filepath.Join(dir, entry.Name())); err != nil {
				return err
			}
		}
	}
	// Then the directory's own files, then the directory itself.
	for _, entry := range entries {
		if !entry.IsDir() {
			if err := w.apply(filepath.Join(dir, entry.Name())); err != nil {
				return err
			}
		}
	}
	return w.apply(dir)
}

func (w *Walker) apply(path string) error {
	for _, handler := range w.Handlers {
		if err := handler(path); err != nil {
			if errors.Is(err, shebang.ErrUnsupportedInterpreter) {
				w.logger().Warn("leaving script unmodified", "path", path, "error", err)
				continue
			}
			return err
		}
	}
	return nil
}

func (w *Walker) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

// WriteProtect is the handler that strips write permission bits from
// regular files. Directories and symlinks pass through untouched.
func WriteProtect(path string) error {
	return fsutil.WriteProtect(path)
}
