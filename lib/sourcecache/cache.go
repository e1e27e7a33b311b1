// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sourcecache unpacks sources from the local
// content-addressed source cache into build directories.
//
// Cache keys name both the unpack method and the content:
// "tar.gz:<hash>", "tar.bz2:<hash>", "tar.zst:<hash>",
// "tar.lz4:<hash>", or "files:<hash>". Archive packs live under
// <root>/packs/<hash>; "files:" trees under <root>/files/<hash>/.
// The hash is the lowercase-base32 BLAKE3 digest of the pack bytes,
// verified before anything is extracted.
//
// Unpacking stops at the first conflicting file. Already-extracted
// content is not removed, so callers unpack into disposable scratch
// directories.
package sourcecache

import (
	"bytes"
	"encoding/base32"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"
)

// ErrCorruptPack is returned when a pack's content does not hash to
// its key.
var ErrCorruptPack = errors.New("pack content does not match key hash")

// keyEncoding is lowercase base32 without padding, the encoding used
// for cache key hashes.
var keyEncoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// Cache is a handle on the source cache directory.
type Cache struct {
	root string
}

// New returns a Cache rooted at root.
func New(root string) *Cache {
	return &Cache{root: root}
}

// HashKey returns the cache hash for content: the lowercase-base32
// BLAKE3 digest.
func HashKey(content []byte) string {
	digest := blake3.Sum256(content)
	return keyEncoding.EncodeToString(digest[:])
}

// Unpack extracts the source identified by key into targetDir,
// stripping the given number of leading path components from archive
// entries (tar --strip-components). targetDir is created if absent.
func (c *Cache) Unpack(key, targetDir string, strip int) error {
	kind, hash, ok := strings.Cut(key, ":")
	if !ok || hash == "" {
		return fmt.Errorf("malformed source key %q (want \"<kind>:<hash>\")", key)
	}

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", targetDir, err)
	}

	if kind == "files" {
		return c.unpackFiles(hash, targetDir)
	}

	decompress, known := decompressors[kind]
	if !known {
		return fmt.Errorf("unsupported source key kind %q in %q", kind, key)
	}

	packPath := filepath.Join(c.root, "packs", hash)
	pack, err := os.ReadFile(packPath)
	if err != nil {
		return fmt.Errorf("reading pack for %s: %w", key, err)
	}
	if HashKey(pack) != hash {
		return fmt.Errorf("%w: %s", ErrCorruptPack, key)
	}

	reader, err := decompress(bytes.NewReader(pack))
	if err != nil {
		return fmt.Errorf("opening pack for %s: %w", key, err)
	}
	defer reader.Close()

	if err := extractTar(reader, targetDir, strip); err != nil {
		return fmt.Errorf("unpacking %s: %w", key, err)
	}
	return nil
}

// unpackFiles copies a cached file tree into targetDir, failing on
// the first conflict.
func (c *Cache) unpackFiles(hash, targetDir string) error {
	sourceRoot := filepath.Join(c.root, "files", hash)
	if _, err := os.Stat(sourceRoot); err != nil {
		return fmt.Errorf("file tree %s: %w", hash, err)
	}

	return filepath.WalkDir(sourceRoot, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relative, err := filepath.Rel(sourceRoot, path)
		if err != nil {
			return err
		}
		target := filepath.Join(targetDir, relative)

		if entry.IsDir() {
			if path == sourceRoot {
				return nil
			}
			return os.MkdirAll(target, 0o755)
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, info.Mode().Perm())
	})
}

// copyFile copies one regular file with exclusive creation, so a
// conflicting existing file aborts the unpack.
func copyFile(source, target string, mode os.FileMode) error {
	in, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("opening %s: %w", source, err)
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying to %s: %w", target, err)
	}
	return out.Close()
}
