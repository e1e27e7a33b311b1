// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sourcecache

import (
	"archive/tar"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// decompressors maps source key kinds to stream decompressors.
var decompressors = map[string]func(io.Reader) (io.ReadCloser, error){
	"tar.gz": func(r io.Reader) (io.ReadCloser, error) {
		return gzip.NewReader(r)
	},
	"tar.bz2": func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(bzip2.NewReader(r)), nil
	},
	"tar.zst": func(r io.Reader) (io.ReadCloser, error) {
		decoder, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return decoder.IOReadCloser(), nil
	},
	"tar.lz4": func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(lz4.NewReader(r)), nil
	},
}

// extractTar unpacks a tar stream into targetDir, dropping the first
// strip leading path components of every entry (entries with no
// remaining components are skipped, matching tar --strip-components).
// Existing files conflict and abort the extraction.
func extractTar(r io.Reader, targetDir string, strip int) error {
	reader := tar.NewReader(r)
	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar entry: %w", err)
		}

		name, ok := stripComponents(header.Name, strip)
		if !ok {
			continue
		}
		target, err := securePath(targetDir, name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", target, err)
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("creating parent of %s: %w", target, err)
			}
			mode := os.FileMode(header.Mode).Perm()
			file, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
			if err != nil {
				return fmt.Errorf("creating %s: %w", target, err)
			}
			if _, err := io.Copy(file, reader); err != nil {
				file.Close()
				return fmt.Errorf("extracting %s: %w", target, err)
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", target, err)
			}

		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("creating parent of %s: %w", target, err)
			}
			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("symlinking %s: %w", target, err)
			}

		case tar.TypeLink:
			linked, ok := stripComponents(header.Linkname, strip)
			if !ok {
				return fmt.Errorf("hard link %s points outside stripped tree", header.Name)
			}
			source, err := securePath(targetDir, linked)
			if err != nil {
				return err
			}
			if err := os.Link(source, target); err != nil {
				return fmt.Errorf("hard-linking %s: %w", target, err)
			}

		case tar.TypeXGlobalHeader:
			// pax global headers carry no file content.

		default:
			return fmt.Errorf("unsupported tar entry type %q for %s", header.Typeflag, header.Name)
		}
	}
}

// stripComponents removes the first strip leading components from a
// tar entry name. The second return is false when nothing remains.
func stripComponents(name string, strip int) (string, bool) {
	components := strings.Split(filepath.ToSlash(name), "/")
	kept := components[:0]
	for _, component := range components {
		if component == "" || component == "." {
			continue
		}
		kept = append(kept, component)
	}
	if len(kept) <= strip {
		return "", false
	}
	return strings.Join(kept[strip:], "/"), true
}

// securePath joins name under root, rejecting traversal outside it.
func securePath(root, name string) (string, error) {
	target := filepath.Join(root, name)
	if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
		return "", fmt.Errorf("tar entry %q escapes target directory", name)
	}
	return target, nil
}
