// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sourcecache

import (
	"archive/tar"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/bureau-foundation/kiln/lib/testutil"
)

// tarEntry is one entry for buildTarGz.
type tarEntry struct {
	name     string
	typeflag byte
	content  string
	linkname string
	mode     int64
}

// buildTarGz assembles a gzipped tarball and installs it in the cache
// under its content hash, returning the full source key.
func buildTarGz(t *testing.T, cacheRoot string, entries []tarEntry) string {
	t.Helper()
	var buffer bytes.Buffer
	zw := gzip.NewWriter(&buffer)
	tw := tar.NewWriter(zw)
	for _, entry := range entries {
		mode := entry.mode
		if mode == 0 {
			mode = 0o644
		}
		header := &tar.Header{
			Name:     entry.name,
			Typeflag: entry.typeflag,
			Linkname: entry.linkname,
			Mode:     mode,
			Size:     int64(len(entry.content)),
		}
		if err := tw.WriteHeader(header); err != nil {
			t.Fatalf("writing tar header: %v", err)
		}
		if entry.content != "" {
			if _, err := tw.Write([]byte(entry.content)); err != nil {
				t.Fatalf("writing tar content: %v", err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing gzip: %v", err)
	}

	pack := buffer.Bytes()
	hash := HashKey(pack)
	packPath := filepath.Join(cacheRoot, "packs", hash)
	if err := os.MkdirAll(filepath.Dir(packPath), 0o755); err != nil {
		t.Fatalf("creating packs dir: %v", err)
	}
	if err := os.WriteFile(packPath, pack, 0o644); err != nil {
		t.Fatalf("writing pack: %v", err)
	}
	return "tar.gz:" + hash
}

func TestHashKey(t *testing.T) {
	hash := HashKey([]byte("hello"))
	if len(hash) != 52 {
		t.Errorf("hash length = %d, want 52", len(hash))
	}
	for _, r := range hash {
		if (r < 'a' || r > 'z') && (r < '2' || r > '7') {
			t.Fatalf("hash %q contains non-base32 rune %q", hash, r)
		}
	}
	if HashKey([]byte("hello")) != hash {
		t.Error("hash is not deterministic")
	}
	if HashKey([]byte("hello!")) == hash {
		t.Error("different content must hash differently")
	}
}

func TestUnpackTarGz(t *testing.T) {
	cacheRoot := t.TempDir()
	key := buildTarGz(t, cacheRoot, []tarEntry{
		{name: "pkg-1.0/", typeflag: tar.TypeDir},
		{name: "pkg-1.0/src/main.c", typeflag: tar.TypeReg, content: "int main;"},
		{name: "pkg-1.0/configure", typeflag: tar.TypeReg, content: "#!/bin/sh\n", mode: 0o755},
		{name: "pkg-1.0/link", typeflag: tar.TypeSymlink, linkname: "configure"},
	})

	target := filepath.Join(t.TempDir(), "work")
	if err := New(cacheRoot).Unpack(key, target, 1); err != nil {
		t.Fatalf("Unpack: %v", err)
	}

	want := []string{"configure", "link", "src/main.c"}
	if got := testutil.TreePaths(t, target); !reflect.DeepEqual(got, want) {
		t.Errorf("tree = %v, want %v", got, want)
	}
	if got := testutil.ReadFile(t, filepath.Join(target, "src", "main.c")); got != "int main;" {
		t.Errorf("main.c content = %q", got)
	}
	info, err := os.Stat(filepath.Join(target, "configure"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("configure mode = %o, want 0755", info.Mode().Perm())
	}
	if got := testutil.Readlink(t, filepath.Join(target, "link")); got != "configure" {
		t.Errorf("symlink target = %q", got)
	}
}

func TestUnpackStripSkipsShallowEntries(t *testing.T) {
	cacheRoot := t.TempDir()
	key := buildTarGz(t, cacheRoot, []tarEntry{
		{name: "README", typeflag: tar.TypeReg, content: "top-level"},
		{name: "pkg/deep", typeflag: tar.TypeReg, content: "kept"},
	})

	target := t.TempDir()
	if err := New(cacheRoot).Unpack(key, target, 1); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if got := testutil.TreePaths(t, target); !reflect.DeepEqual(got, []string{"deep"}) {
		t.Errorf("tree = %v, want [deep]", got)
	}
}

func TestUnpackCorruptPack(t *testing.T) {
	cacheRoot := t.TempDir()
	key := buildTarGz(t, cacheRoot, []tarEntry{
		{name: "f", typeflag: tar.TypeReg, content: "x"},
	})

	// Flip the pack's bytes without renaming it.
	hash := key[len("tar.gz:"):]
	packPath := filepath.Join(cacheRoot, "packs", hash)
	if err := os.WriteFile(packPath, []byte("tampered"), 0o644); err != nil {
		t.Fatalf("tampering: %v", err)
	}

	err := New(cacheRoot).Unpack(key, t.TempDir(), 0)
	if !errors.Is(err, ErrCorruptPack) {
		t.Fatalf("expected ErrCorruptPack, got %v", err)
	}
}

func TestUnpackRefusesTraversal(t *testing.T) {
	cacheRoot := t.TempDir()
	key := buildTarGz(t, cacheRoot, []tarEntry{
		{name: "../evil", typeflag: tar.TypeReg, content: "x"},
	})

	if err := New(cacheRoot).Unpack(key, t.TempDir(), 0); err == nil {
		t.Fatal("expected error for escaping tar entry")
	}
}

func TestUnpackConflict(t *testing.T) {
	cacheRoot := t.TempDir()
	key := buildTarGz(t, cacheRoot, []tarEntry{
		{name: "f", typeflag: tar.TypeReg, content: "new"},
	})

	target := t.TempDir()
	testutil.WriteTree(t, target, map[string]string{"f": "existing"})
	if err := New(cacheRoot).Unpack(key, target, 0); err == nil {
		t.Fatal("expected conflict error")
	}
	if got := testutil.ReadFile(t, filepath.Join(target, "f")); got != "existing" {
		t.Error("existing file was overwritten")
	}
}

func TestUnpackFilesTree(t *testing.T) {
	cacheRoot := t.TempDir()
	hash := HashKey([]byte("tree identity"))
	testutil.WriteTree(t, cacheRoot, map[string]string{
		"files/" + hash + "/patch.diff":  "--- a\n+++ b\n",
		"files/" + hash + "/sub/note.md": "hi",
	})

	target := t.TempDir()
	if err := New(cacheRoot).Unpack("files:"+hash, target, 0); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	want := []string{"patch.diff", "sub/note.md"}
	if got := testutil.TreePaths(t, target); !reflect.DeepEqual(got, want) {
		t.Errorf("tree = %v, want %v", got, want)
	}
}

func TestUnpackBadKeys(t *testing.T) {
	cache := New(t.TempDir())
	for _, key := range []string{"", "justhash", "tar.gz:", "tar.7z:abc"} {
		if err := cache.Unpack(key, t.TempDir(), 0); err == nil {
			t.Errorf("Unpack(%q): expected error", key)
		}
	}
}

func TestStripComponents(t *testing.T) {
	cases := []struct {
		name  string
		strip int
		want  string
		ok    bool
	}{
		{"a/b/c", 0, "a/b/c", true},
		{"a/b/c", 1, "b/c", true},
		{"./a/b", 1, "b", true},
		{"a/", 1, "", false},
		{"a", 2, "", false},
	}
	for _, tc := range cases {
		got, ok := stripComponents(tc.name, tc.strip)
		if got != tc.want || ok != tc.ok {
			t.Errorf("stripComponents(%q, %d) = (%q, %v), want (%q, %v)",
				tc.name, tc.strip, got, ok, tc.want, tc.ok)
		}
	}
}
