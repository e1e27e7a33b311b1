// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package buildspec parses kiln build specifications. A build spec is
// a JSONC document (JSON extended with comments and trailing commas)
// conventionally named build.json, with three sections this tool
// consumes: "sources" (archives to unpack into the build directory),
// "files" (small support files materialized inline), and
// "build.import" (artifacts composed into the ephemeral build
// profile).
//
// Validation happens at parse time: a FileSpec that reaches a
// consumer is structurally sound, so consumers never re-check the
// text/object exclusivity rule.
package buildspec

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidSpec is returned when a files entry does not contain
// exactly one of "text" and "object".
var ErrInvalidSpec = errors.New("invalid file spec")

// ErrUnsupported is returned for disallowed option combinations,
// currently "object" together with "expandvars".
var ErrUnsupported = errors.New("unsupported option combination")

// Spec is a parsed build specification document.
type Spec struct {
	// Sources lists archives and file trees to unpack from the
	// source cache into the build directory.
	Sources []Source `json:"sources,omitempty"`

	// Files lists support files to materialize before the build
	// script runs.
	Files []FileSpec `json:"files,omitempty"`

	// Build holds build-stage settings; only the import list is
	// consumed by this tool.
	Build BuildSection `json:"build,omitempty"`
}

// BuildSection is the "build" object of a spec.
type BuildSection struct {
	// Import lists the dependency artifacts that make up the build
	// profile.
	Import []Import `json:"import,omitempty"`
}

// Import is one dependency artifact reference.
type Import struct {
	// Ref is the name the build script knows the dependency by
	// (e.g. "BASH"). Informational for this tool.
	Ref string `json:"ref,omitempty"`

	// ID is the artifact ID, either concrete ("zlib/4niostz3…") or a
	// virtual capability name ("virtual:blas") resolved at
	// profile-build time.
	ID string `json:"id"`
}

// Source is one entry of the "sources" section.
type Source struct {
	// Key identifies the pack in the source cache, e.g.
	// "tar.gz:mqbjy743…". The prefix selects the unpack method.
	Key string `json:"key"`

	// Target is the directory to unpack into, relative to the
	// current directory. Defaults to ".".
	Target string `json:"target,omitempty"`

	// Strip removes this many leading path components, like tar's
	// --strip-components. Only meaningful for tarballs.
	Strip int `json:"strip,omitempty"`
}

// FileSpec is one entry of the "files" section.
type FileSpec struct {
	// Target is the file to create. Subject to $VAR/${VAR}
	// substitution, so "$ARTIFACT/bin/launch" works.
	Target string

	// Content is the file body, either inline text lines or a JSON
	// object. Exactly one variant is present (enforced at parse).
	Content FileContent

	// Executable selects mode 0755 instead of 0644.
	Executable bool
}

// FileContent is the closed set of file body variants.
type FileContent interface {
	isFileContent()
}

// TextContent is inline text: lines joined with "\n" when written.
// The join separator is fixed rather than host-dependent so the same
// spec produces byte-identical trees on every platform.
type TextContent struct {
	Lines []string

	// ExpandVars applies environment substitution to the joined
	// text itself, not just the target path.
	ExpandVars bool
}

// ObjectContent is a JSON value serialized canonically (sorted keys,
// fixed indentation) so identical objects always produce
// byte-identical files.
type ObjectContent struct {
	Value any
}

func (TextContent) isFileContent()   {}
func (ObjectContent) isFileContent() {}

// fileSpecWire is the on-disk shape of a files entry.
type fileSpecWire struct {
	Target     string   `json:"target"`
	Text       []string `json:"text"`
	Object     any      `json:"object"`
	Executable bool     `json:"executable"`
	ExpandVars bool     `json:"expandvars"`
}

// UnmarshalJSON validates the text/object variant rules while
// decoding, so a FileSpec in the hands of the materializer is always
// well-formed.
func (spec *FileSpec) UnmarshalJSON(data []byte) error {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}

	var wire fileSpecWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	_, hasText := keys["text"]
	_, hasObject := keys["object"]
	_, hasExpand := keys["expandvars"]

	if hasText == hasObject {
		return fmt.Errorf("%w: entry %q must contain exactly one of \"text\" and \"object\"",
			ErrInvalidSpec, wire.Target)
	}
	if hasObject && hasExpand {
		return fmt.Errorf("%w: \"expandvars\" only applies to \"text\" (entry %q)",
			ErrUnsupported, wire.Target)
	}

	spec.Target = wire.Target
	spec.Executable = wire.Executable
	if hasText {
		spec.Content = TextContent{Lines: wire.Text, ExpandVars: wire.ExpandVars}
	} else {
		spec.Content = ObjectContent{Value: wire.Object}
	}
	return nil
}
