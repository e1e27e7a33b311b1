// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands assembles the kiln root command tree.
package commands

import (
	"github.com/bureau-foundation/kiln/cmd/kiln/build"
	"github.com/bureau-foundation/kiln/cmd/kiln/cli"
	"github.com/bureau-foundation/kiln/cmd/kiln/links"
)

// Root returns the top-level kiln command.
func Root() *cli.Command {
	subcommands := []*cli.Command{links.Command()}
	subcommands = append(subcommands, build.Commands()...)

	return &cli.Command{
		Name:    "kiln",
		Summary: "Build-script tooling for the kiln build store",
		Description: `kiln is the helper tool generated build scripts call to prepare,
relocate, and compose build artifacts: unpacking sources, writing
spec-declared files, assembling the temporary build profile, scoping
the sandbox, and postprocessing finished artifact trees.`,
		Subcommands: subcommands,
	}
}
