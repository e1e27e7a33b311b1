// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/kiln/cmd/kiln/cli"
	"github.com/bureau-foundation/kiln/lib/buildspec"
	"github.com/bureau-foundation/kiln/lib/materialize"
)

func writeFilesCommand() *cli.Command {
	var key, input string
	return &cli.Command{
		Name:    "build-write-files",
		Summary: "Materialize the files declared inline in a build spec",
		Description: `Write the files declared in the "files" section of a build spec.

Each entry names a target (subject to $VAR substitution against the
environment) and either inline text lines or a JSON object. Entries
are written with exclusive creation: a target that already exists
fails the command. Relative targets are relative to the current
directory.

Example spec section:

  "files": [
    {
      "target": "build.sh",
      "text": [
        "set -e",
        "./configure --prefix=\"${ARTIFACT}\"",
        "make",
        "make install"
      ],
      "executable": true
    }
  ]`,
		Usage: "kiln build-write-files [--key KEY] [--input FILE]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("build-write-files", pflag.ContinueOnError)
			flags.StringVar(&key, "key", "files", "key to read from the spec document")
			flags.StringVar(&input, "input", "build.json", "spec document to read")
			return flags
		},
		Run: func(args []string) error {
			var specs []buildspec.FileSpec
			if err := buildspec.DecodeFileKey(input, key, &specs); err != nil {
				return err
			}
			return materialize.Run(specs, environMap())
		},
	}
}
