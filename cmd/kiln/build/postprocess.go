// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/kiln/cmd/kiln/cli"
	"github.com/bureau-foundation/kiln/lib/postprocess"
	"github.com/bureau-foundation/kiln/lib/shebang"
)

func postprocessCommand() *cli.Command {
	var shebangMode string
	var writeProtect bool
	return &cli.Command{
		Name:    "build-postprocess",
		Summary: "Relocate shebangs and write-protect a finished artifact tree",
		Description: `Walk a finished artifact tree (default: $ARTIFACT) and apply the
selected postprocessing steps to every file.

--shebang rewires executables starting with #! so they launch the
interpreter of whatever profile they are reached through, falling
back to a path relative to the script when outside any profile.
"multiline" rewrites scripts in place into a /bin/sh polyglot;
"launcher" routes them through the launcher program found at
$LAUNCHER/bin/launcher.

--write-protect removes all write permission bits from files
(directories stay writable so the tree can still be removed).`,
		Usage: "kiln build-postprocess [--shebang MODE] [--write-protect] [path]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("build-postprocess", pflag.ContinueOnError)
			flags.StringVar(&shebangMode, "shebang", "none", "shebang strategy: multiline, launcher, or none")
			flags.BoolVar(&writeProtect, "write-protect", false, "remove write permission bits from files")
			return flags
		},
		Run: func(args []string) error {
			env := environMap()

			var handlers []postprocess.Handler
			switch shebangMode {
			case "launcher":
				launcherRoot, err := requireEnv(env, "LAUNCHER")
				if err != nil {
					return err
				}
				relocator, err := shebang.NewLauncherRelocator(launcherProgram(launcherRoot))
				if err != nil {
					return err
				}
				handlers = append(handlers, relocator.Relocate)
			case "multiline":
				handlers = append(handlers, shebang.RelocateMultiline)
			case "none":
			default:
				return fmt.Errorf("unknown --shebang mode %q (want multiline, launcher, or none)", shebangMode)
			}

			// Relocation first: write-protecting a script that a
			// relocation is about to rename would break the rewrite.
			if writeProtect {
				handlers = append(handlers, postprocess.WriteProtect)
			}

			root := ""
			switch len(args) {
			case 0:
				var err error
				if root, err = requireEnv(env, "ARTIFACT"); err != nil {
					return fmt.Errorf("no path given and %w", err)
				}
			case 1:
				root = args[0]
			default:
				return fmt.Errorf("at most one path expected, got %d", len(args))
			}

			walker := &postprocess.Walker{Handlers: handlers}
			return walker.Walk(root)
		},
	}
}
