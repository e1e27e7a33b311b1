// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package links implements the "kiln create-links" command.
package links

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/kiln/cmd/kiln/cli"
	"github.com/bureau-foundation/kiln/lib/buildspec"
	"github.com/bureau-foundation/kiln/lib/links"
)

// Command returns the create-links command.
func Command() *cli.Command {
	var key string
	return &cli.Command{
		Name:    "create-links",
		Summary: "Create symlinks according to rules in a JSON document",
		Description: `Create a set of symlinks according to rules read from a JSON
document (or a sub-key of one, via --key). For example, to symlink
everything in /bin except cp into $ARTIFACT/bin:

  "links": [
    {"action": "exclude",  "select": "/bin/cp"},
    {"action": "symlink",  "select": "/bin/*", "prefix": "/", "target": "$ARTIFACT"}
  ]

Rules apply in order, first match per path wins. The "launcher"
action routes scripts through the launcher program at
$LAUNCHER/bin/launcher.`,
		Usage: "kiln create-links [--key KEY] INPUT",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("create-links", pflag.ContinueOnError)
			flags.StringVar(&key, "key", "/", "sub-key of the document holding the rules")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("exactly one input document expected")
			}

			env := make(map[string]string)
			for _, entry := range os.Environ() {
				if name, value, ok := strings.Cut(entry, "="); ok {
					env[name] = value
				}
			}

			var rules []links.Rule
			if err := buildspec.DecodeFileKey(args[0], key, &rules); err != nil {
				return err
			}

			executor := &links.Executor{Env: env}
			if launcherRoot := env["LAUNCHER"]; launcherRoot != "" {
				executor.LauncherProgram = filepath.Join(launcherRoot, "bin", "launcher")
			}
			return executor.Execute(rules)
		},
	}
}
