// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/kiln/cmd/kiln/cli"
	"github.com/bureau-foundation/kiln/lib/store"
	"github.com/bureau-foundation/kiln/lib/whitelist"
)

func whitelistCommand() *cli.Command {
	var configPath string
	return &cli.Command{
		Name:    "build-whitelist",
		Summary: "Print the sandbox filesystem whitelist for this build",
		Description: `Print the glob patterns a sandboxed build may read, one per line:
the build directory, /tmp, /etc, and the tree of every artifact in
the HDIST_IMPORT environment variable (space-separated IDs).

All artifact IDs are resolved before anything is printed, so a
resolution failure emits no partial whitelist.`,
		Usage: "kiln build-whitelist",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("build-whitelist", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "kiln config file (default: $KILN_CONFIG)")
			return flags
		},
		Run: func(args []string) error {
			env := environMap()
			cfg, err := loadConfig(configPath, env)
			if err != nil {
				return err
			}
			imports, err := requireEnv(env, "HDIST_IMPORT")
			if err != nil {
				return err
			}

			buildStore := store.New(cfg.Store)
			patterns, err := whitelist.Generate(buildStore.BuildDir(), strings.Fields(imports), buildStore)
			if err != nil {
				return err
			}
			for _, pattern := range patterns {
				fmt.Fprintln(os.Stdout, pattern)
			}
			return nil
		},
	}
}
