// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/kiln/cmd/kiln/cli"
	"github.com/bureau-foundation/kiln/lib/buildspec"
	"github.com/bureau-foundation/kiln/lib/sourcecache"
)

func unpackSourcesCommand() *cli.Command {
	var key, input, configPath string
	return &cli.Command{
		Name:    "build-unpack-sources",
		Summary: "Extract the sources listed in a build spec",
		Description: `Extract the sources listed in the "sources" section of a build spec
into the current directory.

Each entry names a source cache key ("tar.gz:<hash>", "files:<hash>",
…), an optional target directory (default "."), and an optional
"strip" count acting like tar --strip-components. Conflicting files
abort the unpack; partially extracted content is not removed, so
always unpack into a disposable directory.`,
		Usage: "kiln build-unpack-sources [--key KEY] [--input FILE]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("build-unpack-sources", pflag.ContinueOnError)
			flags.StringVar(&key, "key", "sources", "key to read from the spec document")
			flags.StringVar(&input, "input", "build.json", "spec document to read")
			flags.StringVar(&configPath, "config", "", "kiln config file (default: $KILN_CONFIG)")
			return flags
		},
		Run: func(args []string) error {
			env := environMap()
			cfg, err := loadConfig(configPath, env)
			if err != nil {
				return err
			}
			cache := sourcecache.New(cfg.SourceCache.Root)

			var sources []buildspec.Source
			if err := buildspec.DecodeFileKey(input, key, &sources); err != nil {
				return err
			}
			for _, source := range sources {
				target := source.Target
				if target == "" {
					target = "."
				}
				if err := cache.Unpack(source.Key, target, source.Strip); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
