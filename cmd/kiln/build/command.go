// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package build implements the kiln subcommands that run inside
// build scripts: materializing spec files, unpacking sources,
// emitting sandbox whitelists, managing the ephemeral build profile,
// and postprocessing finished artifact trees.
//
// These commands are invoked by generated build scripts, not by
// people, so their interface is environment-heavy: ARTIFACT, BUILD,
// LAUNCHER, HDIST_IMPORT and HDIST_VIRTUALS carry the build context
// the job runner sets up.
package build

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/kiln/cmd/kiln/cli"
	"github.com/bureau-foundation/kiln/lib/config"
)

// Commands returns all build-stage commands for the root command
// tree.
func Commands() []*cli.Command {
	return []*cli.Command{
		unpackSourcesCommand(),
		writeFilesCommand(),
		whitelistCommand(),
		profileCommand(),
		postprocessCommand(),
	}
}

// environMap snapshots the process environment into a map. Commands
// receive the environment as data rather than reading globals, so
// tests (and the job runner) can substitute a synthetic one.
func environMap() map[string]string {
	env := make(map[string]string)
	for _, entry := range os.Environ() {
		if name, value, ok := strings.Cut(entry, "="); ok {
			env[name] = value
		}
	}
	return env
}

// loadConfig resolves and loads the kiln config from the --config
// flag value or KILN_CONFIG.
func loadConfig(flagValue string, env map[string]string) (*config.Config, error) {
	path, err := config.Path(flagValue, env)
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

// requireEnv reads a required environment variable. An empty value
// is legal (an empty import list is a valid build context); only an
// unset variable is an error.
func requireEnv(env map[string]string, name string) (string, error) {
	value, ok := env[name]
	if !ok {
		return "", fmt.Errorf("%s environment variable not set", name)
	}
	return value, nil
}

// launcherProgram returns the launcher binary under the LAUNCHER
// artifact root, conventionally at bin/launcher.
func launcherProgram(launcherRoot string) string {
	return filepath.Join(launcherRoot, "bin", "launcher")
}
