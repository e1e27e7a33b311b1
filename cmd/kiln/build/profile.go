// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/kiln/cmd/kiln/cli"
	"github.com/bureau-foundation/kiln/lib/buildspec"
	"github.com/bureau-foundation/kiln/lib/profile"
	"github.com/bureau-foundation/kiln/lib/store"
)

// manifestName is the manifest file written under $BUILD between
// push and pop.
const manifestName = "temp_build_profile_manifest.json"

func profileCommand() *cli.Command {
	return &cli.Command{
		Name:    "build-profile",
		Summary: "Manage the temporary profile used during a build",
		Description: `Build or tear down the temporary dependency profile under $ARTIFACT.

"push" symlinks the artifacts from build.import (read from
$BUILD/build.json, with virtuals from HDIST_VIRTUALS) into $ARTIFACT
and records exactly the files it created in a manifest under $BUILD.
"pop" deletes those files again, plus any directories the deletions
leave empty.

push/pop pairs must nest strictly: a second push before the matching
pop overwrites the manifest and makes exact teardown impossible.`,
		Usage: "kiln build-profile {push|pop}",
		Subcommands: []*cli.Command{
			profilePushCommand(),
			profilePopCommand(),
		},
	}
}

// profileEnv gathers the shared environment for push and pop.
type profileEnv struct {
	artifactDir  string
	manifestPath string
	buildDir     string
}

func readProfileEnv(env map[string]string) (profileEnv, error) {
	buildDir, err := requireEnv(env, "BUILD")
	if err != nil {
		return profileEnv{}, err
	}
	artifactDir, err := requireEnv(env, "ARTIFACT")
	if err != nil {
		return profileEnv{}, err
	}
	return profileEnv{
		artifactDir:  artifactDir,
		manifestPath: filepath.Join(buildDir, manifestName),
		buildDir:     buildDir,
	}, nil
}

func profilePushCommand() *cli.Command {
	var configPath string
	return &cli.Command{
		Name:    "push",
		Summary: "Link dependency artifacts into $ARTIFACT",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("push", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "kiln config file (default: $KILN_CONFIG)")
			return flags
		},
		Run: func(args []string) error {
			env := environMap()
			cfg, err := loadConfig(configPath, env)
			if err != nil {
				return err
			}
			context, err := readProfileEnv(env)
			if err != nil {
				return err
			}
			virtuals, err := profile.ParseVirtualsEnv(env["HDIST_VIRTUALS"])
			if err != nil {
				return err
			}
			spec, err := buildspec.ReadFile(filepath.Join(context.buildDir, "build.json"))
			if err != nil {
				return err
			}

			builder := &profile.Builder{Store: store.New(cfg.Store)}
			_, err = profile.Push(builder, context.artifactDir, spec.Build.Import, virtuals, context.manifestPath)
			return err
		},
	}
}

func profilePopCommand() *cli.Command {
	return &cli.Command{
		Name:    "pop",
		Summary: "Remove the files installed by the matching push",
		Run: func(args []string) error {
			context, err := readProfileEnv(environMap())
			if err != nil {
				return err
			}
			return profile.Pop(context.manifestPath, context.artifactDir)
		},
	}
}
