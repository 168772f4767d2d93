package main

import (
	"os"

	"github.com/spf13/cobra"

	"nasagram/pkg/logger"
	"nasagram/pkg/release"
	"nasagram/pkg/ui"
)

var releasePush bool

// releaseCmd represents the release command
var releaseCmd = &cobra.Command{
	Use:   "release <version>",
	Short: "Cut a release: bump version, commit and tag",
	Long: `Cut a release from a clean working tree.

The version constant and changelog are updated, committed and tagged as
v<version>. A leading v on the argument is accepted and normalised away.`,
	Example: `  # Tag locally
  nasagram release 1.2.3

  # Tag and push
  nasagram release v1.2.3 --push`,
	Args: cobra.ExactArgs(1),
	Run:  runRelease,
}

func init() {
	rootCmd.AddCommand(releaseCmd)

	releaseCmd.Flags().BoolVar(&releasePush, "push", false, "push the commit and tag to origin")
}

func runRelease(cmd *cobra.Command, args []string) {
	// Release only needs the logger, but config still drives its level
	loadConfig(nil)

	cwd, err := os.Getwd()
	if err != nil {
		fail("Failed to resolve working directory", err)
	}

	r := release.New(cwd, logger.GetLogger())
	r.Push = releasePush

	if err := r.Release(args[0]); err != nil {
		fail("Release failed", err)
	}

	normalized, _ := release.NormalizeVersion(args[0])
	ui.PrintSuccess("Released v" + normalized)
	if !releasePush {
		ui.PrintInfo("Next step", "git push && git push origin v"+normalized)
	}
}
