package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.Version=..." at release time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if versionShort {
			fmt.Fprintln(out, Version)
			return
		}
		commit, built := buildStamp()
		fmt.Fprintf(out, "signalbot %s\n", Version)
		fmt.Fprintf(out, "  Git commit: %s\n", commit)
		fmt.Fprintf(out, "  Build time: %s\n", built)
		fmt.Fprintf(out, "  Go:         %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

// buildStamp prefers the ldflags values and falls back to the VCS
// settings the go tool embeds in module builds.
func buildStamp() (commit, built string) {
	commit, built = GitCommit, BuildTime
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return commit, built
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if commit == "unknown" {
				commit = s.Value
			}
		case "vcs.time":
			if built == "unknown" {
				built = s.Value
			}
		}
	}
	return commit, built
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print the version number only")
	rootCmd.AddCommand(versionCmd)
}
