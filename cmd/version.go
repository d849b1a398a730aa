package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/spigell/inbox-ranker/internal/vectorindex"
)

// Actual version and commit can be specified in build command.
var (
	version = "unknown"
	commit  = "none"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("%s version: %s (commit %s, %s, index format v%d)\n",
			app, version, commit, runtime.Version(), vectorindex.IndexVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
