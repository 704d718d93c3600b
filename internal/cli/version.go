package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version information, set at build time with ldflags
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "airecruiter %s\n", Version)
		fmt.Fprintf(out, "commit: %s\n", GitCommit)
		fmt.Fprintf(out, "built:  %s\n", BuildDate)
	},
}
