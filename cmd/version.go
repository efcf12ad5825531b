package cmd

import (
	"github.com/praetorian-inc/asea-lza/internal/message"
	"github.com/praetorian-inc/asea-lza/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of asea-lza",
	Run: func(cmd *cobra.Command, args []string) {
		message.Info("%s", version.FullVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
