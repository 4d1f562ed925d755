// Package cmd implements the briefwire command line interface.
package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/Briefwire/Briefwire/cmd/briefwire/cmd.version=1.2.3"
	version = "0.4.0"
	logo    = "\n" +
		"  ____       _       __          _\n" +
		" | __ ) _ __(_) ___ / _|_      _(_)_ __ ___\n" +
		" |  _ \\| '__| |/ _ \\ |_\\ \\ /\\ / / | '__/ _ \\\n" +
		" | |_) | |  | |  __/  _|\\ V  V /| | | |  __/\n" +
		" |____/|_|  |_|\\___|_|   \\_/\\_/ |_|_|  \\___|\n"
)

var rootCmd = &cobra.Command{
	Use:   "briefwire",
	Short: "Briefwire - event to action pipeline",
	Long:  color.CyanString(logo) + "\nTurns inbound mail, calendar, chat and document events into summaries, suggested replies and confirmed actions.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(pipelineCmd)
	rootCmd.AddCommand(tasksCmd)
}
