package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var downloadsCmd = &cobra.Command{
	Use:   "downloads",
	Short: "Show active downloads",
	Long: `Show downloads currently running on the server.

Examples:
  vidpull downloads              # Snapshot of active jobs
  vidpull downloads --json       # Same, as JSON
  vidpull cancel <job-id>        # Cancel one of them`,
	Args: cobra.NoArgs,
	RunE: runDownloadsCmd,
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel an active download",
	Long:  "Cancels the job; a partially downloaded file is kept so a later attempt can resume it.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCancelCmd,
}

func init() {
	rootCmd.AddCommand(downloadsCmd)
	rootCmd.AddCommand(cancelCmd)
}

func runDownloadsCmd(cmd *cobra.Command, _ []string) error {
	client := NewClient(serverURL)
	downloads, err := client.Downloads()
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), downloads)
	}
	printDownloads(cmd.OutOrStdout(), downloads)
	return nil
}

func runCancelCmd(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	if err := client.CancelDownload(args[0]); err != nil {
		return fmt.Errorf("cancel failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Download %s canceled\n", args[0])
	return nil
}
