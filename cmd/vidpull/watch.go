package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmunix/vidpull/internal/events"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live progress events",
	Long: `Stream live progress events from the server until interrupted.

Examples:
  vidpull watch                   # Everything
  vidpull watch --job <job-id>    # One download
  vidpull watch --archive <id>    # Archive start/finish`,
	Args: cobra.NoArgs,
	RunE: runWatchCmd,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("job", "", "Only show events for this job")
	watchCmd.Flags().String("archive", "", "Only show events for this archive")
	watchCmd.MarkFlagsMutuallyExclusive("job", "archive")
}

func runWatchCmd(cmd *cobra.Command, _ []string) error {
	job, _ := cmd.Flags().GetString("job")
	archiveID, _ := cmd.Flags().GetString("archive")

	var filter string
	switch {
	case job != "":
		filter = "job=" + job
	case archiveID != "":
		filter = "archive=" + archiveID
	}

	out := cmd.OutOrStdout()
	client := NewClient(serverURL)
	return client.Watch(cmd.Context(), filter, func(e events.Event) {
		if jsonOutput {
			_ = printJSON(out, e)
			return
		}
		fmt.Fprintln(out, formatEvent(e))
	})
}
