package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the server",
	Args:  cobra.NoArgs,
	RunE:  runStatusCmd,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatusCmd(cmd *cobra.Command, _ []string) error {
	client := NewClient(serverURL)
	status, err := client.Status()
	if err != nil {
		return fmt.Errorf("status check failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, status)
	}
	fmt.Fprintf(out, "Server:     %s (%s)\n", serverURL, status.Status)
	fmt.Fprintf(out, "Version:    %s\n", status.Version)
	fmt.Fprintf(out, "Quality:    %s\n", status.DefaultQuality)
	fmt.Fprintf(out, "Active:     %d downloads\n", status.ActiveDownloads)
	return nil
}
