package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent archive runs",
	Args:  cobra.NoArgs,
	RunE:  runHistoryCmd,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Number of archives to show")
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", limit)
	}

	client := NewClient(serverURL)
	archives, err := client.Archives(limit)
	if err != nil {
		return fmt.Errorf("failed to fetch history: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), archives)
	}
	printArchives(cmd.OutOrStdout(), archives)
	return nil
}
