package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var archiveCmd = &cobra.Command{
	Use:   "archive <video-id>...",
	Short: "Download many videos into one zip",
	Long: `Download many videos into one zip archive.

Every requested id gets exactly one entry: the video itself, or
ERROR_<id>.txt describing why it failed. download_summary.txt lists
the outcome of each.

Examples:
  vidpull archive abc123 def456            # Writes videos.zip
  vidpull archive abc123 -q hd -o out.zip  # Prefer HD renditions
  vidpull archive abc123 -o - > out.zip    # Stream to stdout`,
	Args: cobra.MinimumNArgs(1),
	RunE: runArchiveCmd,
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.Flags().StringP("quality", "q", "", "Quality: source, hd, sd, auto (default: server setting)")
	archiveCmd.Flags().StringP("output", "o", "videos.zip", "Output file, or - for stdout")
}

func runArchiveCmd(cmd *cobra.Command, args []string) error {
	quality, _ := cmd.Flags().GetString("quality")
	output, _ := cmd.Flags().GetString("output")

	out := cmd.OutOrStdout()
	status := cmd.ErrOrStderr()
	if output != "-" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
		status = cmd.OutOrStdout()
	}

	client := NewClient(serverURL)
	res, err := client.Archive(cmd.Context(), args, quality, out)
	if err != nil {
		if output != "-" {
			_ = os.Remove(output)
		}
		return fmt.Errorf("archive failed: %w", err)
	}

	if jsonOutput {
		return printJSON(status, res)
	}

	dest := output
	if output != "-" {
		if abs, err := filepath.Abs(output); err == nil {
			dest = abs
		}
	}
	fmt.Fprintf(status, "Wrote %s (%s)\n", dest, formatBytes(res.Bytes))
	if res.Total >= 0 {
		fmt.Fprintf(status, "Videos: %d ok, %d failed of %d\n", res.Success, res.Errors, res.Total)
	}
	if res.Errors > 0 {
		fmt.Fprintln(status, "See ERROR_<id>.txt entries and download_summary.txt inside the archive.")
	}
	return nil
}
