package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <video-id>",
	Short: "Download a single video into the server cache",
	Args:  cobra.ExactArgs(1),
	RunE:  runGetCmd,
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().StringP("quality", "q", "", "Quality: source, hd, sd, auto (default: server setting)")
}

func runGetCmd(cmd *cobra.Command, args []string) error {
	quality, _ := cmd.Flags().GetString("quality")

	client := NewClient(serverURL)
	res, err := client.Fetch(cmd.Context(), args[0], quality)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		if err := printJSON(out, res); err != nil {
			return err
		}
	} else if res.Success {
		how := "downloaded"
		if res.CacheHit {
			how = "already cached"
		}
		fmt.Fprintf(out, "%s: %s (%s, %s)\n", res.VideoID, res.Path, formatBytes(res.Bytes), how)
	}

	if !res.Success {
		if !jsonOutput {
			fmt.Fprintf(out, "%s: %s\n", res.VideoID, res.Error)
		}
		return errors.New("download did not complete")
	}
	return nil
}
