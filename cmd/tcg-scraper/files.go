package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	exportCardCmd.Flags().StringP("output", "o", "", "write to a file instead of stdout")

	rootCmd.AddCommand(downloadImageCmd)
	rootCmd.AddCommand(exportCardCmd)
}

var downloadImageCmd = &cobra.Command{
	Use:   "download-image",
	Short: "Downloads the image of every stored card that has none yet.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		summary, err := e.svc.DownloadImages(cmd.Context())
		fmt.Fprintf(os.Stderr, "%d images downloaded, %d failed\n", summary.Downloaded, summary.Failed)
		return err
	},
}

var exportCardCmd = &cobra.Command{
	Use:   "export-card",
	Short: "Writes every stored card as CSV.",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		e, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		var w io.Writer = os.Stdout
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			defer f.Close()
			w = f
		}

		n, err := e.svc.ExportCSV(cmd.Context(), w)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%d cards exported\n", n)
		return nil
	},
}
