package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/maltedev/tcg-scraper/internal/app"
	"github.com/spf13/cobra"
)

func init() {
	updateCardCmd.Flags().String("set", "", "ref code of the cardset to fetch, e.g. SV4a")
	updateCardCmd.Flags().Bool("all", false, "fetch every unsynced cardset")
	updateCardCmd.MarkFlagsMutuallyExclusive("set", "all")
	updateCardCmd.MarkFlagsOneRequired("set", "all")

	rootCmd.AddCommand(updateCardCmd)
	rootCmd.AddCommand(resyncAllCmd)
}

var updateCardCmd = &cobra.Command{
	Use:   "update-card",
	Short: "Fetches the cards of one cardset or of every unsynced cardset.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, _ := cmd.Flags().GetString("set")

		e, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		if ref == "" {
			summary, err := e.svc.UpdateAll(cmd.Context())
			printSummary(summary)
			return err
		}

		res, err := e.svc.UpdateCardset(cmd.Context(), ref)
		if errors.Is(err, app.ErrCardsetNotFound) {
			return fmt.Errorf("%w (run update-cardset --all first)", err)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "cardset %s: %d cards, %d errors, %s\n", res.CardsetID, res.Upserted, res.Errors, res.State)
		return nil
	},
}

var resyncAllCmd = &cobra.Command{
	Use:   "resync-all",
	Short: "Marks every cardset unsynced and fetches all of them again.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		summary, err := e.svc.ResyncAll(cmd.Context())
		printSummary(summary)
		return err
	},
}

func printSummary(s app.Summary) {
	fmt.Fprintf(os.Stderr, "%d cardsets attempted: %d synced, %d unsynced, %d failed\n",
		s.Attempted, s.Synced, s.Unsynced, s.Failed)
}
