package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	updateCardsetCmd.Flags().Bool("all", false, "update every cardset listed on the site")
	rootCmd.AddCommand(updateCardsetCmd)
	rootCmd.AddCommand(listCardsetsCmd)
}

var updateCardsetCmd = &cobra.Command{
	Use:   "update-cardset",
	Short: "Reads the cardset index and stores every cardset found.",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if !all {
			return errors.New("update-cardset requires --all")
		}

		e, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		n, err := e.svc.UpdateCardsets(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%d cardsets updated\n", n)
		return nil
	},
}

var listCardsetsCmd = &cobra.Command{
	Use:   "list-cardsets",
	Short: "Prints the stored cardsets and their sync state.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		cardsets, err := e.svc.ListCardsets(cmd.Context())
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Ref", "Name", "Items", "State"})
		for _, cs := range cardsets {
			t.AppendRow(table.Row{cs.ID, cs.Ref, cs.Name, cs.ResultCount, cs.SyncState.String()})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
