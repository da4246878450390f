package main

import (
	"github.com/SARVESHVARADKAR123/dmsync/internal/thread"
	"github.com/spf13/cobra"
)

var historyPages int

func init() {
	historyCmd.Flags().IntVarP(&historyPages, "pages", "n", 1, "number of pages to load")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [conversation-id]",
	Short: "Print the most recent pages of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		v, err := thread.Open(ctx, s.client, args[0], s.threadOptions())
		if err != nil {
			return err
		}
		defer v.Close()

		for i := 1; i < historyPages && v.History.HasMore(); i++ {
			if _, err := v.History.LoadOlder(ctx); err != nil {
				return err
			}
		}

		for _, m := range v.Store.Messages() {
			renderMessage(cmd.OutOrStdout(), m, s.cfg.UserID)
		}
		return nil
	},
}
