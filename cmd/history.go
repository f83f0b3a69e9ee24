package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"hlsgrab/internal/history"
	"hlsgrab/internal/ui"
)

var (
	flagClearHistory bool
	flagRemoveID     string
	flagRerun        bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past extractions",
	Args:  cobra.NoArgs,
	RunE:  historyRun,
}

func init() {
	historyCmd.Flags().BoolVar(&flagClearHistory, "clear", false, "Delete all history entries")
	historyCmd.Flags().StringVar(&flagRemoveID, "remove", "", "Delete the entry with this ID")
	historyCmd.Flags().BoolVarP(&flagRerun, "rerun", "r", false, "Pick an entry and extract its page again")
}

func historyRun(cmd *cobra.Command, args []string) error {
	store, err := history.Open()
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	defer store.Close()

	if flagClearHistory {
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
		return nil
	}

	if flagRemoveID != "" {
		if err := store.Remove(flagRemoveID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s.\n", flagRemoveID)
		return nil
	}

	entries, err := store.Load()
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No history entries found.")
		return nil
	}

	items := history.FormatForDisplay(entries)
	if !flagRerun {
		for _, item := range items {
			fmt.Fprintln(cmd.OutOrStdout(), item)
		}
		return nil
	}

	idx, err := ui.Select("History", items)
	if err != nil {
		return err
	}

	selected := entries[idx]
	logger.Debug().Str("id", selected.ID).Str("url", selected.WebpageURL).Msg("re-extracting")

	return extractRun(cmd, []string{selected.WebpageURL})
}
