package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"hibiki/internal/hianime"
	"hibiki/internal/history"
	"hibiki/internal/media"
	"hibiki/internal/ui"
)

var flagClear bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Resume from watch history",
	RunE:  historyRun,
}

func init() {
	historyCmd.Flags().BoolVar(&flagClear, "clear", false, "Delete all history entries")
}

func historyRun(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}

	if flagClear {
		defer store.Close()
		ok, err := ui.Confirm("Clear all watch history?")
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Println("History cleared.")
		return nil
	}

	entries, err := store.Load()
	store.Close()
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No history entries found.")
		return nil
	}

	items := history.FormatForDisplay(entries)
	idx, err := ui.Select("History", items)
	if err != nil {
		return err
	}

	selected := entries[idx]
	debugf("resuming: %s (episode %s)", selected.Title, selected.EpisodeID)

	c := hianime.New(cfg.Base)

	ep := media.Episode{
		ID:     selected.EpisodeID,
		Number: selected.Episode,
		Title:  fmt.Sprintf("Ep. %g", selected.Episode),
	}

	// Resume from the saved position
	flagContinue = true
	return resolveAndPlay(c, selected.AnimeID, selected.Title, ep)
}
