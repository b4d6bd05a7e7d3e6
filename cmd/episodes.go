package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hibiki/internal/hianime"
)

var episodesCmd = &cobra.Command{
	Use:   "episodes <anime-id>",
	Short: "List the episodes of a show",
	Args:  cobra.ExactArgs(1),
	RunE:  episodesRun,
}

func episodesRun(cmd *cobra.Command, args []string) error {
	c := hianime.New(cfg.Base)

	episodes, err := c.Episodes(args[0])
	if err != nil {
		return fmt.Errorf("getting episodes: %w", err)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(episodes)
	}

	for _, ep := range episodes {
		line := ep.Title
		if ep.Filler {
			line += " (filler)"
		}
		fmt.Printf("%s\t%s\n", ep.ID, line)
	}
	return nil
}
