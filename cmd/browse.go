package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"hibiki/internal/hianime"
	"hibiki/internal/media"
	"hibiki/internal/ui"
)

var popularCmd = &cobra.Command{
	Use:   "popular [page]",
	Short: "Browse the most popular shows",
	Args:  cobra.MaximumNArgs(1),
	RunE:  popularRun,
}

func popularRun(cmd *cobra.Command, args []string) error {
	c := hianime.New(cfg.Base)
	page, err := c.Popular(parsePageArg(args))
	if err != nil {
		return fmt.Errorf("getting popular: %w", err)
	}
	return browsePage(c, "Popular", page)
}

var latestCmd = &cobra.Command{
	Use:   "latest [page]",
	Short: "Browse recently updated shows",
	Args:  cobra.MaximumNArgs(1),
	RunE:  latestRun,
}

func latestRun(cmd *cobra.Command, args []string) error {
	c := hianime.New(cfg.Base)
	page, err := c.Latest(parsePageArg(args))
	if err != nil {
		return fmt.Errorf("getting latest: %w", err)
	}
	return browsePage(c, "Latest", page)
}

func browsePage(c *hianime.Client, prompt string, page *media.Page) error {
	if len(page.Results) == 0 {
		fmt.Println("Nothing found.")
		return nil
	}

	items := make([]string, len(page.Results))
	for i, r := range page.Results {
		items[i] = r.Title
	}

	idx, err := ui.Select(prompt, items)
	if err != nil {
		return err
	}

	selected := page.Results[idx]
	return pickEpisodeAndPlay(c, selected.ID, selected.Title)
}

func parsePageArg(args []string) int {
	if len(args) == 0 {
		return 1
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 1
	}
	return n
}
