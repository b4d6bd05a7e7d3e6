package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"hibiki/internal/hianime"
	"hibiki/internal/media"
)

var watchCmd = &cobra.Command{
	Use:   "watch <anime-id> [episode]",
	Short: "Play an episode of a show directly by its id",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  watchRun,
}

func watchRun(cmd *cobra.Command, args []string) error {
	c := hianime.New(cfg.Base)
	animeID := args[0]

	episodes, err := c.Episodes(animeID)
	if err != nil {
		return fmt.Errorf("getting episodes: %w", err)
	}
	if len(episodes) == 0 {
		return fmt.Errorf("no episodes found")
	}

	title := animeID
	if info, err := c.Info(animeID); err == nil && info.Title != "" {
		title = info.Title
	}

	if len(args) == 1 {
		return pickEpisodeAndPlay(c, animeID, title)
	}

	num, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("episode number %q is not numeric", args[1])
	}

	var ep *media.Episode
	for i := range episodes {
		if episodes[i].Number == num {
			ep = &episodes[i]
			break
		}
	}
	if ep == nil {
		return fmt.Errorf("episode %g not found", num)
	}

	return resolveAndPlay(c, animeID, title, *ep)
}
