package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"hibiki/internal/config"
	"hibiki/internal/download"
	"hibiki/internal/hianime"
	"hibiki/internal/history"
	"hibiki/internal/media"
	"hibiki/internal/player"
	"hibiki/internal/resolve"
	"hibiki/internal/subtitle"
	"hibiki/internal/ui"
)

// searchRun is the default command: hibiki <query>
func searchRun(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	if query == "" {
		var err error
		query, err = ui.Input("Search")
		if err != nil {
			return fmt.Errorf("no search query provided")
		}
	}

	debugf("searching for: %s", query)

	c := hianime.New(cfg.Base)
	return playFlow(c, query)
}

// playFlow handles the full search -> select -> play flow.
func playFlow(c *hianime.Client, query string) error {
	page, err := c.Search(query, 1)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(page.Results) == 0 {
		return fmt.Errorf("no results for %q", query)
	}

	items := make([]string, len(page.Results))
	for i, r := range page.Results {
		items[i] = r.Title
	}

	idx, err := ui.Select("Select", items)
	if err != nil {
		return err
	}

	selected := page.Results[idx]
	debugf("selected: %s (ID: %s)", selected.Title, selected.ID)

	return pickEpisodeAndPlay(c, selected.ID, selected.Title)
}

// pickEpisodeAndPlay lists episodes, lets the user choose one, then plays it.
func pickEpisodeAndPlay(c *hianime.Client, animeID, animeTitle string) error {
	episodes, err := c.Episodes(animeID)
	if err != nil {
		return fmt.Errorf("getting episodes: %w", err)
	}
	if len(episodes) == 0 {
		return fmt.Errorf("no episodes found")
	}

	items := make([]string, len(episodes))
	for i, ep := range episodes {
		label := ep.Title
		if ep.Filler {
			label += " (filler)"
		}
		items[i] = label
	}

	idx, err := ui.Select("Episode", items)
	if err != nil {
		return err
	}

	return resolveAndPlay(c, animeID, animeTitle, episodes[idx])
}

// resolveAndPlay resolves streams for one episode and plays or downloads them.
func resolveAndPlay(c *hianime.Client, animeID, animeTitle string, ep media.Episode) error {
	title := fmt.Sprintf("%s Ep. %g", animeTitle, ep.Number)
	debugf("episode: %g (ID: %s)", ep.Number, ep.ID)

	r := resolve.New(c)
	r.Logf = debugf

	result, err := r.ResolveVideo(ep.ID, cfg.Server, cfg.TrackType())

	var snf *media.ServerNotFoundError
	if errors.As(err, &snf) {
		// Offer whatever the episode actually has.
		var names []string
		var servers []media.Server
		var types []media.TrackType
		for _, typ := range resolve.FallbackOrder {
			for _, s := range snf.Servers[typ] {
				names = append(names, fmt.Sprintf("%s (%s)", s.Name, typ))
				servers = append(servers, s)
				types = append(types, typ)
			}
		}
		if len(names) == 0 {
			return fmt.Errorf("no servers found for episode")
		}

		idx, selErr := ui.Select("Server", names)
		if selErr != nil {
			return selErr
		}
		result, err = r.ResolveVideo(ep.ID, servers[idx].Name, types[idx])
	}
	if err != nil {
		return fmt.Errorf("resolving streams: %w", err)
	}
	if len(result.Streams) == 0 {
		return fmt.Errorf("no playable streams from %s", result.Server)
	}

	stream := &result.Streams[0]
	debugf("stream: %s (%s)", stream.URL, stream.Quality)

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	var subFile string
	if !flagNoSubs && len(stream.Subtitles) > 0 {
		best := subtitle.BestMatch(stream.Subtitles, cfg.SubsLanguage)
		if best != nil {
			tmpDir, err := subtitle.NewTempDir()
			if err == nil {
				defer tmpDir.Cleanup()
				subFile, err = tmpDir.Download(*best)
				if err != nil {
					debugf("subtitle download failed: %v", err)
					subFile = "" // Continue without subs
				} else {
					debugf("subtitle file: %s", subFile)
				}
			}
		}
	}

	if flagDownload != "" {
		outputPath, err := download.Download(stream, title, flagDownload, subFile)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Downloaded: %s\n", outputPath)
		return nil
	}

	var startPos float64
	if flagContinue && cfg.History {
		if store, err := openHistory(); err == nil {
			entries, _ := store.Load()
			store.Close()
			for _, e := range entries {
				if e.AnimeID == animeID && e.EpisodeID == ep.ID {
					startPos = e.Position
					debugf("resuming from position: %.0fs", startPos)
					break
				}
			}
		}
	}

	p := player.New(cfg.Player)
	if !p.Available() {
		return fmt.Errorf("player %q not found in PATH", cfg.Player)
	}

	lastPos, err := p.Play(stream, title, startPos, subFile)
	if err != nil {
		return fmt.Errorf("playback failed: %w", err)
	}

	if cfg.History {
		store, err := openHistory()
		if err != nil {
			debugf("opening history failed: %v", err)
			return nil
		}
		defer store.Close()

		entry := media.HistoryEntry{
			AnimeID:   animeID,
			Title:     animeTitle,
			EpisodeID: ep.ID,
			Episode:   ep.Number,
			Position:  lastPos,
		}
		if err := store.Save(entry); err != nil {
			debugf("saving history failed: %v", err)
		}
	}

	return nil
}

func openHistory() (*history.Store, error) {
	path, err := config.HistoryPath()
	if err != nil {
		return nil, err
	}
	return history.Open(path)
}
