// Package media defines shared types for the hibiki application.
package media

import "strings"

// TrackType is the audio/subtitle bucket a hoster is listed under.
type TrackType string

const (
	TrackSub   TrackType = "sub"
	TrackDub   TrackType = "dub"
	TrackRaw   TrackType = "raw"
	TrackMixed TrackType = "mixed"
)

// ParseTrackType validates a user-supplied track type string.
func ParseTrackType(s string) (TrackType, bool) {
	switch TrackType(strings.ToLower(strings.TrimSpace(s))) {
	case TrackSub:
		return TrackSub, true
	case TrackDub:
		return TrackDub, true
	case TrackRaw:
		return TrackRaw, true
	case TrackMixed:
		return TrackMixed, true
	}
	return "", false
}

// HosterNames are the only server names the site is known to list.
// Anything else is dropped during directory parsing.
var HosterNames = []string{"HD-1", "HD-2", "HD-3", "StreamTape"}

// KnownHoster reports whether name is one of the recognized hosters.
func KnownHoster(name string) bool {
	for _, h := range HosterNames {
		if h == name {
			return true
		}
	}
	return false
}

// Server identifies one playback backend for one track type.
// The ID is only meaningful relative to the episode-servers query
// that produced it and must never be reused across episodes.
type Server struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Type TrackType `json:"type"`
}

// ServerMap groups an episode's servers by track type bucket.
type ServerMap map[TrackType][]Server

// Subtitle is one caption track bundled with a stream.
type Subtitle struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// QualityVariant is one entry of an HLS master playlist.
type QualityVariant struct {
	Resolution string `json:"resolution"` // "WIDTHxHEIGHT", "Unknown" or "Auto"
	URL        string `json:"url"`
}

// Stream is the final externally consumed unit. Playback requires
// sending "Referer: <Referer>" with the stream URL request.
type Stream struct {
	Quality   string     `json:"quality"` // "<hoster> - <resolution> - <type>"
	URL       string     `json:"url"`
	Subtitles []Subtitle `json:"subtitles"`
	Referer   string     `json:"referer"`
}

// SearchResult is one anime card from a search or listing page.
type SearchResult struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail"`
}

// Page is one page of listing results.
type Page struct {
	Results     []SearchResult `json:"results"`
	HasNextPage bool           `json:"has_next_page"`
	Page        int            `json:"page"`
}

// AnimeDetail is the metadata scraped from an anime's info page.
type AnimeDetail struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	JapaneseTitle string `json:"japanese_title"`
	Thumbnail     string `json:"thumbnail"`
	Status        string `json:"status"` // Ongoing, Completed or Unknown
	Studios       string `json:"studios"`
	Genres        string `json:"genres"`
	Description   string `json:"description"`
	URL           string `json:"url"`
}

// Episode is one entry of an anime's episode list.
type Episode struct {
	ID     string  `json:"id"`
	Number float64 `json:"number"` // fractional numbers (1.5) occur
	Title  string  `json:"title"`
	Filler bool    `json:"is_filler"`
	URL    string  `json:"url"`
}

// HistoryEntry is one row of the watch-progress store.
type HistoryEntry struct {
	AnimeID   string
	Title     string
	EpisodeID string
	Episode   float64
	Position  float64 // seconds
	Duration  float64 // seconds
}
