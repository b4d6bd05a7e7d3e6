// Package resolve orchestrates the video resolution pipeline: server
// directory lookup, source-link fetch and dispatch to the hoster-specific
// extractor.
package resolve

import (
	"fmt"
	"strings"

	"hibiki/internal/extract"
	"hibiki/internal/hianime"
	"hibiki/internal/media"
)

// FallbackOrder is the deterministic bucket probe order used when the
// requested track type bucket does not carry the server. Hosters are
// sometimes listed under an unexpected bucket; the first name match in this
// order wins and overrides the effective track type.
var FallbackOrder = []media.TrackType{media.TrackSub, media.TrackDub, media.TrackMixed, media.TrackRaw}

// site is the slice of the hianime client the resolver needs.
type site interface {
	Servers(episodeID string) (media.ServerMap, error)
	SourceLink(serverID, referer string) (string, error)
	WatchReferer(episodeID string) string
	Episodes(animeID string) ([]media.Episode, error)
}

type megaExtractor interface {
	Extract(embedURL string, trackType media.TrackType, hosterName string) ([]media.Stream, error)
}

type tapeExtractor interface {
	Extract(embedURL, quality string, subtitles []media.Subtitle) (*media.Stream, error)
}

// Resolver turns (episode, server, type) into playable streams.
type Resolver struct {
	site site
	mega megaExtractor
	tape tapeExtractor

	// Logf, when set, receives degraded-extraction notices. Extraction
	// failures are expected and never escalate past a log line.
	Logf func(format string, args ...any)
}

// New creates a resolver backed by the given site client.
func New(c *hianime.Client) *Resolver {
	return &Resolver{
		site: c,
		mega: extract.NewMegaCloud(),
		tape: extract.NewStreamTape(),
	}
}

// Result is the assembled outcome of one resolution.
type Result struct {
	EpisodeID  string          `json:"episode_id"`
	Server     string          `json:"server"`
	Type       media.TrackType `json:"type"`
	SourceLink string          `json:"source_link"`
	Streams    []media.Stream  `json:"streams"`
}

// ResolveVideo resolves an episode's streams from a named server.
// A resolver that produces no streams yields an empty list, not an error;
// callers decide whether zero streams is a not-found condition.
func (r *Resolver) ResolveVideo(episodeID, server string, trackType media.TrackType) (*Result, error) {
	servers, err := r.site.Servers(episodeID)
	if err != nil {
		return nil, err
	}

	target, effectiveType, ok := findServer(servers, server, trackType)
	if !ok {
		return nil, &media.ServerNotFoundError{Server: server, Type: trackType, Servers: servers}
	}

	link, err := r.site.SourceLink(target.ID, r.site.WatchReferer(episodeID))
	if err != nil {
		return nil, err
	}
	if link == "" {
		return nil, fmt.Errorf("%w: no source link for server %s", media.ErrNotFound, target.Name)
	}

	result := &Result{
		EpisodeID:  episodeID,
		Server:     target.Name,
		Type:       effectiveType,
		SourceLink: link,
		Streams:    []media.Stream{},
	}

	switch target.Name {
	case "StreamTape":
		stream, err := r.tape.Extract(link, "Streamtape - "+string(effectiveType), nil)
		if err != nil {
			r.logf("streamtape extraction degraded: %v", err)
		} else if stream != nil {
			result.Streams = []media.Stream{*stream}
		}
	default:
		// HD-1, HD-2, HD-3 are all MegaCloud-backed.
		streams, err := r.mega.Extract(link, effectiveType, target.Name)
		if err != nil {
			r.logf("megacloud extraction degraded: %v", err)
		} else {
			result.Streams = streams
		}
	}

	if result.Streams == nil {
		result.Streams = []media.Stream{}
	}

	return result, nil
}

// Stream is a convenience wrapper resolving by anime id and whole episode
// number instead of episode id.
func (r *Resolver) Stream(animeID string, episodeNum int, server string, trackType media.TrackType) (*Result, error) {
	episodes, err := r.site.Episodes(animeID)
	if err != nil {
		return nil, err
	}

	for _, ep := range episodes {
		if int(ep.Number) == episodeNum && ep.Number == float64(int(ep.Number)) {
			return r.ResolveVideo(ep.ID, server, trackType)
		}
	}

	return nil, fmt.Errorf("%w: episode %d of %s", media.ErrNotFound, episodeNum, animeID)
}

// findServer looks the name up in the requested bucket first, then probes
// the remaining buckets in FallbackOrder. Matching is case-insensitive; the
// returned track type is the bucket the match was found in.
func findServer(servers media.ServerMap, name string, trackType media.TrackType) (media.Server, media.TrackType, bool) {
	if s, ok := matchIn(servers[trackType], name); ok {
		return s, trackType, true
	}

	for _, typ := range FallbackOrder {
		if typ == trackType {
			continue
		}
		if s, ok := matchIn(servers[typ], name); ok {
			return s, typ, true
		}
	}

	return media.Server{}, "", false
}

func matchIn(bucket []media.Server, name string) (media.Server, bool) {
	for _, s := range bucket {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return media.Server{}, false
}

func (r *Resolver) logf(format string, args ...any) {
	if r.Logf != nil {
		r.Logf(format, args...)
	}
}
