package resolve

import (
	"errors"
	"fmt"
	"testing"

	"hibiki/internal/media"
)

type fakeSite struct {
	servers    media.ServerMap
	serversErr error
	links      map[string]string
	episodes   []media.Episode

	linkRequests []string
}

func (f *fakeSite) Servers(episodeID string) (media.ServerMap, error) {
	return f.servers, f.serversErr
}

func (f *fakeSite) SourceLink(serverID, referer string) (string, error) {
	f.linkRequests = append(f.linkRequests, serverID)
	return f.links[serverID], nil
}

func (f *fakeSite) WatchReferer(episodeID string) string {
	return "https://hianime.to/watch?ep=" + episodeID
}

func (f *fakeSite) Episodes(animeID string) ([]media.Episode, error) {
	return f.episodes, nil
}

type fakeMega struct {
	streams []media.Stream
	err     error

	gotURL  string
	gotType media.TrackType
	gotName string
}

func (f *fakeMega) Extract(embedURL string, trackType media.TrackType, hosterName string) ([]media.Stream, error) {
	f.gotURL, f.gotType, f.gotName = embedURL, trackType, hosterName
	return f.streams, f.err
}

type fakeTape struct {
	stream *media.Stream
	err    error

	gotQuality string
}

func (f *fakeTape) Extract(embedURL, quality string, subtitles []media.Subtitle) (*media.Stream, error) {
	f.gotQuality = quality
	return f.stream, f.err
}

func directory() media.ServerMap {
	return media.ServerMap{
		media.TrackSub: {
			{ID: "77", Name: "HD-1", Type: media.TrackSub},
			{ID: "78", Name: "StreamTape", Type: media.TrackSub},
		},
		media.TrackDub:   {},
		media.TrackRaw:   {},
		media.TrackMixed: {{ID: "81", Name: "HD-2", Type: media.TrackMixed}},
	}
}

func TestResolveVideoMegaCloud(t *testing.T) {
	site := &fakeSite{
		servers: directory(),
		links:   map[string]string{"77": "https://megacloud.blog/embed-2/v3/e-1/abc"},
	}
	mega := &fakeMega{streams: []media.Stream{{Quality: "HD-1 - 1280x720 - sub", URL: "https://cdn/720.m3u8"}}}
	r := &Resolver{site: site, mega: mega, tape: &fakeTape{}}

	res, err := r.ResolveVideo("9231", "HD-1", media.TrackSub)
	if err != nil {
		t.Fatalf("ResolveVideo() error = %v", err)
	}

	if len(res.Streams) != 1 || res.Streams[0].Quality != "HD-1 - 1280x720 - sub" {
		t.Errorf("streams = %+v", res.Streams)
	}
	if res.Server != "HD-1" || res.Type != media.TrackSub {
		t.Errorf("server/type = %q/%q", res.Server, res.Type)
	}
	if mega.gotURL != site.links["77"] || mega.gotName != "HD-1" {
		t.Errorf("extractor called with url %q name %q", mega.gotURL, mega.gotName)
	}
	if len(site.linkRequests) != 1 || site.linkRequests[0] != "77" {
		t.Errorf("source link requests = %v, want [77]", site.linkRequests)
	}
}

func TestResolveVideoCaseInsensitiveName(t *testing.T) {
	site := &fakeSite{servers: directory(), links: map[string]string{"77": "https://embed/e-1/x"}}
	mega := &fakeMega{}
	r := &Resolver{site: site, mega: mega, tape: &fakeTape{}}

	res, err := r.ResolveVideo("9231", "hd-1", media.TrackSub)
	if err != nil {
		t.Fatalf("ResolveVideo(hd-1) error = %v", err)
	}
	if res.Server != "HD-1" {
		t.Errorf("server = %q, want canonical HD-1", res.Server)
	}
}

func TestResolveVideoFallbackBucket(t *testing.T) {
	// HD-2 exists only under mixed; a dub request must still resolve it and
	// report mixed as the effective type.
	site := &fakeSite{servers: directory(), links: map[string]string{"81": "https://embed/e-1/y"}}
	mega := &fakeMega{}
	r := &Resolver{site: site, mega: mega, tape: &fakeTape{}}

	res, err := r.ResolveVideo("9231", "HD-2", media.TrackDub)
	if err != nil {
		t.Fatalf("ResolveVideo() error = %v", err)
	}
	if res.Type != media.TrackMixed {
		t.Errorf("effective type = %q, want mixed", res.Type)
	}
	if mega.gotType != media.TrackMixed {
		t.Errorf("extractor type = %q, want mixed", mega.gotType)
	}
}

func TestResolveVideoServerNotFound(t *testing.T) {
	site := &fakeSite{servers: directory()}
	r := &Resolver{site: site, mega: &fakeMega{}, tape: &fakeTape{}}

	_, err := r.ResolveVideo("9231", "HD-3", media.TrackSub)

	var nf *media.ServerNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want *media.ServerNotFoundError", err)
	}
	if !errors.Is(err, media.ErrNotFound) {
		t.Error("ServerNotFoundError does not unwrap to media.ErrNotFound")
	}
	if len(nf.Servers[media.TrackSub]) != 2 {
		t.Errorf("carried directory = %+v, want the full mapping", nf.Servers)
	}
}

func TestResolveVideoMissingSourceLink(t *testing.T) {
	site := &fakeSite{servers: directory(), links: map[string]string{}}
	r := &Resolver{site: site, mega: &fakeMega{}, tape: &fakeTape{}}

	_, err := r.ResolveVideo("9231", "HD-1", media.TrackSub)
	if !errors.Is(err, media.ErrNotFound) {
		t.Fatalf("error = %v, want media.ErrNotFound", err)
	}
}

func TestResolveVideoStreamTape(t *testing.T) {
	site := &fakeSite{servers: directory(), links: map[string]string{"78": "https://streamtape.com/e/abc"}}
	tape := &fakeTape{stream: &media.Stream{Quality: "Streamtape - sub", URL: "https://stape/get_video"}}
	r := &Resolver{site: site, mega: &fakeMega{}, tape: tape}

	res, err := r.ResolveVideo("9231", "StreamTape", media.TrackSub)
	if err != nil {
		t.Fatalf("ResolveVideo() error = %v", err)
	}
	if len(res.Streams) != 1 || res.Streams[0].URL != "https://stape/get_video" {
		t.Errorf("streams = %+v", res.Streams)
	}
	if tape.gotQuality != "Streamtape - sub" {
		t.Errorf("quality label = %q", tape.gotQuality)
	}
}

func TestResolveVideoExtractionDegradesToEmpty(t *testing.T) {
	site := &fakeSite{servers: directory(), links: map[string]string{"77": "https://embed/e-1/x"}}
	mega := &fakeMega{err: fmt.Errorf("%w: nonce missing", media.ErrExtraction)}

	var logged bool
	r := &Resolver{site: site, mega: mega, tape: &fakeTape{}}
	r.Logf = func(format string, args ...any) { logged = true }

	res, err := r.ResolveVideo("9231", "HD-1", media.TrackSub)
	if err != nil {
		t.Fatalf("ResolveVideo() error = %v, extraction failures must not propagate", err)
	}
	if len(res.Streams) != 0 {
		t.Errorf("streams = %+v, want empty", res.Streams)
	}
	if !logged {
		t.Error("degraded extraction was not logged")
	}
}

func TestResolveVideoUpstreamFailurePropagates(t *testing.T) {
	site := &fakeSite{serversErr: fmt.Errorf("%w: timeout", media.ErrUpstream)}
	r := &Resolver{site: site, mega: &fakeMega{}, tape: &fakeTape{}}

	_, err := r.ResolveVideo("9231", "HD-1", media.TrackSub)
	if !errors.Is(err, media.ErrUpstream) {
		t.Fatalf("error = %v, want media.ErrUpstream", err)
	}
}

func TestStreamFindsEpisodeByNumber(t *testing.T) {
	site := &fakeSite{
		servers:  directory(),
		links:    map[string]string{"77": "https://embed/e-1/x"},
		episodes: []media.Episode{{ID: "901", Number: 1}, {ID: "915", Number: 1.5}, {ID: "902", Number: 2}},
	}
	mega := &fakeMega{streams: []media.Stream{{Quality: "HD-1 - Auto - sub"}}}
	r := &Resolver{site: site, mega: mega, tape: &fakeTape{}}

	res, err := r.Stream("boruto-123", 2, "HD-1", media.TrackSub)
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if res.EpisodeID != "902" {
		t.Errorf("episode id = %q, want 902", res.EpisodeID)
	}

	_, err = r.Stream("boruto-123", 7, "HD-1", media.TrackSub)
	if !errors.Is(err, media.ErrNotFound) {
		t.Fatalf("Stream(missing) error = %v, want media.ErrNotFound", err)
	}
}
