package hianime

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"hibiki/internal/media"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)
	return &Client{base: srv.URL, client: srv.Client()}, srv
}

func TestServers(t *testing.T) {
	fragment := `
	<div class="servers-sub"><div class="item" data-id="77" data-type="sub">HD-1</div></div>
	<div class="servers-dub"><div class="item" data-id="80" data-type="dub">StreamTape</div></div>`

	var gotReferer, gotXRW string
	c, srv := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ajax/v2/episode/servers" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("episodeId") != "9231" {
			t.Errorf("episodeId = %q, want 9231", r.URL.Query().Get("episodeId"))
		}
		gotReferer = r.Header.Get("Referer")
		gotXRW = r.Header.Get("X-Requested-With")
		json.NewEncoder(w).Encode(map[string]string{"html": fragment})
	}))

	servers, err := c.Servers("9231")
	if err != nil {
		t.Fatalf("Servers() error = %v", err)
	}

	if len(servers[media.TrackSub]) != 1 || servers[media.TrackSub][0].ID != "77" {
		t.Errorf("sub bucket = %+v", servers[media.TrackSub])
	}
	if len(servers[media.TrackDub]) != 1 || servers[media.TrackDub][0].Name != "StreamTape" {
		t.Errorf("dub bucket = %+v", servers[media.TrackDub])
	}

	if gotReferer != srv.URL+"/watch?ep=9231" {
		t.Errorf("referer = %q, want the watch page URL", gotReferer)
	}
	if gotXRW != "XMLHttpRequest" {
		t.Errorf("X-Requested-With = %q", gotXRW)
	}
}

func TestServersEmptyEpisode(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"html": "<div></div>"})
	}))

	servers, err := c.Servers("9231")
	if err != nil {
		t.Fatalf("Servers() error = %v, want empty mapping without error", err)
	}
	for typ, bucket := range servers {
		if len(bucket) != 0 {
			t.Errorf("bucket %s = %+v, want empty", typ, bucket)
		}
	}
}

func TestServersUpstreamFailure(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := c.Servers("9231")
	if !errors.Is(err, media.ErrUpstream) {
		t.Fatalf("Servers() error = %v, want media.ErrUpstream", err)
	}
}

func TestServersInvalidID(t *testing.T) {
	c := New(DefaultDomain)
	_, err := c.Servers("../../etc")
	if !errors.Is(err, media.ErrInvalidInput) {
		t.Fatalf("Servers() error = %v, want media.ErrInvalidInput", err)
	}
}

func TestSourceLink(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ajax/v2/episode/sources" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("id") != "77" {
			t.Errorf("id = %q, want 77", r.URL.Query().Get("id"))
		}
		json.NewEncoder(w).Encode(map[string]string{
			"type": "iframe",
			"link": "https://megacloud.blog/embed-2/v3/e-1/abc?k=1",
		})
	}))

	link, err := c.SourceLink("77", c.WatchReferer("9231"))
	if err != nil {
		t.Fatalf("SourceLink() error = %v", err)
	}
	if link != "https://megacloud.blog/embed-2/v3/e-1/abc?k=1" {
		t.Errorf("link = %q", link)
	}
}

func TestEpisodes(t *testing.T) {
	fragment := `<a class="ep-item" data-number="1" data-id="901" title="First" href="/watch/boruto-123?ep=901"></a>`

	var gotPath, gotReferer string
	c, srv := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotReferer = r.Header.Get("Referer")
		json.NewEncoder(w).Encode(map[string]string{"html": fragment})
	}))

	eps, err := c.Episodes("boruto-123")
	if err != nil {
		t.Fatalf("Episodes() error = %v", err)
	}
	if len(eps) != 1 || eps[0].ID != "901" {
		t.Fatalf("episodes = %+v", eps)
	}

	if gotPath != "/ajax/v2/episode/list/123" {
		t.Errorf("path = %q, want the numeric tail endpoint", gotPath)
	}
	if gotReferer != srv.URL+"/boruto-123" {
		t.Errorf("referer = %q, want the anime page", gotReferer)
	}
}

func TestEpisodesNonNumericTail(t *testing.T) {
	c := New(DefaultDomain)
	_, err := c.Episodes("boruto")
	if !errors.Is(err, media.ErrInvalidInput) {
		t.Fatalf("Episodes() error = %v, want media.ErrInvalidInput", err)
	}
}

func TestSearch(t *testing.T) {
	page := `
	<div class="flw-item">
		<div class="film-detail"><a href="/boruto-123" data-jname="BORUTO">Boruto</a></div>
	</div>
	<ul><li class="page-item"><a title="Next" href="?page=2"></a></li></ul>`

	var gotQuery string
	c, srv := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("keyword")
		w.Write([]byte(page))
	}))

	res, err := c.Search("boruto uzumaki", 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if gotQuery != "boruto uzumaki" {
		t.Errorf("keyword = %q", gotQuery)
	}
	if len(res.Results) != 1 || res.Results[0].ID != "boruto-123" {
		t.Fatalf("results = %+v", res.Results)
	}
	if res.Results[0].URL != srv.URL+"/boruto-123" {
		t.Errorf("result URL = %q, want absolute", res.Results[0].URL)
	}
	if !res.HasNextPage {
		t.Error("HasNextPage = false, want true")
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	c := New(DefaultDomain)
	_, err := c.Search("  ", 1)
	if !errors.Is(err, media.ErrInvalidInput) {
		t.Fatalf("Search() error = %v, want media.ErrInvalidInput", err)
	}
}
