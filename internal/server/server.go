// Package server exposes the site client and resolver as a JSON HTTP API,
// mapping the internal error taxonomy onto HTTP status codes.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"hibiki/internal/media"
	"hibiki/internal/resolve"
)

// Site is the slice of the hianime client the API serves.
type Site interface {
	Search(query string, page int) (*media.Page, error)
	Popular(page int) (*media.Page, error)
	Latest(page int) (*media.Page, error)
	Filter(page int, params map[string]string) (*media.Page, error)
	Info(animeID string) (*media.AnimeDetail, error)
	Episodes(animeID string) ([]media.Episode, error)
	Servers(episodeID string) (media.ServerMap, error)
}

// VideoResolver resolves (episode, server, type) into streams.
type VideoResolver interface {
	ResolveVideo(episodeID, server string, trackType media.TrackType) (*resolve.Result, error)
}

// Server is the HTTP façade over the core.
type Server struct {
	site     Site
	resolver VideoResolver
	logger   *log.Logger
}

// New creates the façade. A nil logger disables request logging.
func New(site Site, resolver VideoResolver, logger *log.Logger) *Server {
	return &Server{site: site, resolver: resolver, logger: logger}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /popular", s.handlePopular)
	mux.HandleFunc("GET /latest", s.handleLatest)
	mux.HandleFunc("GET /filter", s.handleFilter)
	mux.HandleFunc("GET /info/{id}", s.handleInfo)
	mux.HandleFunc("GET /episodes/{id}", s.handleEpisodes)
	mux.HandleFunc("GET /servers/{id}", s.handleServers)
	mux.HandleFunc("GET /watch/{id}", s.handleWatch)

	return s.logged(mux)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"api": "hibiki",
		"endpoints": []string{
			"GET /search?q=boruto&page=1",
			"GET /popular?page=1",
			"GET /latest?page=1",
			"GET /filter?genre=action&page=1",
			"GET /info/{anime_id}",
			"GET /episodes/{anime_id}",
			"GET /servers/{episode_id}",
			"GET /watch/{episode_id}?server=HD-1&type=sub",
		},
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusUnprocessableEntity, "missing required query parameter: q")
		return
	}

	page, ok := pageParam(w, r)
	if !ok {
		return
	}

	res, err := s.site.Search(query, page)
	if err != nil {
		s.writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePopular(w http.ResponseWriter, r *http.Request) {
	s.listing(w, r, s.site.Popular)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	s.listing(w, r, s.site.Latest)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParam(w, r)
	if !ok {
		return
	}

	// Everything except page passes through to the site's filter endpoint
	// (genre, season, status and friends).
	params := map[string]string{}
	for k, vs := range r.URL.Query() {
		if k == "page" || len(vs) == 0 {
			continue
		}
		params[k] = vs[0]
	}

	res, err := s.site.Filter(page, params)
	if err != nil {
		s.writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listing(w http.ResponseWriter, r *http.Request, fetch func(int) (*media.Page, error)) {
	page, ok := pageParam(w, r)
	if !ok {
		return
	}

	res, err := fetch(page)
	if err != nil {
		s.writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	detail, err := s.site.Info(r.PathValue("id"))
	if err != nil {
		s.writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	animeID := r.PathValue("id")
	episodes, err := s.site.Episodes(animeID)
	if err != nil {
		s.writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"anime_id":       animeID,
		"total_episodes": len(episodes),
		"episodes":       episodes,
	})
}

func (s *Server) handleServers(w http.ResponseWriter, r *http.Request) {
	episodeID := r.PathValue("id")
	servers, err := s.site.Servers(episodeID)
	if err != nil {
		s.writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"episode_id": episodeID,
		"servers":    servers,
	})
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	episodeID := r.PathValue("id")

	serverName := r.URL.Query().Get("server")
	if serverName == "" {
		serverName = "HD-1"
	}

	typeParam := r.URL.Query().Get("type")
	if typeParam == "" {
		typeParam = string(media.TrackSub)
	}
	trackType, ok := media.ParseTrackType(typeParam)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown track type: "+typeParam)
		return
	}

	result, err := s.resolver.ResolveVideo(episodeID, serverName, trackType)
	if err != nil {
		var nf *media.ServerNotFoundError
		if errors.As(err, &nf) {
			writeJSON(w, http.StatusNotFound, map[string]any{
				"error":             nf.Error(),
				"available_servers": nf.Servers,
			})
			return
		}
		s.writeTaxonomyError(w, err)
		return
	}

	// A resolver that produced nothing is a not-found to consumers.
	if len(result.Streams) == 0 {
		writeError(w, http.StatusNotFound, "no playable streams for episode "+episodeID)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// pageParam parses the optional page query parameter; malformed values are
// a 422 for the caller.
func pageParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, true
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		writeError(w, http.StatusUnprocessableEntity, "malformed query parameter: page")
		return 0, false
	}
	return page, true
}

// writeTaxonomyError maps the internal error taxonomy onto status codes:
// invalid input 400, not found 404, upstream 503, anything else 500.
func (s *Server) writeTaxonomyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, media.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, media.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, media.ErrUpstream):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.log("unclassified error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// logged wraps the mux with one-line request logging.
func (s *Server) logged(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		s.log("%s %s", r.Method, r.URL.Path)
	})
}

func (s *Server) log(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
