// Package hianime implements the site client: listing scrapers, the
// episode server directory and the opaque source-link lookup.
package hianime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"hibiki/internal/httputil"
	"hibiki/internal/media"
)

// DefaultDomain is the primary site domain; mirrors exist but are not probed.
const DefaultDomain = "hianime.to"

// Client talks to the anime site. One long-lived HTTP client is reused
// across all calls.
type Client struct {
	base   string // e.g. "https://hianime.to"
	client *http.Client
}

// New creates a site client for the given domain (e.g. "hianime.to").
func New(domain string) *Client {
	return &Client{
		base:   "https://" + domain,
		client: httputil.NewClient(),
	}
}

// Search returns anime matching a keyword query.
func (c *Client) Search(query string, page int) (*media.Page, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty search query", media.ErrInvalidInput)
	}
	u := fmt.Sprintf("%s/search?keyword=%s&page=%d", c.base, url.QueryEscape(query), normalizePage(page))
	return c.listing(u, page)
}

// Popular returns the most-popular listing.
func (c *Client) Popular(page int) (*media.Page, error) {
	return c.listing(fmt.Sprintf("%s/most-popular?page=%d", c.base, normalizePage(page)), page)
}

// Latest returns the recently-updated listing.
func (c *Client) Latest(page int) (*media.Page, error) {
	return c.listing(fmt.Sprintf("%s/recently-updated?page=%d", c.base, normalizePage(page)), page)
}

// Filter returns the filter listing for the given parameter set
// (genre, season, status and friends, passed through as query params).
func (c *Client) Filter(page int, params map[string]string) (*media.Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(normalizePage(page)))
	for k, v := range params {
		q.Set(k, v)
	}
	return c.listing(c.base+"/filter?"+q.Encode(), page)
}

func (c *Client) listing(pageURL string, page int) (*media.Page, error) {
	doc, err := c.fetchDocument(pageURL, "")
	if err != nil {
		return nil, err
	}

	results := parseCards(doc)
	for i := range results {
		if results[i].URL != "" && !strings.HasPrefix(results[i].URL, "http") {
			results[i].URL = c.base + results[i].URL
		}
	}

	return &media.Page{
		Results:     results,
		HasNextPage: hasNextPage(doc),
		Page:        normalizePage(page),
	}, nil
}

// Info returns the metadata scraped from an anime's info page.
func (c *Client) Info(animeID string) (*media.AnimeDetail, error) {
	if err := httputil.ValidateID(animeID); err != nil {
		return nil, fmt.Errorf("%w: %v", media.ErrInvalidInput, err)
	}

	pageURL := c.base + "/" + animeID
	doc, err := c.fetchDocument(pageURL, "")
	if err != nil {
		return nil, err
	}

	detail := parseDetail(doc, animeID, pageURL)
	return &detail, nil
}

// Episodes returns an anime's episode list, ascending by episode number.
func (c *Client) Episodes(animeID string) ([]media.Episode, error) {
	if err := httputil.ValidateID(animeID); err != nil {
		return nil, fmt.Errorf("%w: %v", media.ErrInvalidInput, err)
	}

	// The list endpoint is keyed by the numeric tail of the anime id
	// ("boruto-123" -> "123").
	parts := strings.Split(animeID, "-")
	numeric := parts[len(parts)-1]
	if err := httputil.ValidateNumericID(numeric); err != nil {
		return nil, fmt.Errorf("%w: anime id has no numeric tail: %v", media.ErrInvalidInput, err)
	}

	u := c.base + "/ajax/v2/episode/list/" + numeric
	doc, err := c.fetchFragment(u, c.base+"/"+animeID)
	if err != nil {
		return nil, err
	}

	return parseEpisodes(doc), nil
}

// Servers returns the hosters available for an episode, bucketed by track
// type. An episode with no servers yields an empty mapping, not an error.
func (c *Client) Servers(episodeID string) (media.ServerMap, error) {
	if err := httputil.ValidateID(episodeID); err != nil {
		return nil, fmt.Errorf("%w: %v", media.ErrInvalidInput, err)
	}

	u := c.base + "/ajax/v2/episode/servers?episodeId=" + url.QueryEscape(episodeID)
	doc, err := c.fetchFragment(u, c.WatchReferer(episodeID))
	if err != nil {
		return nil, err
	}

	return parseServers(doc), nil
}

// SourceLink fetches a hoster's opaque embed link by server id.
func (c *Client) SourceLink(serverID, referer string) (string, error) {
	if err := httputil.ValidateID(serverID); err != nil {
		return "", fmt.Errorf("%w: %v", media.ErrInvalidInput, err)
	}

	u := c.base + "/ajax/v2/episode/sources?id=" + url.QueryEscape(serverID)
	body, err := httputil.GetAJAX(c.client, u, referer)
	if err != nil {
		return "", fmt.Errorf("%w: fetching source link: %v", media.ErrUpstream, err)
	}

	var resp struct {
		Link string `json:"link"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: parsing source link response: %v", media.ErrUpstream, err)
	}

	return resp.Link, nil
}

// WatchReferer is the watch-page URL the AJAX endpoints require as referer.
func (c *Client) WatchReferer(episodeID string) string {
	return c.base + "/watch?ep=" + url.QueryEscape(episodeID)
}

// fetchDocument fetches a full page with browser headers.
func (c *Client) fetchDocument(pageURL, referer string) (*goquery.Document, error) {
	resp, err := httputil.Get(c.client, pageURL, referer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", media.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: page %s", media.ErrNotFound, pageURL)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d for %s", media.ErrUpstream, resp.StatusCode, pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing HTML: %v", media.ErrUpstream, err)
	}

	return doc, nil
}

// fetchFragment fetches an AJAX endpoint whose JSON body embeds an HTML
// fragment in an "html" field, and parses that fragment.
func (c *Client) fetchFragment(ajaxURL, referer string) (*goquery.Document, error) {
	body, err := httputil.GetAJAX(c.client, ajaxURL, referer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", media.ErrUpstream, err)
	}

	var resp struct {
		HTML string `json:"html"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: parsing AJAX response: %v", media.ErrUpstream, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.HTML))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing HTML fragment: %v", media.ErrUpstream, err)
	}

	return doc, nil
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
