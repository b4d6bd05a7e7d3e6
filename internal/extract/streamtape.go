package extract

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"hibiki/internal/httputil"
	"hibiki/internal/media"
)

// streamtapeBase is the canonical embed form; other StreamTape URL shapes
// are rebuilt onto it from their video id.
const streamtapeBase = "https://streamtape.com/e/"

// robotlinkMarker identifies the inline script carrying the obfuscated URL.
const robotlinkMarker = "document.getElementById('robotlink')"

// The playable URL is split in two: a single-quoted string assigned to the
// element's innerHTML, and a second single-quoted string prefixed with "xcd"
// concatenated onto it.
var (
	robotlinkPart1Re = regexp.MustCompile(`innerHTML\s*=\s*'([^']+)'`)
	robotlinkPart2Re = regexp.MustCompile(`\+\s*\('xcd([^']+)'\)`)
)

// StreamTape resolves StreamTape embed URLs into a single playable stream.
// StreamTape exposes one rendition only; there is no playlist expansion.
type StreamTape struct {
	client *http.Client
	base   string
}

// NewStreamTape creates a StreamTape resolver with its own long-lived client.
func NewStreamTape() *StreamTape {
	return &StreamTape{
		client: httputil.NewClient(),
		base:   streamtapeBase,
	}
}

// Extract resolves an embed URL into exactly one stream carrying the
// supplied quality label and subtitle list. Pattern misses are typed with
// media.ErrExtraction so callers can degrade them silently.
func (s *StreamTape) Extract(embedURL, quality string, subtitles []media.Subtitle) (*media.Stream, error) {
	pageURL, err := s.normalize(embedURL)
	if err != nil {
		return nil, err
	}

	resp, err := httputil.Get(s.client, pageURL, "")
	if err != nil {
		return nil, fmt.Errorf("%w: fetching embed page: %v", media.ErrExtraction, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: embed page returned status %d", media.ErrExtraction, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing embed page: %v", media.ErrExtraction, err)
	}

	streamURL, err := reassembleRobotlink(doc)
	if err != nil {
		return nil, err
	}

	return &media.Stream{
		Quality:   quality,
		URL:       streamURL,
		Subtitles: subtitles,
		Referer:   strings.TrimSuffix(s.base, "e/"),
	}, nil
}

// normalize rewrites any StreamTape URL shape onto the canonical embed form.
// Non-canonical URLs carry the video id as their fifth /-delimited segment.
func (s *StreamTape) normalize(embedURL string) (string, error) {
	if strings.HasPrefix(embedURL, s.base) {
		return embedURL, nil
	}

	parts := strings.Split(embedURL, "/")
	if len(parts) < 5 {
		return "", fmt.Errorf("%w: no video id in StreamTape URL %q", media.ErrExtraction, embedURL)
	}

	return s.base + parts[4], nil
}

// reassembleRobotlink finds the inline script referencing the robotlink
// element and rebuilds the playable URL from its two obfuscated halves.
// The second half is optional.
func reassembleRobotlink(doc *goquery.Document) (string, error) {
	var script string
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		body := sel.Text()
		if strings.Contains(body, robotlinkMarker) {
			script = body
			return false
		}
		return true
	})

	if script == "" {
		return "", fmt.Errorf("%w: robotlink script not found", media.ErrExtraction)
	}

	part1 := robotlinkPart1Re.FindStringSubmatch(script)
	if part1 == nil {
		return "", fmt.Errorf("%w: robotlink assignment not found", media.ErrExtraction)
	}

	part2 := ""
	if m := robotlinkPart2Re.FindStringSubmatch(script); m != nil {
		part2 = m[1]
	}

	return "https:" + part1[1] + part2, nil
}
