// Package hls expands an HLS master playlist into its quality variants.
package hls

import (
	"net/http"
	"regexp"
	"strings"

	"hibiki/internal/httputil"
	"hibiki/internal/media"
)

// streamInfMarker introduces one variant; the next non-comment line is its URL.
const streamInfMarker = "#EXT-X-STREAM-INF"

var resolutionRe = regexp.MustCompile(`RESOLUTION=(\d+x\d+)`)

// Variants fetches a master playlist and returns its quality variants in
// source order. Any transport or parse failure yields an empty slice; the
// caller falls back to a single Auto-quality stream on the base URL.
func Variants(client *http.Client, playlistURL, refererHost string) []media.QualityVariant {
	if playlistURL == "" {
		return nil
	}

	body, err := httputil.GetString(client, playlistURL, "https://"+refererHost+"/")
	if err != nil {
		return nil
	}

	return Parse(body, playlistURL)
}

// Parse scans playlist text for stream-info lines. Each is paired with the
// next non-comment, non-blank line as its URL; relative URLs are resolved
// against the playlist's own base path.
func Parse(playlist, playlistURL string) []media.QualityVariant {
	base := playlistURL
	if idx := strings.LastIndex(base, "/"); idx != -1 {
		base = base[:idx]
	}

	var variants []media.QualityVariant

	lines := strings.Split(strings.TrimSpace(playlist), "\n")
	for i, line := range lines {
		if !strings.HasPrefix(line, streamInfMarker) {
			continue
		}

		resolution := "Unknown"
		if m := resolutionRe.FindStringSubmatch(line); m != nil {
			resolution = m[1]
		}

		if i+1 >= len(lines) {
			continue
		}
		urlLine := strings.TrimSpace(lines[i+1])
		if urlLine == "" || strings.HasPrefix(urlLine, "#") {
			continue
		}

		variantURL := urlLine
		if !strings.HasPrefix(urlLine, "http") {
			variantURL = base + "/" + urlLine
		}

		variants = append(variants, media.QualityVariant{
			Resolution: resolution,
			URL:        variantURL,
		})
	}

	return variants
}
