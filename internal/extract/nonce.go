package extract

import (
	"fmt"
	"regexp"

	"hibiki/internal/media"
)

// The sources API requires a per-session nonce hidden somewhere in the embed
// page body. Two shapes are known: a single 48-character token, or three
// 16-character tokens which concatenate in document order. Both patterns are
// kept here so a site-side change touches one unit.
var (
	nonce48Re = regexp.MustCompile(`\b[a-zA-Z0-9]{48}\b`)
	nonce16Re = regexp.MustCompile(`(?s)\b([a-zA-Z0-9]{16})\b.*?\b([a-zA-Z0-9]{16})\b.*?\b([a-zA-Z0-9]{16})\b`)
)

// extractNonce pulls the sources-API nonce out of embed page HTML.
func extractNonce(body string) (string, error) {
	if m := nonce48Re.FindString(body); m != "" {
		return m, nil
	}

	if m := nonce16Re.FindStringSubmatch(body); m != nil {
		return m[1] + m[2] + m[3], nil
	}

	return "", fmt.Errorf("%w: no nonce in embed page", media.ErrExtraction)
}
