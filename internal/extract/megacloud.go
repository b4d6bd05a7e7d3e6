package extract

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"hibiki/internal/hls"
	"hibiki/internal/httputil"
	"hibiki/internal/media"
)

const (
	// sourcesPath is the same-host sources endpoint; the video id and nonce
	// are appended as query parameters.
	sourcesPath = "/embed-2/v3/e-1/getSources?id="

	// sourcesSplitter separates the embed path from the video id.
	sourcesSplitter = "/e-1/"

	defaultDecryptURL = "https://megacloud-api.vercel.app/api/decrypt"
	defaultKeysURL    = "https://raw.githubusercontent.com/yogesh-hacker/MegacloudKeys/refs/heads/main/keys.json"
)

var decryptedFileRe = regexp.MustCompile(`"file":"(.*?)"`)

// MegaCloud resolves MegaCloud embed URLs (servers HD-1, HD-2, HD-3) into
// playable quality variants. Encrypted payloads are handed to an external
// decryption service; there is no local fallback decryption.
type MegaCloud struct {
	client     *http.Client
	decryptURL string
	keysURL    string
}

// NewMegaCloud creates a MegaCloud resolver with its own long-lived client.
func NewMegaCloud() *MegaCloud {
	return &MegaCloud{
		client:     httputil.NewClient(),
		decryptURL: defaultDecryptURL,
		keysURL:    defaultKeysURL,
	}
}

// sourcesResponse is the JSON body of the getSources endpoint. A response
// that omits the encrypted flag is treated as encrypted.
type sourcesResponse struct {
	Sources   []sourceItem `json:"sources"`
	Tracks    []track      `json:"tracks"`
	Encrypted bool         `json:"encrypted"`
}

type sourceItem struct {
	File string `json:"file"`
	Type string `json:"type"`
}

type track struct {
	File  string `json:"file"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
}

// Extract resolves an embed URL into zero or more playable streams.
// Every returned stream carries the embed host root as its required referer.
// Failures are typed with media.ErrExtraction; the orchestrator degrades
// them to an empty result.
func (m *MegaCloud) Extract(embedURL string, trackType media.TrackType, hosterName string) ([]media.Stream, error) {
	videoID, host, err := splitEmbedURL(embedURL)
	if err != nil {
		return nil, err
	}

	referer := "https://" + host + "/"

	// The nonce lives in the player page HTML, not behind the API.
	embedHTML, err := m.fetchEmbed(embedURL, referer)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching embed page: %v", media.ErrExtraction, err)
	}

	nonce, err := extractNonce(embedHTML)
	if err != nil {
		return nil, err
	}

	sourcesURL := "https://" + host + sourcesPath + url.QueryEscape(videoID) + "&_k=" + url.QueryEscape(nonce)
	body, err := m.fetchEmbed(sourcesURL, referer)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching sources: %v", media.ErrExtraction, err)
	}

	resp := sourcesResponse{Encrypted: true}
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, fmt.Errorf("%w: parsing sources response: %v", media.ErrExtraction, err)
	}

	subtitles := captionTracks(resp.Tracks)

	// The decryption key is fetched at most once per resolution call and
	// shared across every encrypted item in the same response. It is never
	// cached across calls; the upstream key can rotate.
	var key string

	var streams []media.Stream
	for _, src := range resp.Sources {
		playable := src.File

		if resp.Encrypted && !strings.Contains(src.File, ".m3u8") {
			if key == "" {
				key, err = m.fetchKey()
				if err != nil {
					return nil, err
				}
			}
			playable, err = m.decrypt(src.File, nonce, key)
			if err != nil {
				return nil, err
			}
		}

		variants := hls.Variants(m.client, playable, host)
		for _, v := range variants {
			streams = append(streams, media.Stream{
				Quality:   fmt.Sprintf("%s - %s - %s", hosterName, v.Resolution, trackType),
				URL:       v.URL,
				Subtitles: subtitles,
				Referer:   referer,
			})
		}

		if len(variants) == 0 && playable != "" {
			streams = append(streams, media.Stream{
				Quality:   fmt.Sprintf("%s - Auto - %s", hosterName, trackType),
				URL:       playable,
				Subtitles: subtitles,
				Referer:   referer,
			})
		}
	}

	return streams, nil
}

// splitEmbedURL extracts the opaque video id and embed host from an embed URL.
// Example: https://megacloud.blog/embed-2/v3/e-1/AbCdEf?k=1 -> ("AbCdEf", "megacloud.blog")
func splitEmbedURL(embedURL string) (videoID, host string, err error) {
	if !strings.Contains(embedURL, sourcesSplitter) {
		return "", "", fmt.Errorf("%w: missing %q marker in embed URL %q", media.ErrExtraction, sourcesSplitter, embedURL)
	}

	idPart := embedURL[strings.LastIndex(embedURL, sourcesSplitter)+len(sourcesSplitter):]
	videoID = strings.SplitN(idPart, "?", 2)[0]
	if videoID == "" {
		return "", "", fmt.Errorf("%w: empty video id in embed URL %q", media.ErrExtraction, embedURL)
	}

	u, err := url.Parse(embedURL)
	if err != nil || u.Host == "" {
		return "", "", fmt.Errorf("%w: invalid embed host in %q", media.ErrExtraction, embedURL)
	}

	return videoID, u.Host, nil
}

// fetchEmbed performs a GET with the header set MegaCloud requires on both
// the player page and the sources endpoint.
func (m *MegaCloud) fetchEmbed(pageURL, referer string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", httputil.UserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Referer", referer)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	return string(body), nil
}

// fetchKey retrieves the current decryption secret from the key registry.
// Non-success status, an empty body or a missing field are all fatal for
// the resolution attempt.
func (m *MegaCloud) fetchKey() (string, error) {
	body, err := httputil.GetJSON(m.client, m.keysURL)
	if err != nil {
		return "", fmt.Errorf("%w: fetching key registry: %v", media.ErrExtraction, err)
	}
	if len(body) == 0 {
		return "", fmt.Errorf("%w: key registry returned empty body", media.ErrExtraction)
	}

	var keys map[string]string
	if err := json.Unmarshal(body, &keys); err != nil {
		return "", fmt.Errorf("%w: parsing key registry: %v", media.ErrExtraction, err)
	}

	key, ok := keys["mega"]
	if !ok || key == "" {
		return "", fmt.Errorf("%w: mega key not present in registry", media.ErrExtraction)
	}

	return key, nil
}

// decrypt hands an encrypted payload to the external decryption service and
// extracts the playable URL from its plain-text response.
func (m *MegaCloud) decrypt(encrypted, nonce, key string) (string, error) {
	decryptURL := m.decryptURL +
		"?encrypted_data=" + url.QueryEscape(encrypted) +
		"&nonce=" + url.QueryEscape(nonce) +
		"&secret=" + url.QueryEscape(key)

	resp, err := m.client.Get(decryptURL)
	if err != nil {
		return "", fmt.Errorf("%w: decrypt request: %v", media.ErrExtraction, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return "", fmt.Errorf("%w: reading decrypt response: %v", media.ErrExtraction, err)
	}

	match := decryptedFileRe.FindStringSubmatch(string(body))
	if match == nil {
		return "", fmt.Errorf("%w: no file URL in decrypted response", media.ErrExtraction)
	}

	return match[1], nil
}

// captionTracks filters the sources response's track list to caption entries.
func captionTracks(tracks []track) []media.Subtitle {
	var subs []media.Subtitle
	for _, t := range tracks {
		if t.Kind != "captions" || t.File == "" {
			continue
		}
		label := t.Label
		if label == "" {
			label = "Unknown"
		}
		subs = append(subs, media.Subtitle{URL: t.File, Label: label})
	}
	return subs
}
