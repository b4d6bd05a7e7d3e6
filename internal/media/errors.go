package media

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput indicates a malformed id, server name or track type.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates the episode, server or hoster is genuinely absent.
	ErrNotFound = errors.New("not found")

	// ErrUpstream indicates a transport failure or non-2xx from the origin site.
	ErrUpstream = errors.New("upstream unavailable")

	// ErrExtraction indicates a failed nonce/script/pattern match, key fetch
	// or decryption. Extraction failures are expected when site markup
	// changes; resolvers surface them typed and the orchestrator degrades
	// them to an empty stream list.
	ErrExtraction = errors.New("extraction failed")
)

// ServerNotFoundError is returned when the requested server name matches no
// hoster in any bucket. It carries the full directory so callers can present
// the alternatives.
type ServerNotFoundError struct {
	Server  string
	Type    TrackType
	Servers ServerMap
}

func (e *ServerNotFoundError) Error() string {
	return fmt.Sprintf("server %q not found for type %q", e.Server, e.Type)
}

func (e *ServerNotFoundError) Unwrap() error { return ErrNotFound }
