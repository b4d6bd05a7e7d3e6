// Package player launches external media players on resolved streams.
// All invocations use exec.Command with explicit argument slices, nothing
// from remote data passes through a shell.
package player

import (
	"hibiki/internal/media"
)

// Player is the interface for media player implementations.
type Player interface {
	// Play starts playback of a stream. Returns the last playback position.
	Play(stream *media.Stream, title string, startPos float64, subFile string) (float64, error)

	// Name returns the player name.
	Name() string

	// Available checks if the player binary exists in PATH.
	Available() bool
}

// New creates a player by name.
func New(name string) Player {
	switch name {
	case "mpv":
		return &MPV{}
	case "vlc":
		return &VLC{}
	case "iina", "celluloid":
		return &Generic{name: name}
	default:
		return &MPV{}
	}
}
