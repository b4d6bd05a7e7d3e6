package player

import (
	"bufio"
	"net"
	"path/filepath"
	"testing"
)

// Plays mpv's side of the IPC conversation: accept, read the observe
// command, emit position events, close. trackPosition must hand back the
// last observed position once the socket closes.
func TestTrackPositionReturnsLastObserved(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "socket")
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("listening on unix socket: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		if _, err := r.ReadString('\n'); err != nil {
			return
		}

		conn.Write([]byte(`{"event":"property-change","name":"time-pos","data":12.5}` + "\n"))
		conn.Write([]byte(`{"event":"property-change","name":"time-pos","data":42.25}` + "\n"))
	}()

	m := &MPV{}
	if got := m.trackPosition(socketPath); got != 42.25 {
		t.Errorf("trackPosition() = %v, want 42.25", got)
	}
}
