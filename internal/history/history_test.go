package history

import (
	"path/filepath"
	"testing"

	"hibiki/internal/media"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoad(t *testing.T) {
	s := testStore(t)

	entry := media.HistoryEntry{
		AnimeID:   "one-piece-100",
		Title:     "One Piece",
		EpisodeID: "901",
		Episode:   12,
		Position:  300,
		Duration:  1420,
	}
	if err := s.Save(entry); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	entries, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0] != entry {
		t.Errorf("got %+v, want %+v", entries[0], entry)
	}
}

func TestSaveUpdatesExisting(t *testing.T) {
	s := testStore(t)

	entry := media.HistoryEntry{AnimeID: "naruto-677", Title: "Naruto", EpisodeID: "42", Episode: 3, Position: 100, Duration: 1400}
	if err := s.Save(entry); err != nil {
		t.Fatal(err)
	}

	entry.Position = 900
	if err := s.Save(entry); err != nil {
		t.Fatal(err)
	}

	entries, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Position != 900 {
		t.Errorf("position = %v, want 900", entries[0].Position)
	}
}

func TestLatest(t *testing.T) {
	s := testStore(t)

	if _, ok, err := s.Latest("missing"); err != nil || ok {
		t.Fatalf("Latest(missing) = ok %v, err %v; want no entry", ok, err)
	}

	if err := s.Save(media.HistoryEntry{AnimeID: "bleach-806", Title: "Bleach", EpisodeID: "10", Episode: 1}); err != nil {
		t.Fatal(err)
	}

	e, ok, err := s.Latest("bleach-806")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || e.EpisodeID != "10" {
		t.Errorf("Latest() = %+v, ok %v", e, ok)
	}
}

func TestRemove(t *testing.T) {
	s := testStore(t)

	entry := media.HistoryEntry{AnimeID: "frieren-18542", Title: "Frieren", EpisodeID: "7", Episode: 2}
	if err := s.Save(entry); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove("frieren-18542", "7"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}

	entries, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries after remove, want 0", len(entries))
	}
}

func TestClear(t *testing.T) {
	s := testStore(t)

	for _, e := range []media.HistoryEntry{
		{AnimeID: "one-piece-100", Title: "One Piece", EpisodeID: "901", Episode: 12},
		{AnimeID: "frieren-18542", Title: "Frieren", EpisodeID: "7", Episode: 2},
	} {
		if err := s.Save(e); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}

	entries, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries after clear, want 0", len(entries))
	}
}

func TestFormatForDisplay(t *testing.T) {
	items := FormatForDisplay([]media.HistoryEntry{
		{Title: "One Piece", Episode: 12, Position: 710, Duration: 1420},
		{Title: "Frieren", Episode: 7.5},
	})

	want := []string{"One Piece Ep. 12 [50%]", "Frieren Ep. 7.5"}
	if len(items) != len(want) {
		t.Fatalf("got %d items, want %d", len(items), len(want))
	}
	for i := range want {
		if items[i] != want[i] {
			t.Errorf("item %d = %q, want %q", i, items[i], want[i])
		}
	}
}
