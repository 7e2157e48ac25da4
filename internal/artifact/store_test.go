package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/NadaMuhamed/AI-chatbot/internal/audio"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	pcm := []byte{10, 20, 30, 40, 50, 60}

	id, err := s.Put(pcm, 22050)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if id == "" {
		t.Fatalf("Put() returned empty id")
	}

	path, mime, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if mime != MimeWAV {
		t.Fatalf("mime = %q, want %q", mime, MimeWAV)
	}

	wav, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading backing file: %v", err)
	}
	info, err := audio.DecodeWAVHeader(wav)
	if err != nil {
		t.Fatalf("DecodeWAVHeader() error = %v", err)
	}
	if info.SampleRate != 22050 {
		t.Fatalf("SampleRate = %d, want 22050", info.SampleRate)
	}
	if got := wav[44:]; string(got) != string(pcm) {
		t.Fatalf("payload differs from stored pcm")
	}
}

func TestGetUnknownIsNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, _, err := s.Get("missing.wav"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestGetDropsEntryWhenBytesVanish(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Put([]byte{1, 2}, 16000)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	path, _, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("removing backing file: %v", err)
	}

	if _, _, err := s.Get(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after out-of-band delete = %v, want ErrNotFound", err)
	}
	if s.Count() != 0 {
		t.Fatalf("stale entry not dropped, Count() = %d", s.Count())
	}
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	s := newTestStore(t)
	base := time.Now()

	s.SetClock(func() time.Time { return base })
	oldID, err := s.Put([]byte{1, 2}, 16000)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	s.SetClock(func() time.Time { return base.Add(30 * time.Minute) })
	freshID, err := s.Put([]byte{3, 4}, 16000)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	oldPath, _, _ := s.Get(oldID)

	removed, err := s.Sweep(base.Add(3601*time.Second), 3600*time.Second)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	if _, _, err := s.Get(oldID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired artifact still readable: %v", err)
	}
	if _, err := os.Stat(oldPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expired backing file still on disk: %v", err)
	}
	if _, _, err := s.Get(freshID); err != nil {
		t.Fatalf("fresh artifact removed by sweep: %v", err)
	}
}

func TestSweepAtThresholdKeepsArtifact(t *testing.T) {
	s := newTestStore(t)
	base := time.Now()
	s.SetClock(func() time.Time { return base })

	id, err := s.Put([]byte{9}, 16000)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// Exactly retention old is not yet expired; eviction needs strict >.
	removed, err := s.Sweep(base.Add(time.Hour), time.Hour)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}
	if _, _, err := s.Get(id); err != nil {
		t.Fatalf("artifact at threshold evicted: %v", err)
	}
}

// swapForDirectory replaces an artifact's backing file with a non-empty
// directory so os.Remove fails with something other than "not exist".
func swapForDirectory(t *testing.T, s *Store, id string) string {
	t.Helper()
	path, _, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get(%s) error = %v", id, err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("removing backing file: %v", err)
	}
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("creating obstruction: %v", err)
	}
	if err := os.WriteFile(filepath.Join(path, "pin"), []byte("x"), 0o644); err != nil {
		t.Fatalf("pinning obstruction: %v", err)
	}
	return path
}

func TestSweepKeepsEntryWhenRemoveFails(t *testing.T) {
	s := newTestStore(t)
	base := time.Now()
	s.SetClock(func() time.Time { return base })

	stuck, err := s.Put([]byte{1}, 16000)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	clean, err := s.Put([]byte{2}, 16000)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	obstruction := swapForDirectory(t, s, stuck)

	removed, err := s.Sweep(base.Add(2*time.Hour), time.Hour)
	if err == nil {
		t.Fatalf("Sweep() should report the failed removal")
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1 (the unobstructed entry)", removed)
	}
	if _, _, err := s.Get(clean); !errors.Is(err, ErrNotFound) {
		t.Fatalf("clean expired artifact survived the sweep: %v", err)
	}
	if s.Count() != 1 {
		t.Fatalf("Count() = %d, want the failed entry kept for retry", s.Count())
	}

	// Once the obstruction clears, a later cycle reclaims the entry.
	if err := os.RemoveAll(obstruction); err != nil {
		t.Fatalf("clearing obstruction: %v", err)
	}
	removed, err = s.Sweep(base.Add(2*time.Hour), time.Hour)
	if err != nil {
		t.Fatalf("retry Sweep() error = %v", err)
	}
	if removed != 1 || s.Count() != 0 {
		t.Fatalf("retry removed %d entries, Count() = %d, want (1, 0)", removed, s.Count())
	}
}

func TestSweepContinuesPastVanishedFiles(t *testing.T) {
	s := newTestStore(t)
	base := time.Now()
	s.SetClock(func() time.Time { return base })

	first, _ := s.Put([]byte{1}, 16000)
	second, _ := s.Put([]byte{2}, 16000)

	// One backing file disappears out-of-band before the sweep.
	path, _, _ := s.Get(first)
	if err := os.Remove(path); err != nil {
		t.Fatalf("removing backing file: %v", err)
	}

	removed, err := s.Sweep(base.Add(2*time.Hour), time.Hour)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if _, _, err := s.Get(second); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second artifact survived sweep: %v", err)
	}
	if s.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", s.Count())
	}
}
