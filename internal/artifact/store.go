package artifact

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NadaMuhamed/AI-chatbot/internal/audio"
)

const MimeWAV = "audio/wav"

var ErrNotFound = errors.New("audio artifact not found")

type entry struct {
	path      string
	mime      string
	createdAt time.Time
}

// Store holds generated audio blobs in a scratch directory, addressable by an
// opaque filename-safe id. Entries expire by age; the Reaper drives Sweep.
type Store struct {
	dir string
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &Store{
		dir:     dir,
		now:     time.Now,
		entries: make(map[string]entry),
	}, nil
}

// Put encodes pcm as WAV, persists it, and records the entry. The entry is
// registered only after the bytes are fully on disk, so a visible id always
// had backing bytes at creation time.
func (s *Store) Put(pcm []byte, sampleRate int) (string, error) {
	id := uuid.NewString() + ".wav"
	path := filepath.Join(s.dir, id)

	if err := s.writeWAV(path, pcm, sampleRate); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", id, err)
	}

	s.mu.Lock()
	s.entries[id] = entry{path: path, mime: MimeWAV, createdAt: s.now()}
	s.mu.Unlock()
	return id, nil
}

func (s *Store) writeWAV(path string, pcm []byte, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := audio.WriteWAVPCM16LETo(f, pcm, sampleRate); err != nil {
		f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

// Get returns the backing path and mime type. An id whose bytes vanished
// out-of-band reports ErrNotFound and the stale entry is dropped.
func (s *Store) Get(id string) (string, string, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return "", "", ErrNotFound
	}

	if _, err := os.Stat(e.path); err != nil {
		s.mu.Lock()
		delete(s.entries, id)
		s.mu.Unlock()
		return "", "", ErrNotFound
	}
	return e.path, e.mime, nil
}

// Sweep removes every entry older than retention along with its backing file.
// A failure to unlink one file does not stop the sweep; the entry is kept so
// the next cycle retries it. Returns the number of entries removed and the
// joined per-entry failures.
func (s *Store) Sweep(now time.Time, retention time.Duration) (int, error) {
	s.mu.RLock()
	expired := make([]string, 0)
	for id, e := range s.entries {
		if now.Sub(e.createdAt) > retention {
			expired = append(expired, id)
		}
	}
	s.mu.RUnlock()

	removed := 0
	var errs []error
	for _, id := range expired {
		s.mu.Lock()
		e, ok := s.entries[id]
		s.mu.Unlock()
		if !ok {
			continue
		}

		if err := os.Remove(e.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("artifact sweep: remove %s: %v", id, err)
			errs = append(errs, fmt.Errorf("remove %s: %w", id, err))
			continue
		}
		s.mu.Lock()
		delete(s.entries, id)
		s.mu.Unlock()
		removed++
	}
	return removed, errors.Join(errs...)
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// SetClock overrides the store's clock. Test hook.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
