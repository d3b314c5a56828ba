package monitor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/qepting91/buzzscope/internal/domain"
)

// NotifiedSet is the monitor's persisted dedup state: which posts have
// already produced a notification, keyed by platform and post ID. Keeping it
// on disk means a restarted monitor does not re-announce everything it has
// seen before.
type NotifiedSet struct {
	path string
	seen map[string]time.Time
}

func stateKey(platform domain.Platform, id string) string {
	return fmt.Sprintf("%s/%s", platform, id)
}

// LoadNotifiedSet reads the state file at path. A missing file yields an
// empty set; an unreadable or undecodable one is an error, because silently
// starting empty would re-notify every known post.
func LoadNotifiedSet(path string) (*NotifiedSet, error) {
	s := &NotifiedSet{path: path, seen: make(map[string]time.Time)}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read notified state: %w", err)
	}
	if err := json.Unmarshal(data, &s.seen); err != nil {
		return nil, fmt.Errorf("decode notified state %s: %w", path, err)
	}
	return s, nil
}

// Contains reports whether the post has already been notified.
func (s *NotifiedSet) Contains(platform domain.Platform, id string) bool {
	_, ok := s.seen[stateKey(platform, id)]
	return ok
}

// Add records a notified post with the time it was first seen.
func (s *NotifiedSet) Add(platform domain.Platform, id string, at time.Time) {
	s.seen[stateKey(platform, id)] = at.UTC()
}

// Prune drops entries first seen before the cutoff. Hot feeds cycle posts
// out within days, so old entries can never match again and only grow the
// file.
func (s *NotifiedSet) Prune(retention time.Duration, now time.Time) int {
	cutoff := now.Add(-retention)
	dropped := 0
	for key, seen := range s.seen {
		if seen.Before(cutoff) {
			delete(s.seen, key)
			dropped++
		}
	}
	return dropped
}

// Len reports the number of tracked posts.
func (s *NotifiedSet) Len() int { return len(s.seen) }

// Save writes the state atomically via temp-file rename, so a crash mid-write
// never leaves a truncated file behind.
func (s *NotifiedSet) Save() error {
	data, err := json.MarshalIndent(s.seen, "", "  ")
	if err != nil {
		return fmt.Errorf("encode notified state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".notified-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write notified state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close notified state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace notified state: %w", err)
	}
	return nil
}
