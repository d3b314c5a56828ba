// Package cache is the keyed persistent store of normalized collection
// results. Each (keyword, platform, mode) key maps to one JSON file on disk
// so operators can inspect entries directly; an entry is always replaced
// whole, never merged, so stale and fresh data cannot mix under one key.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/qepting91/buzzscope/internal/domain"
)

var (
	// ErrMiss is returned when no entry exists for a key.
	ErrMiss = errors.New("cache miss")
	// ErrCorrupt marks an unreadable entry. Callers treat it as a miss;
	// other keys stay readable.
	ErrCorrupt = errors.New("corrupt cache entry")
)

// Key addresses one cache entry. Keyword must already be in normalized form.
type Key struct {
	Platform domain.Platform
	Keyword  string
	Mode     domain.Mode
}

// Entry is the persisted unit of storage. Posts are stored pre-match so the
// same entry can be re-filtered under any policy without recollection.
type Entry struct {
	Keyword     string          `json:"keyword"`
	Platform    domain.Platform `json:"platform"`
	Mode        domain.Mode     `json:"mode"`
	SourceLabel string          `json:"source_label"`
	CollectedAt time.Time       `json:"collected_at"`
	Posts       []domain.Post   `json:"posts"`
}

// PlatformStats summarizes cached state for one platform.
type PlatformStats struct {
	Entries       int       `json:"entries"`
	Posts         int       `json:"posts"`
	LastCollected time.Time `json:"last_collected,omitzero"`
}

// Stats is the cacheStats() surface.
type Stats struct {
	Platforms     map[domain.Platform]PlatformStats `json:"platforms"`
	TotalEntries  int                               `json:"total_entries"`
	TotalPosts    int                               `json:"total_posts"`
	LastCollected time.Time                         `json:"last_collected,omitzero"`
}

// Store is a file-per-key JSON cache. Reads and writes for different keys
// never block each other; writes for the same key serialize through a
// per-key mutex, and each write lands via temp-file rename so readers only
// ever see a complete entry.
type Store struct {
	dir    string
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore opens (creating if needed) a cache rooted at dir.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Store{dir: dir, logger: logger, locks: make(map[string]*sync.Mutex)}, nil
}

var keywordFileRe = regexp.MustCompile(`[^a-z0-9_-]+`)

// path maps a key to its storage location. Keyword normalization plus this
// pure mapping is the only keying scheme: two raw keywords that normalize
// identically collide here by construction, and mode keeps historical and
// hot entries apart.
func (s *Store) path(key Key) string {
	file := keywordFileRe.ReplaceAllString(domain.NormalizeKeyword(key.Keyword), "_") + ".json"
	return filepath.Join(s.dir, string(key.Platform), string(key.Mode), file)
}

func (s *Store) keyLock(key Key) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.path(key)
	l, ok := s.locks[p]
	if !ok {
		l = &sync.Mutex{}
		s.locks[p] = l
	}
	return l
}

// Get loads the entry for key. It returns ErrMiss when absent and ErrCorrupt
// (wrapped) when the file exists but cannot be decoded.
func (s *Store) Get(key Key) (*Entry, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s/%s/%q: %v", ErrCorrupt, key.Platform, key.Mode, key.Keyword, err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: decode %s/%s/%q: %v", ErrCorrupt, key.Platform, key.Mode, key.Keyword, err)
	}
	return &entry, nil
}

// Put atomically replaces the entry for key.
func (s *Store) Put(key Key, posts []domain.Post, sourceLabel string) error {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	entry := Entry{
		Keyword:     domain.NormalizeKeyword(key.Keyword),
		Platform:    key.Platform,
		Mode:        key.Mode,
		SourceLabel: sourceLabel,
		CollectedAt: time.Now().UTC(),
		Posts:       posts,
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache subdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".entry-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp entry: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace cache entry: %w", err)
	}

	s.logger.Debug("cache entry written", "platform", key.Platform, "mode", key.Mode,
		"keyword", entry.Keyword, "posts", len(posts), "label", sourceLabel)
	return nil
}

// IsStale reports whether entry is older than maxAge. Staleness is checked
// at read time only; there is no background expiry.
func (s *Store) IsStale(entry *Entry, maxAge time.Duration) bool {
	if entry == nil {
		return true
	}
	return time.Since(entry.CollectedAt) > maxAge
}

// Delete removes the entry for key, if present.
func (s *Store) Delete(key Key) error {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	err := os.Remove(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Stats walks the cache and reports per-platform entry and post counts plus
// the most recent collection time. Corrupt entries are skipped with a
// diagnostic rather than failing the walk.
func (s *Store) Stats() (Stats, error) {
	stats := Stats{Platforms: make(map[domain.Platform]PlatformStats)}

	for _, platform := range domain.AllPlatforms {
		ps := PlatformStats{}
		for _, mode := range []domain.Mode{domain.ModeHistorical, domain.ModeHot} {
			dir := filepath.Join(s.dir, string(platform), string(mode))
			files, err := os.ReadDir(dir)
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				return Stats{}, fmt.Errorf("read cache dir %s: %w", dir, err)
			}

			for _, f := range files {
				if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
					continue
				}
				data, err := os.ReadFile(filepath.Join(dir, f.Name()))
				if err != nil {
					s.logger.Warn("skipping unreadable cache entry", "file", f.Name(), "err", err)
					continue
				}
				var entry Entry
				if err := json.Unmarshal(data, &entry); err != nil {
					s.logger.Warn("skipping corrupt cache entry", "file", f.Name(), "err", err)
					continue
				}

				ps.Entries++
				ps.Posts += len(entry.Posts)
				if entry.CollectedAt.After(ps.LastCollected) {
					ps.LastCollected = entry.CollectedAt
				}
			}
		}

		if ps.Entries > 0 {
			stats.Platforms[platform] = ps
			stats.TotalEntries += ps.Entries
			stats.TotalPosts += ps.Posts
			if ps.LastCollected.After(stats.LastCollected) {
				stats.LastCollected = ps.LastCollected
			}
		}
	}

	return stats, nil
}
