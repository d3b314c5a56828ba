// Package ingest loads keyword watchlists from disk. Keywords arrive either
// as a one-column CSV or as a richer JSON watchlist carrying per-keyword
// platform scoping. Both loaders are fail-soft: malformed rows are skipped,
// not fatal.
package ingest

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/qepting91/buzzscope/internal/domain"
)

// WatchlistEntry is one tracked keyword with optional platform scoping.
// An empty Platforms list means all platforms; disabled entries are kept
// in the file but skipped at load time.
type WatchlistEntry struct {
	Keyword   string             `json:"keyword"`
	Platforms []domain.Platform  `json:"platforms,omitempty"`
	Policy    domain.MatchPolicy `json:"match_policy,omitempty"`
	Enabled   *bool              `json:"enabled,omitempty"`
}

type watchlistFile struct {
	Keywords []WatchlistEntry `json:"keywords"`
}

// LoadKeywords reads a CSV keyword list: one keyword per row, first column,
// header row skipped. Blank and duplicate keywords are dropped.
func LoadKeywords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(StripBOM(f))
	r.FieldsPerRecord = -1

	var keywords []string
	seen := make(map[string]struct{})
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		line++
		if line == 1 {
			continue // header
		}
		if len(rec) == 0 {
			continue
		}
		kw := domain.NormalizeKeyword(rec[0])
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, kw)
	}
	return keywords, nil
}

// LoadWatchlist reads the JSON watchlist. Entries that are disabled, blank,
// or name an unknown platform are skipped; a file that does not parse at all
// is an error.
func LoadWatchlist(path string) ([]WatchlistEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file watchlistFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse watchlist %s: %w", path, err)
	}

	var entries []WatchlistEntry
	for _, e := range file.Keywords {
		e.Keyword = domain.NormalizeKeyword(e.Keyword)
		if e.Keyword == "" {
			continue
		}
		if e.Enabled != nil && !*e.Enabled {
			continue
		}
		valid := e.Platforms[:0]
		for _, p := range e.Platforms {
			if p.Valid() {
				valid = append(valid, p)
			}
		}
		e.Platforms = valid
		if e.Policy != domain.MatchExact && e.Policy != domain.MatchFuzzy {
			e.Policy = domain.MatchExact
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// StripBOM drops a UTF-8 byte order mark if the reader starts with one.
// Spreadsheet exports routinely carry it.
func StripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	ch, _, err := br.ReadRune()
	if err != nil {
		return br
	}
	if ch != '\uFEFF' {
		br.UnreadRune()
	}
	return br
}
