package collector

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/qepting91/buzzscope/internal/domain"
	"github.com/qepting91/buzzscope/internal/ingest"
)

// DiscordArchive is an archive-only collector over exported chat logs.
// Discord has no live search capability here, so Historical returns the
// entire locally available corpus and Hot fails with NotSupported.
//
// Export layout: <dir>/<community>/<channel>.csv with rows
// timestamp,author,channel,content[,reactions].
type DiscordArchive struct {
	dir string
}

func NewDiscordArchive(dir string) *DiscordArchive {
	return &DiscordArchive{dir: dir}
}

func (da *DiscordArchive) Platform() domain.Platform { return domain.PlatformDiscord }

func (da *DiscordArchive) Label(domain.Mode) string { return "historical" }

func (da *DiscordArchive) Fetch(ctx context.Context, keyword string, mode domain.Mode, limit int) ([]domain.RawRecord, error) {
	if mode == domain.ModeHot {
		return nil, domain.NewCollectorError(da.Platform(), domain.ErrNotSupported,
			errors.New("archive source has no live listing"))
	}

	entries, err := os.ReadDir(da.dir)
	if errors.Is(err, os.ErrNotExist) {
		// No archive configured: a valid, empty corpus.
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewCollectorError(da.Platform(), domain.ErrNetwork,
			fmt.Errorf("read archive dir: %w", err))
	}

	var records []domain.RawRecord
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, domain.NewCollectorError(da.Platform(), domain.ErrNetwork, err)
		}
		if !e.IsDir() {
			continue
		}
		community := e.Name()
		files, err := filepath.Glob(filepath.Join(da.dir, community, "*.csv"))
		if err != nil {
			continue
		}
		for _, file := range files {
			recs, err := da.readFile(file, community)
			if err != nil {
				// One bad export must not hide the rest of the corpus.
				continue
			}
			records = append(records, recs...)
		}
	}
	return records, nil
}

func (da *DiscordArchive) readFile(path, community string) ([]domain.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(ingest.StripBOM(f))
	r.FieldsPerRecord = -1

	var records []domain.RawRecord
	line := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil || line == 1 || len(row) < 4 {
			continue // header or malformed row
		}

		ts := parseArchiveTime(strings.TrimSpace(row[0]))
		content := row[3]
		reactions := 0
		if len(row) > 4 {
			reactions, _ = strconv.Atoi(strings.TrimSpace(row[4]))
		}

		records = append(records, domain.RawRecord{
			ID:     archiveID(community, row),
			Body:   content,
			Author: strings.TrimSpace(row[1]),
			Time:   ts,
			Counts: map[string]int{"reactions": reactions},
		})
	}
	return records, nil
}

// archiveID derives a stable record ID so repeated scans of the same export
// do not produce new identities.
func archiveID(community string, row []string) string {
	h := sha256.Sum256([]byte(community + "|" + strings.Join(row, "|")))
	return fmt.Sprintf("%x", h[:8])
}

var archiveTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseArchiveTime(s string) time.Time {
	for _, layout := range archiveTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
