// Package normalize maps raw platform records into the unified post schema.
package normalize

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/qepting91/buzzscope/internal/domain"
)

// WeightTableVersion tracks the interaction weighting table below. Bump it
// whenever the table changes so cached interaction counts can be told apart.
const WeightTableVersion = 1

// interactionWeights, v1: which raw count fields contribute to a post's
// interaction count, per platform. All weights are 1; no cross-platform
// normalization is attempted (views on one platform are not comparable to
// upvotes on another, so the table only fixes which fields are summed).
var interactionWeights = map[domain.Platform]map[string]int{
	domain.PlatformHackerNews: {"score": 1, "comments": 1},
	domain.PlatformReddit:     {"score": 1, "comments": 1},
	domain.PlatformYouTube:    {"views": 1, "likes": 1, "comments": 1},
	domain.PlatformDiscord:    {"reactions": 1},
}

// ErrMissingField marks a record-level normalization failure. The record is
// dropped; the batch continues.
var ErrMissingField = errors.New("missing required field")

// Record converts one raw record into a normalized Post. Records without an
// ID or timestamp are rejected: defaulting a timestamp to "now" would
// corrupt trend analysis, so they are dropped instead.
func Record(raw domain.RawRecord, platform domain.Platform) (domain.Post, error) {
	if strings.TrimSpace(raw.ID) == "" {
		return domain.Post{}, fmt.Errorf("record id: %w", ErrMissingField)
	}
	if raw.Time.IsZero() {
		return domain.Post{}, fmt.Errorf("record %s timestamp: %w", raw.ID, ErrMissingField)
	}

	return domain.Post{
		Platform:     platform,
		ID:           raw.ID,
		Title:        raw.Title,
		Body:         raw.Body,
		Author:       raw.Author,
		Timestamp:    raw.Time.UTC(),
		Interactions: interactions(raw.Counts, platform),
		URL:          raw.URL,
	}, nil
}

// Records normalizes a batch, dropping invalid records with a logged
// diagnostic instead of aborting.
func Records(raws []domain.RawRecord, platform domain.Platform, logger *slog.Logger) []domain.Post {
	if logger == nil {
		logger = slog.Default()
	}

	posts := make([]domain.Post, 0, len(raws))
	for _, raw := range raws {
		post, err := Record(raw, platform)
		if err != nil {
			logger.Warn("dropping record", "platform", platform, "id", raw.ID, "err", err)
			continue
		}
		posts = append(posts, post)
	}
	return posts
}

func interactions(counts map[string]int, platform domain.Platform) int {
	weights := interactionWeights[platform]
	total := 0
	for field, weight := range weights {
		if v := counts[field]; v > 0 {
			total += v * weight
		}
	}
	return total
}
