package domain

import (
	"context"
	"strings"
	"time"
)

// Platform identifies a tracked content source.
type Platform string

const (
	PlatformHackerNews Platform = "hackernews"
	PlatformReddit     Platform = "reddit"
	PlatformYouTube    Platform = "youtube"
	PlatformDiscord    Platform = "discord"
)

// AllPlatforms lists every supported platform in collection order.
var AllPlatforms = []Platform{
	PlatformHackerNews,
	PlatformReddit,
	PlatformYouTube,
	PlatformDiscord,
}

func (p Platform) Valid() bool {
	switch p {
	case PlatformHackerNews, PlatformReddit, PlatformYouTube, PlatformDiscord:
		return true
	}
	return false
}

// Mode selects the collection strategy.
type Mode string

const (
	// ModeHistorical is a best-effort full-text search across all time.
	ModeHistorical Mode = "historical"
	// ModeHot collects today's trending/recent listings.
	ModeHot Mode = "hot"
)

// MatchPolicy selects how keyword mentions are detected. The policy is
// chosen per request and never stored with cached posts.
type MatchPolicy string

const (
	// MatchExact requires the keyword as a whole phrase with word
	// boundaries on both sides.
	MatchExact MatchPolicy = "exact"
	// MatchFuzzy is case-insensitive substring containment.
	MatchFuzzy MatchPolicy = "fuzzy"
)

// NormalizeKeyword derives the canonical form used as the cache and match
// key. Distinct raw strings that normalize identically share one cache entry.
func NormalizeKeyword(keyword string) string {
	return strings.ToLower(strings.TrimSpace(keyword))
}

// Post is the normalized record shared by every platform. (Platform, ID) is
// unique within a result set; Timestamp is always UTC.
type Post struct {
	Platform     Platform  `json:"platform"`
	ID           string    `json:"id"`
	Title        string    `json:"title,omitempty"`
	Body         string    `json:"body,omitempty"`
	Author       string    `json:"author,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Interactions int       `json:"interaction_count"`
	URL          string    `json:"url,omitempty"`
}

// RawRecord is what a collector emits before normalization. Counts holds the
// platform-specific interaction fields (score, comments, views, ...) that
// the normalizer folds into a single interaction count. A zero Time means
// the platform did not report a timestamp; the normalizer drops such
// records rather than guessing.
type RawRecord struct {
	ID     string
	Title  string
	Body   string
	Author string
	Time   time.Time
	URL    string
	Counts map[string]int
}

// Collector fetches raw search/listing results for one platform.
type Collector interface {
	Platform() Platform

	// Fetch returns up to limit raw records for the keyword under the
	// given mode. Archive-only platforms return their entire local corpus
	// for ModeHistorical and fail with ErrNotSupported for ModeHot.
	Fetch(ctx context.Context, keyword string, mode Mode, limit int) ([]RawRecord, error)

	// Label describes the fetch strategy backing a mode, e.g. "historical"
	// for archive scans, "time_all" for all-time live search, "hot" for
	// trending listings. It becomes the cache entry's source label.
	Label(mode Mode) string
}

// PlatformStatus reports how one platform resolved within a collect call.
type PlatformStatus string

const (
	StatusSuccess  PlatformStatus = "success"
	StatusCacheHit PlatformStatus = "cache_hit"
	StatusFailed   PlatformStatus = "failed"
)

// PlatformResult is the per-platform outcome inside a CollectionResult.
type PlatformResult struct {
	Platform    Platform       `json:"platform"`
	Status      PlatformStatus `json:"status"`
	PostCount   int            `json:"post_count"`
	SourceLabel string         `json:"source_label,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// CollectionResult aggregates one orchestration call. Posts holds the merged
// matched set across all platforms; Platforms always enumerates every
// requested platform, even on partial failure, so callers can tell "no
// mentions" apart from "platform unavailable".
type CollectionResult struct {
	Keyword     string                      `json:"keyword"`
	Mode        Mode                        `json:"mode"`
	Policy      MatchPolicy                 `json:"policy"`
	CollectedAt time.Time                   `json:"collected_at"`
	Platforms   map[Platform]PlatformResult `json:"platforms"`
	Posts       []Post                      `json:"posts"`
	Warnings    []string                    `json:"warnings,omitempty"`
}

// Succeeded reports whether at least one platform delivered data, either
// fresh or from cache.
func (r *CollectionResult) Succeeded() bool {
	for _, pr := range r.Platforms {
		if pr.Status == StatusSuccess || pr.Status == StatusCacheHit {
			return true
		}
	}
	return false
}

// EventPost is the post payload inside a NotificationEvent. External
// delivery channels key formatting off this shape, so it must stay stable.
type EventPost struct {
	Title            string    `json:"title"`
	Body             string    `json:"body"`
	Author           string    `json:"author"`
	InteractionCount int       `json:"interaction_count"`
	URL              string    `json:"url"`
	Timestamp        time.Time `json:"timestamp"`
}

// NotificationEvent is emitted by the event monitor for each newly seen
// mention.
type NotificationEvent struct {
	Keyword  string    `json:"keyword"`
	Platform Platform  `json:"platform"`
	Post     EventPost `json:"post"`
	FoundAt  time.Time `json:"found_at"`
}

// EventFromPost builds the stable notification payload for a matched post.
func EventFromPost(keyword string, p Post, foundAt time.Time) NotificationEvent {
	return NotificationEvent{
		Keyword:  keyword,
		Platform: p.Platform,
		Post: EventPost{
			Title:            p.Title,
			Body:             p.Body,
			Author:           p.Author,
			InteractionCount: p.Interactions,
			URL:              p.URL,
			Timestamp:        p.Timestamp,
		},
		FoundAt: foundAt,
	}
}
