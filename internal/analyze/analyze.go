// Package analyze turns collected posts into mention metrics: volume,
// author rankings, interaction totals, and zero-filled trend series.
package analyze

import (
	"sort"
	"time"

	"github.com/qepting91/buzzscope/internal/domain"
)

// Granularity selects the trend bucket width.
type Granularity string

const (
	Daily   Granularity = "daily"
	Monthly Granularity = "monthly"
)

// TrendPoint is one time bucket of mention volume. Buckets are UTC.
type TrendPoint struct {
	Bucket time.Time `json:"bucket"`
	Count  int       `json:"count"`
}

// Contributor is one ranked author.
type Contributor struct {
	Author       string    `json:"author"`
	Mentions     int       `json:"mentions"`
	FirstMention time.Time `json:"first_mention"`
}

// PlatformMetrics is the per-platform slice of the totals.
type PlatformMetrics struct {
	Mentions      int `json:"mentions"`
	UniqueAuthors int `json:"unique_authors"`
	Interactions  int `json:"interactions"`
}

// Metrics is the full aggregation for one keyword's post set.
type Metrics struct {
	Keyword           string                              `json:"keyword"`
	Granularity       Granularity                         `json:"granularity"`
	TotalMentions     int                                 `json:"total_mentions"`
	UniqueAuthors     int                                 `json:"unique_authors"`
	TotalInteractions int                                 `json:"total_interactions"`
	Trend             []TrendPoint                        `json:"trend"`
	TopContributors   []Contributor                       `json:"top_contributors"`
	ByPlatform        map[domain.Platform]PlatformMetrics `json:"by_platform"`
}

// topContributorLimit caps the ranking length.
const topContributorLimit = 10

// Compute aggregates posts into Metrics. Posts with an empty author still
// count toward mention volume and interactions but are excluded from unique
// author counts and the contributor ranking. The input is never mutated.
func Compute(keyword string, posts []domain.Post, granularity Granularity) Metrics {
	if granularity != Monthly {
		granularity = Daily
	}

	m := Metrics{
		Keyword:     domain.NormalizeKeyword(keyword),
		Granularity: granularity,
		ByPlatform:  make(map[domain.Platform]PlatformMetrics),
	}

	authors := make(map[string]*Contributor)
	platformAuthors := make(map[domain.Platform]map[string]struct{})
	buckets := make(map[time.Time]int)

	for _, p := range posts {
		m.TotalMentions++
		m.TotalInteractions += p.Interactions

		pm := m.ByPlatform[p.Platform]
		pm.Mentions++
		pm.Interactions += p.Interactions

		ts := p.Timestamp.UTC()
		buckets[bucketOf(ts, granularity)]++

		if p.Author != "" {
			c, ok := authors[p.Author]
			if !ok {
				c = &Contributor{Author: p.Author, FirstMention: ts}
				authors[p.Author] = c
			}
			c.Mentions++
			if ts.Before(c.FirstMention) {
				c.FirstMention = ts
			}

			pa, ok := platformAuthors[p.Platform]
			if !ok {
				pa = make(map[string]struct{})
				platformAuthors[p.Platform] = pa
			}
			pa[p.Author] = struct{}{}
		}

		m.ByPlatform[p.Platform] = pm
	}

	for platform, pa := range platformAuthors {
		pm := m.ByPlatform[platform]
		pm.UniqueAuthors = len(pa)
		m.ByPlatform[platform] = pm
	}

	m.UniqueAuthors = len(authors)
	m.Trend = trendSeries(buckets, granularity)
	m.TopContributors = rankContributors(authors)
	return m
}

// bucketOf truncates a UTC timestamp to its trend bucket.
func bucketOf(ts time.Time, g Granularity) time.Time {
	if g == Monthly {
		return time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
}

// nextBucket steps one bucket forward.
func nextBucket(b time.Time, g Granularity) time.Time {
	if g == Monthly {
		return b.AddDate(0, 1, 0)
	}
	return b.AddDate(0, 0, 1)
}

// trendSeries produces a contiguous series from the earliest to the latest
// observed bucket, with zero counts filled in for empty buckets so gaps in
// activity are visible rather than silently skipped.
func trendSeries(buckets map[time.Time]int, g Granularity) []TrendPoint {
	if len(buckets) == 0 {
		return nil
	}

	var min, max time.Time
	first := true
	for b := range buckets {
		if first {
			min, max = b, b
			first = false
			continue
		}
		if b.Before(min) {
			min = b
		}
		if b.After(max) {
			max = b
		}
	}

	var series []TrendPoint
	for b := min; !b.After(max); b = nextBucket(b, g) {
		series = append(series, TrendPoint{Bucket: b, Count: buckets[b]})
	}
	return series
}

// rankContributors orders authors by mention count descending, breaking ties
// by earliest first mention and finally by author name for stable output.
func rankContributors(authors map[string]*Contributor) []Contributor {
	ranked := make([]Contributor, 0, len(authors))
	for _, c := range authors {
		ranked = append(ranked, *c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Mentions != ranked[j].Mentions {
			return ranked[i].Mentions > ranked[j].Mentions
		}
		if !ranked[i].FirstMention.Equal(ranked[j].FirstMention) {
			return ranked[i].FirstMention.Before(ranked[j].FirstMention)
		}
		return ranked[i].Author < ranked[j].Author
	})
	if len(ranked) > topContributorLimit {
		ranked = ranked[:topContributorLimit]
	}
	return ranked
}
