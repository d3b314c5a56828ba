package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/loganintech/go-reddit/v2/reddit"
	"golang.org/x/time/rate"

	"github.com/qepting91/buzzscope/internal/domain"
)

// RedditClient collects from the Reddit API through the authenticated
// go-reddit client. Historical mode is an all-time search; hot mode reads
// the r/all hot listing.
type RedditClient struct {
	client  *reddit.Client
	limiter *rate.Limiter
}

// NewRedditClient builds an authenticated client. Missing credentials are
// not a construction error: the platform stays enumerable and Fetch reports
// AuthInvalid, which the orchestrator records as that platform's failure.
func NewRedditClient(id, secret, user, pass, userAgent string) (*RedditClient, error) {
	rc := &RedditClient{
		// API guidance is ~60 reqs/min; stay under it.
		limiter: rate.NewLimiter(rate.Every(1*time.Second), 1),
	}

	if id == "" || secret == "" {
		return rc, nil
	}

	creds := reddit.Credentials{ID: id, Secret: secret, Username: user, Password: pass}
	client, err := reddit.NewClient(creds, reddit.WithUserAgent(userAgent))
	if err != nil {
		return nil, fmt.Errorf("reddit client: %w", err)
	}
	rc.client = client
	return rc, nil
}

func (rc *RedditClient) Platform() domain.Platform { return domain.PlatformReddit }

func (rc *RedditClient) Label(mode domain.Mode) string {
	if mode == domain.ModeHot {
		return "hot"
	}
	return "time_all"
}

func (rc *RedditClient) Fetch(ctx context.Context, keyword string, mode domain.Mode, limit int) ([]domain.RawRecord, error) {
	if rc.client == nil {
		return nil, domain.NewCollectorError(rc.Platform(), domain.ErrAuthInvalid,
			errors.New("reddit credentials not configured"))
	}

	if err := rc.limiter.Wait(ctx); err != nil {
		return nil, domain.NewCollectorError(rc.Platform(), domain.ErrNetwork, err)
	}

	var (
		posts []*reddit.Post
		err   error
	)
	switch mode {
	case domain.ModeHot:
		posts, _, err = rc.client.Subreddit.HotPosts(ctx, "all", &reddit.ListOptions{Limit: limit})
	default:
		posts, _, err = rc.client.Subreddit.SearchPosts(ctx, keyword, "", &reddit.ListPostSearchOptions{
			ListPostOptions: reddit.ListPostOptions{
				ListOptions: reddit.ListOptions{Limit: limit},
				Time:        "all",
			},
			Sort: "relevance",
		})
	}
	if err != nil {
		return nil, rc.classify(err)
	}

	records := make([]domain.RawRecord, 0, len(posts))
	for _, p := range posts {
		records = append(records, rc.toRecord(p))
	}
	return records, nil
}

func (rc *RedditClient) classify(err error) error {
	var rateErr *reddit.RateLimitError
	if errors.As(err, &rateErr) {
		return domain.NewCollectorError(rc.Platform(), domain.ErrRateLimited, err)
	}

	var apiErr *reddit.ErrorResponse
	if errors.As(err, &apiErr) && apiErr.Response != nil {
		code := apiErr.Response.StatusCode
		if code == http.StatusUnauthorized || code == http.StatusForbidden {
			return domain.NewCollectorError(rc.Platform(), domain.ErrAuthInvalid, err)
		}
		if code == http.StatusTooManyRequests {
			return domain.NewCollectorError(rc.Platform(), domain.ErrRateLimited, err)
		}
	}

	return domain.NewCollectorError(rc.Platform(), domain.ErrNetwork, err)
}

func (rc *RedditClient) toRecord(p *reddit.Post) domain.RawRecord {
	var ts time.Time
	if p.Created != nil {
		ts = p.Created.Time.UTC()
	}

	url := p.URL
	if url == "" && p.Permalink != "" {
		url = "https://www.reddit.com" + p.Permalink
	}

	return domain.RawRecord{
		ID:     p.ID,
		Title:  p.Title,
		Body:   p.Body,
		Author: p.Author,
		Time:   ts,
		URL:    url,
		Counts: map[string]int{"score": p.Score, "comments": p.NumberOfComments},
	}
}
