package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/qepting91/buzzscope/internal/domain"
)

// HackerNewsClient collects from the Hacker News Firebase API. The API has
// no search endpoint, so both modes sample listing feeds and leave keyword
// filtering to the match engine downstream.
type HackerNewsClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

type hnItem struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Text        string `json:"text"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	Deleted     bool   `json:"deleted"`
	Dead        bool   `json:"dead"`
}

func NewHackerNewsClient(baseURL string) *HackerNewsClient {
	return &HackerNewsClient{
		httpClient: newHTTPClient(),
		// Firebase tolerates bursts but item fetches add up fast.
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 5),
		baseURL: baseURL,
	}
}

func (hc *HackerNewsClient) Platform() domain.Platform { return domain.PlatformHackerNews }

func (hc *HackerNewsClient) Label(mode domain.Mode) string {
	if mode == domain.ModeHot {
		return "hot"
	}
	return "historical"
}

func (hc *HackerNewsClient) Fetch(ctx context.Context, keyword string, mode domain.Mode, limit int) ([]domain.RawRecord, error) {
	var feeds []string
	switch mode {
	case domain.ModeHot:
		feeds = []string{"topstories"}
	default:
		// Best-effort all-time coverage: mix the top and new feeds like
		// the public front page does.
		feeds = []string{"topstories", "newstories"}
	}

	seen := make(map[int]bool)
	var ids []int
	per := limit / len(feeds)
	if per == 0 {
		per = limit
	}
	for _, feed := range feeds {
		feedIDs, err := hc.fetchIDs(ctx, feed)
		if err != nil {
			return nil, err
		}
		if len(feedIDs) > per {
			feedIDs = feedIDs[:per]
		}
		for _, id := range feedIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	records := make([]domain.RawRecord, 0, len(ids))
	for _, id := range ids {
		item, err := hc.fetchItem(ctx, id)
		if err != nil {
			return nil, err
		}
		if item == nil || item.Deleted || item.Dead {
			continue
		}
		records = append(records, hc.toRecord(item))
		if len(records) >= limit {
			break
		}
	}
	return records, nil
}

func (hc *HackerNewsClient) fetchIDs(ctx context.Context, feed string) ([]int, error) {
	var ids []int
	if err := hc.getJSON(ctx, fmt.Sprintf("%s/%s.json", hc.baseURL, feed), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (hc *HackerNewsClient) fetchItem(ctx context.Context, id int) (*hnItem, error) {
	var item *hnItem
	if err := hc.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", hc.baseURL, id), &item); err != nil {
		return nil, err
	}
	return item, nil
}

func (hc *HackerNewsClient) getJSON(ctx context.Context, url string, out any) error {
	if err := hc.limiter.Wait(ctx); err != nil {
		return domain.NewCollectorError(hc.Platform(), domain.ErrNetwork, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.NewCollectorError(hc.Platform(), domain.ErrNetwork, err)
	}
	req.Header.Set("User-Agent", "buzzscope/1.0 (keyword tracking)")

	resp, err := hc.httpClient.Do(req)
	if err != nil {
		return domain.NewCollectorError(hc.Platform(), domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.NewCollectorError(hc.Platform(), classifyStatus(resp.StatusCode),
			fmt.Errorf("hackernews status %d for %s", resp.StatusCode, url))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewCollectorError(hc.Platform(), domain.ErrNetwork,
			fmt.Errorf("decode %s: %w", url, err))
	}
	return nil
}

func (hc *HackerNewsClient) toRecord(item *hnItem) domain.RawRecord {
	url := item.URL
	if url == "" {
		url = fmt.Sprintf("https://news.ycombinator.com/item?id=%d", item.ID)
	}

	var ts time.Time
	if item.Time > 0 {
		ts = time.Unix(item.Time, 0).UTC()
	}

	return domain.RawRecord{
		ID:     fmt.Sprintf("%d", item.ID),
		Title:  item.Title,
		Body:   item.Text,
		Author: item.By,
		Time:   ts,
		URL:    url,
		Counts: map[string]int{"score": item.Score, "comments": item.Descendants},
	}
}
