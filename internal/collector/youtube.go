package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/qepting91/buzzscope/internal/domain"
)

// youtubeMaxPage is the Data API's maxResults ceiling per search request.
const youtubeMaxPage = 50

// YouTubeClient collects from the YouTube Data API v3 over plain HTTP.
// Search results carry no statistics, so a second videos.list call fills in
// view/like/comment counts.
type YouTubeClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	apiKey     string
}

type ytSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

type ytVideosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			ChannelTitle string `json:"channelTitle"`
			PublishedAt  string `json:"publishedAt"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			LikeCount    string `json:"likeCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}

func NewYouTubeClient(baseURL, apiKey string) *YouTubeClient {
	return &YouTubeClient{
		httpClient: newHTTPClient(),
		limiter:    rate.NewLimiter(rate.Every(1*time.Second), 1),
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

func (yc *YouTubeClient) Platform() domain.Platform { return domain.PlatformYouTube }

func (yc *YouTubeClient) Label(mode domain.Mode) string {
	if mode == domain.ModeHot {
		return "hot"
	}
	return "time_all"
}

func (yc *YouTubeClient) Fetch(ctx context.Context, keyword string, mode domain.Mode, limit int) ([]domain.RawRecord, error) {
	if yc.apiKey == "" {
		return nil, domain.NewCollectorError(yc.Platform(), domain.ErrAuthInvalid,
			errors.New("youtube api key not configured"))
	}

	if limit > youtubeMaxPage {
		limit = youtubeMaxPage
	}

	params := url.Values{
		"part":       {"snippet"},
		"q":          {keyword},
		"type":       {"video"},
		"maxResults": {strconv.Itoa(limit)},
		"key":        {yc.apiKey},
	}
	switch mode {
	case domain.ModeHot:
		params.Set("order", "date")
		today := time.Now().UTC().Truncate(24 * time.Hour)
		params.Set("publishedAfter", today.Format(time.RFC3339))
	default:
		params.Set("order", "relevance")
	}

	var search ytSearchResponse
	if err := yc.getJSON(ctx, yc.baseURL+"/search?"+params.Encode(), &search); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(search.Items))
	for _, item := range search.Items {
		if item.ID.VideoID != "" {
			ids = append(ids, item.ID.VideoID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	detailParams := url.Values{
		"part": {"snippet,statistics"},
		"id":   {strings.Join(ids, ",")},
		"key":  {yc.apiKey},
	}
	var videos ytVideosResponse
	if err := yc.getJSON(ctx, yc.baseURL+"/videos?"+detailParams.Encode(), &videos); err != nil {
		return nil, err
	}

	records := make([]domain.RawRecord, 0, len(videos.Items))
	for _, v := range videos.Items {
		var ts time.Time
		if parsed, err := time.Parse(time.RFC3339, v.Snippet.PublishedAt); err == nil {
			ts = parsed.UTC()
		}

		records = append(records, domain.RawRecord{
			ID:     v.ID,
			Title:  v.Snippet.Title,
			Body:   v.Snippet.Description,
			Author: v.Snippet.ChannelTitle,
			Time:   ts,
			URL:    "https://www.youtube.com/watch?v=" + v.ID,
			Counts: map[string]int{
				"views":    atoiOrZero(v.Statistics.ViewCount),
				"likes":    atoiOrZero(v.Statistics.LikeCount),
				"comments": atoiOrZero(v.Statistics.CommentCount),
			},
		})
	}
	return records, nil
}

func (yc *YouTubeClient) getJSON(ctx context.Context, rawURL string, out any) error {
	if err := yc.limiter.Wait(ctx); err != nil {
		return domain.NewCollectorError(yc.Platform(), domain.ErrNetwork, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return domain.NewCollectorError(yc.Platform(), domain.ErrNetwork, err)
	}

	resp, err := yc.httpClient.Do(req)
	if err != nil {
		return domain.NewCollectorError(yc.Platform(), domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		kind := classifyStatus(resp.StatusCode)
		// Quota exhaustion surfaces as 403 on this API.
		if resp.StatusCode == http.StatusForbidden {
			kind = domain.ErrRateLimited
		}
		return domain.NewCollectorError(yc.Platform(), kind,
			fmt.Errorf("youtube status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewCollectorError(yc.Platform(), domain.ErrNetwork,
			fmt.Errorf("decode youtube response: %w", err))
	}
	return nil
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
