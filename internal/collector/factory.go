package collector

import (
	"fmt"

	"github.com/qepting91/buzzscope/internal/config"
	"github.com/qepting91/buzzscope/internal/domain"
)

// NewSet builds one collector per supported platform according to
// COLLECTOR_MODE. Platforms with missing credentials still get a collector;
// their fetches fail AuthInvalid so the orchestrator can enumerate them.
func NewSet(cfg config.Config) (map[domain.Platform]domain.Collector, error) {
	switch cfg.CollectorMode {
	case "mock":
		set := make(map[domain.Platform]domain.Collector, len(domain.AllPlatforms))
		for _, p := range domain.AllPlatforms {
			set[p] = NewMockClient(p)
		}
		return set, nil

	case "live", "":
		redditClient, err := NewRedditClient(
			cfg.RedditClientID,
			cfg.RedditClientSecret,
			cfg.RedditUsername,
			cfg.RedditPassword,
			cfg.RedditUserAgent,
		)
		if err != nil {
			return nil, err
		}

		return map[domain.Platform]domain.Collector{
			domain.PlatformHackerNews: NewHackerNewsClient(cfg.HackerNewsAPIURL),
			domain.PlatformReddit:     redditClient,
			domain.PlatformYouTube:    NewYouTubeClient(cfg.YouTubeAPIURL, cfg.YouTubeAPIKey),
			domain.PlatformDiscord:    NewDiscordArchive(cfg.DiscordArchiveDir),
		}, nil

	default:
		return nil, fmt.Errorf("unknown COLLECTOR_MODE: %s (use 'live' or 'mock')", cfg.CollectorMode)
	}
}
