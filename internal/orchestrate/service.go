// Package orchestrate fans one keyword out across platforms, deciding per
// platform whether to reuse cached results or fetch fresh ones, and folds
// the per-platform outcomes into a single CollectionResult.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/qepting91/buzzscope/internal/cache"
	"github.com/qepting91/buzzscope/internal/domain"
	"github.com/qepting91/buzzscope/internal/match"
	"github.com/qepting91/buzzscope/internal/normalize"
)

// ErrNoPlatforms is returned when every requested platform failed. Partial
// failure is not an error: one live platform is enough for success.
var ErrNoPlatforms = errors.New("no platforms available")

// Options tunes collection behavior. Zero values fall back to defaults.
type Options struct {
	CacheMaxAge     time.Duration // staleness window for cache reuse
	PlatformTimeout time.Duration // per-platform fetch budget
	RetryBackoff    time.Duration // pause before the single retry
	HistoricalLimit int
	HotLimit        int
}

func (o Options) withDefaults() Options {
	if o.CacheMaxAge == 0 {
		o.CacheMaxAge = 24 * time.Hour
	}
	if o.PlatformTimeout == 0 {
		o.PlatformTimeout = 60 * time.Second
	}
	if o.RetryBackoff == 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.HistoricalLimit == 0 {
		o.HistoricalLimit = 100
	}
	if o.HotLimit == 0 {
		o.HotLimit = 50
	}
	return o
}

// Service is the collection orchestrator.
type Service struct {
	collectors map[domain.Platform]domain.Collector
	cache      *cache.Store
	logger     *slog.Logger
	opts       Options
}

func NewService(collectors map[domain.Platform]domain.Collector, store *cache.Store, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		collectors: collectors,
		cache:      store,
		logger:     logger,
		opts:       opts.withDefaults(),
	}
}

// platformOutcome carries one platform's resolution back through the
// fan-out channel.
type platformOutcome struct {
	platform domain.Platform
	result   domain.PlatformResult
	posts    []domain.Post
	warning  string
}

// Collect resolves the keyword across the given platforms. Each platform is
// handled independently and in parallel; a failure there degrades coverage
// but never aborts the call. The returned result enumerates every platform's
// status, and only "every platform failed" yields ErrNoPlatforms.
func (s *Service) Collect(ctx context.Context, keyword string, platforms []domain.Platform,
	mode domain.Mode, policy domain.MatchPolicy, forceRefresh bool) (*domain.CollectionResult, error) {

	normalized := domain.NormalizeKeyword(keyword)
	matcher, err := match.New(normalized, policy)
	if err != nil {
		return nil, err
	}
	if len(platforms) == 0 {
		platforms = domain.AllPlatforms
	}

	s.logger.Info("collecting", "keyword", normalized, "mode", mode,
		"policy", policy, "platforms", len(platforms), "force_refresh", forceRefresh)

	outcomes := make(chan platformOutcome, len(platforms))
	for _, platform := range platforms {
		go func(p domain.Platform) {
			outcomes <- s.resolvePlatform(ctx, p, normalized, mode, forceRefresh)
		}(platform)
	}

	result := &domain.CollectionResult{
		Keyword:     normalized,
		Mode:        mode,
		Policy:      policy,
		CollectedAt: time.Now().UTC(),
		Platforms:   make(map[domain.Platform]domain.PlatformResult, len(platforms)),
	}

	byPlatform := make(map[domain.Platform][]domain.Post, len(platforms))
	for range platforms {
		o := <-outcomes
		result.Platforms[o.platform] = o.result
		byPlatform[o.platform] = o.posts
		if o.warning != "" {
			result.Warnings = append(result.Warnings, o.warning)
		}
	}

	// Merge in the caller's platform order; within a platform the
	// collector/cache insertion order is preserved. Cross-platform order
	// is otherwise unspecified and consumers sort explicitly.
	for _, platform := range platforms {
		for _, post := range byPlatform[platform] {
			if matcher.MatchPost(post) {
				result.Posts = append(result.Posts, post)
			}
		}
	}

	if !result.Succeeded() {
		return result, ErrNoPlatforms
	}
	return result, nil
}

func (s *Service) resolvePlatform(ctx context.Context, platform domain.Platform,
	keyword string, mode domain.Mode, forceRefresh bool) platformOutcome {

	out := platformOutcome{platform: platform}
	key := cache.Key{Platform: platform, Keyword: keyword, Mode: mode}

	if !forceRefresh {
		entry, err := s.cache.Get(key)
		switch {
		case err == nil && !s.cache.IsStale(entry, s.opts.CacheMaxAge):
			out.posts = entry.Posts
			out.result = domain.PlatformResult{
				Platform:    platform,
				Status:      domain.StatusCacheHit,
				PostCount:   len(entry.Posts),
				SourceLabel: entry.SourceLabel,
			}
			return out
		case errors.Is(err, cache.ErrCorrupt):
			// Treated as a miss, but the operator should hear about it.
			s.logger.Warn("corrupt cache entry", "platform", platform, "keyword", keyword, "err", err)
			out.warning = fmt.Sprintf("%s: corrupt cache entry replaced by fresh fetch", platform)
		}
	}

	collector, ok := s.collectors[platform]
	if !ok {
		out.result = failedResult(platform, domain.ErrNotSupported, "no collector configured")
		return out
	}

	limit := s.opts.HistoricalLimit
	if mode == domain.ModeHot {
		limit = s.opts.HotLimit
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.PlatformTimeout)
	defer cancel()

	raws, err := s.fetchWithRetry(fetchCtx, collector, keyword, mode, limit)
	if err != nil {
		// A per-platform timeout degrades only this platform.
		kind := domain.ErrorKindOf(err)
		if fetchCtx.Err() != nil && ctx.Err() == nil {
			kind = domain.ErrNetwork
		}
		s.logger.Warn("platform fetch failed", "platform", platform, "kind", kind, "err", err)
		out.result = failedResult(platform, kind, err.Error())
		return out
	}

	posts := normalize.Records(raws, platform, s.logger)
	label := collector.Label(mode)

	// A cancelled collect must never write a partial entry.
	if ctx.Err() != nil {
		out.result = failedResult(platform, domain.ErrNetwork, ctx.Err().Error())
		return out
	}

	if err := s.cache.Put(key, posts, label); err != nil {
		// The fetch still succeeded; surface the write failure as a
		// degraded-result warning rather than swallowing it.
		s.logger.Error("cache write failed", "platform", platform, "keyword", keyword, "err", err)
		out.warning = fmt.Sprintf("%s: cache write failed: %v", platform, err)
	}

	out.posts = posts
	out.result = domain.PlatformResult{
		Platform:    platform,
		Status:      domain.StatusSuccess,
		PostCount:   len(posts),
		SourceLabel: label,
	}
	return out
}

// fetchWithRetry makes one attempt plus a single fixed-backoff retry for
// transient failures. Auth and not-supported failures are final immediately.
func (s *Service) fetchWithRetry(ctx context.Context, collector domain.Collector,
	keyword string, mode domain.Mode, limit int) ([]domain.RawRecord, error) {

	raws, err := collector.Fetch(ctx, keyword, mode, limit)
	if err == nil || !domain.Retryable(err) {
		return raws, err
	}

	s.logger.Debug("retrying platform fetch", "platform", collector.Platform(), "err", err)
	select {
	case <-ctx.Done():
		return nil, domain.NewCollectorError(collector.Platform(), domain.ErrNetwork, ctx.Err())
	case <-time.After(s.opts.RetryBackoff):
	}

	return collector.Fetch(ctx, keyword, mode, limit)
}

func failedResult(platform domain.Platform, kind domain.ErrorKind, msg string) domain.PlatformResult {
	return domain.PlatformResult{
		Platform: platform,
		Status:   domain.StatusFailed,
		Error:    fmt.Sprintf("%s: %s", kind, msg),
	}
}

// CacheStats exposes the cache store's stats through the service surface.
func (s *Service) CacheStats() (cache.Stats, error) {
	return s.cache.Stats()
}
