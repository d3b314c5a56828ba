package orchestrate_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/qepting91/buzzscope/internal/cache"
	"github.com/qepting91/buzzscope/internal/domain"
	"github.com/qepting91/buzzscope/internal/orchestrate"
)

// mockCollector is a testify mock over the collector capability.
type mockCollector struct {
	mock.Mock
	platform domain.Platform
}

func (m *mockCollector) Platform() domain.Platform { return m.platform }

func (m *mockCollector) Label(mode domain.Mode) string {
	if mode == domain.ModeHot {
		return "hot"
	}
	return "time_all"
}

func (m *mockCollector) Fetch(ctx context.Context, keyword string, mode domain.Mode, limit int) ([]domain.RawRecord, error) {
	args := m.Called(ctx, keyword, mode, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RawRecord), args.Error(1)
}

func newService(t *testing.T, collectors map[domain.Platform]domain.Collector) (*orchestrate.Service, *cache.Store) {
	t.Helper()
	store, err := cache.NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	svc := orchestrate.NewService(collectors, store, nil, orchestrate.Options{
		RetryBackoff: time.Millisecond,
	})
	return svc, store
}

func raw(id, title string, day int) domain.RawRecord {
	return domain.RawRecord{
		ID:    id,
		Title: title,
		Time:  time.Date(2025, 4, day, 12, 0, 0, 0, time.UTC),
	}
}

func mqttRecords() []domain.RawRecord {
	return []domain.RawRecord{
		raw("1", "getting started with mqtt brokers", 1),
		raw("2", "kafka vs rabbit", 2),
		raw("3", "mqtt 5.0 deep dive", 3),
		raw("4", "the mqttx client reviewed", 4), // fuzzy-only match
		raw("5", "why mqtt won in iot", 5),
	}
}

func TestEndToEndCacheStoresPreMatchPosts(t *testing.T) {
	mc := &mockCollector{platform: domain.PlatformHackerNews}
	mc.On("Fetch", mock.Anything, "mqtt", domain.ModeHistorical, mock.Anything).
		Return(mqttRecords(), nil).Once()

	svc, store := newService(t, map[domain.Platform]domain.Collector{domain.PlatformHackerNews: mc})

	res, err := svc.Collect(context.Background(), "mqtt", []domain.Platform{domain.PlatformHackerNews},
		domain.ModeHistorical, domain.MatchExact, false)
	require.NoError(t, err)

	// 5 collected, 3 contain "mqtt" as a whole word.
	assert.Len(t, res.Posts, 3)
	assert.Equal(t, domain.StatusSuccess, res.Platforms[domain.PlatformHackerNews].Status)
	assert.Equal(t, 5, res.Platforms[domain.PlatformHackerNews].PostCount)

	entry, err := store.Get(cache.Key{Platform: domain.PlatformHackerNews, Keyword: "mqtt", Mode: domain.ModeHistorical})
	require.NoError(t, err)
	assert.Len(t, entry.Posts, 5, "cache keeps the pre-match result set")

	// Re-filtering under fuzzy reuses the cached 5 without a new fetch.
	res2, err := svc.Collect(context.Background(), "mqtt", []domain.Platform{domain.PlatformHackerNews},
		domain.ModeHistorical, domain.MatchFuzzy, false)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCacheHit, res2.Platforms[domain.PlatformHackerNews].Status)
	assert.Len(t, res2.Posts, 4)

	mc.AssertExpectations(t)
}

func TestCollectIsIdempotentViaCache(t *testing.T) {
	mc := &mockCollector{platform: domain.PlatformReddit}
	mc.On("Fetch", mock.Anything, "iot", domain.ModeHistorical, mock.Anything).
		Return(mqttRecords(), nil).Once()

	svc, _ := newService(t, map[domain.Platform]domain.Collector{domain.PlatformReddit: mc})

	first, err := svc.Collect(context.Background(), "iot", nil, domain.ModeHistorical, domain.MatchFuzzy, false)
	require.NoError(t, err)
	second, err := svc.Collect(context.Background(), "iot", nil, domain.ModeHistorical, domain.MatchFuzzy, false)
	require.NoError(t, err)

	assert.Equal(t, first.Posts, second.Posts)
	assert.Equal(t, domain.StatusCacheHit, second.Platforms[domain.PlatformReddit].Status)
	mc.AssertExpectations(t)
}

func TestKeywordsNormalizingAlikeShareCache(t *testing.T) {
	mc := &mockCollector{platform: domain.PlatformReddit}
	mc.On("Fetch", mock.Anything, "mqtt", domain.ModeHistorical, mock.Anything).
		Return(mqttRecords(), nil).Once()

	svc, _ := newService(t, map[domain.Platform]domain.Collector{domain.PlatformReddit: mc})

	_, err := svc.Collect(context.Background(), "  MQTT ", nil, domain.ModeHistorical, domain.MatchExact, false)
	require.NoError(t, err)
	res, err := svc.Collect(context.Background(), "mqtt", nil, domain.ModeHistorical, domain.MatchExact, false)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCacheHit, res.Platforms[domain.PlatformReddit].Status)
	mc.AssertExpectations(t)
}

func TestPartialFailure(t *testing.T) {
	failing := &mockCollector{platform: domain.PlatformYouTube}
	failing.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.NewCollectorError(domain.PlatformYouTube, domain.ErrNetwork, errors.New("connection reset"))).
		Twice() // initial attempt + one retry

	healthy := &mockCollector{platform: domain.PlatformHackerNews}
	healthy.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(mqttRecords(), nil).Once()

	svc, _ := newService(t, map[domain.Platform]domain.Collector{
		domain.PlatformYouTube:    failing,
		domain.PlatformHackerNews: healthy,
	})

	res, err := svc.Collect(context.Background(), "mqtt",
		[]domain.Platform{domain.PlatformYouTube, domain.PlatformHackerNews},
		domain.ModeHistorical, domain.MatchExact, false)

	require.NoError(t, err, "one healthy platform means overall success")
	assert.Equal(t, domain.StatusFailed, res.Platforms[domain.PlatformYouTube].Status)
	assert.Contains(t, res.Platforms[domain.PlatformYouTube].Error, "network_error")
	assert.Equal(t, domain.StatusSuccess, res.Platforms[domain.PlatformHackerNews].Status)
	assert.Len(t, res.Posts, 3)

	failing.AssertExpectations(t)
	healthy.AssertExpectations(t)
}

func TestRetryRecoversTransientFailure(t *testing.T) {
	mc := &mockCollector{platform: domain.PlatformReddit}
	mc.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.NewCollectorError(domain.PlatformReddit, domain.ErrRateLimited, errors.New("429"))).Once()
	mc.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(mqttRecords(), nil).Once()

	svc, _ := newService(t, map[domain.Platform]domain.Collector{domain.PlatformReddit: mc})

	res, err := svc.Collect(context.Background(), "mqtt", nil, domain.ModeHistorical, domain.MatchExact, false)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, res.Platforms[domain.PlatformReddit].Status)
	mc.AssertExpectations(t)
}

func TestNoRetryOnAuthOrUnsupported(t *testing.T) {
	for _, kind := range []domain.ErrorKind{domain.ErrAuthInvalid, domain.ErrNotSupported} {
		mc := &mockCollector{platform: domain.PlatformDiscord}
		mc.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, domain.NewCollectorError(domain.PlatformDiscord, kind, errors.New("nope"))).Once()

		svc, _ := newService(t, map[domain.Platform]domain.Collector{domain.PlatformDiscord: mc})

		res, err := svc.Collect(context.Background(), "mqtt",
			[]domain.Platform{domain.PlatformDiscord}, domain.ModeHot, domain.MatchExact, false)

		assert.ErrorIs(t, err, orchestrate.ErrNoPlatforms, "kind %s", kind)
		assert.Equal(t, domain.StatusFailed, res.Platforms[domain.PlatformDiscord].Status)
		mc.AssertExpectations(t)
	}
}

func TestAllPlatformsFailed(t *testing.T) {
	a := &mockCollector{platform: domain.PlatformReddit}
	a.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.NewCollectorError(domain.PlatformReddit, domain.ErrAuthInvalid, errors.New("no creds")))
	b := &mockCollector{platform: domain.PlatformYouTube}
	b.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.NewCollectorError(domain.PlatformYouTube, domain.ErrAuthInvalid, errors.New("no key")))

	svc, _ := newService(t, map[domain.Platform]domain.Collector{
		domain.PlatformReddit:  a,
		domain.PlatformYouTube: b,
	})

	res, err := svc.Collect(context.Background(), "mqtt",
		[]domain.Platform{domain.PlatformReddit, domain.PlatformYouTube},
		domain.ModeHistorical, domain.MatchExact, false)

	assert.ErrorIs(t, err, orchestrate.ErrNoPlatforms)
	require.NotNil(t, res)
	assert.Len(t, res.Platforms, 2, "statuses are enumerated even on total failure")
	assert.Empty(t, res.Posts)
}

func TestForceRefreshBypassesCache(t *testing.T) {
	mc := &mockCollector{platform: domain.PlatformReddit}
	mc.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(mqttRecords(), nil).Twice()

	svc, _ := newService(t, map[domain.Platform]domain.Collector{domain.PlatformReddit: mc})

	_, err := svc.Collect(context.Background(), "mqtt", nil, domain.ModeHistorical, domain.MatchExact, false)
	require.NoError(t, err)
	res, err := svc.Collect(context.Background(), "mqtt", nil, domain.ModeHistorical, domain.MatchExact, true)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSuccess, res.Platforms[domain.PlatformReddit].Status)
	mc.AssertExpectations(t)
}

func TestStaleEntryTriggersRefetch(t *testing.T) {
	mc := &mockCollector{platform: domain.PlatformReddit}
	mc.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(mqttRecords(), nil).Once()

	store, err := cache.NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	svc := orchestrate.NewService(map[domain.Platform]domain.Collector{domain.PlatformReddit: mc},
		store, nil, orchestrate.Options{CacheMaxAge: time.Nanosecond, RetryBackoff: time.Millisecond})

	key := cache.Key{Platform: domain.PlatformReddit, Keyword: "mqtt", Mode: domain.ModeHistorical}
	require.NoError(t, store.Put(key, []domain.Post{{Platform: domain.PlatformReddit, ID: "stale", Timestamp: time.Now()}}, "time_all"))
	time.Sleep(time.Millisecond)

	res, err := svc.Collect(context.Background(), "mqtt",
		[]domain.Platform{domain.PlatformReddit}, domain.ModeHistorical, domain.MatchExact, false)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, res.Platforms[domain.PlatformReddit].Status, "stale entry is refreshed")
	mc.AssertExpectations(t)
}

func TestCancelledCollectDoesNotWriteCache(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	mc := &mockCollector{platform: domain.PlatformReddit}
	mc.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(mqttRecords(), nil).Once()

	svc, store := newService(t, map[domain.Platform]domain.Collector{domain.PlatformReddit: mc})

	res, err := svc.Collect(ctx, "mqtt", []domain.Platform{domain.PlatformReddit},
		domain.ModeHistorical, domain.MatchExact, false)

	assert.ErrorIs(t, err, orchestrate.ErrNoPlatforms)
	assert.Equal(t, domain.StatusFailed, res.Platforms[domain.PlatformReddit].Status)

	_, err = store.Get(cache.Key{Platform: domain.PlatformReddit, Keyword: "mqtt", Mode: domain.ModeHistorical})
	assert.ErrorIs(t, err, cache.ErrMiss, "a cancelled fetch must not land in the cache")
}

func TestPlatformOrderPreservedWithinPlatform(t *testing.T) {
	mc := &mockCollector{platform: domain.PlatformHackerNews}
	mc.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.RawRecord{
			raw("a", "mqtt first", 1),
			raw("b", "mqtt second", 9),
			raw("c", "mqtt third", 3),
		}, nil).Once()

	svc, _ := newService(t, map[domain.Platform]domain.Collector{domain.PlatformHackerNews: mc})

	res, err := svc.Collect(context.Background(), "mqtt",
		[]domain.Platform{domain.PlatformHackerNews}, domain.ModeHistorical, domain.MatchExact, false)
	require.NoError(t, err)

	ids := make([]string, 0, len(res.Posts))
	for _, p := range res.Posts {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestCorruptCacheEntrySurfacesWarningAndRefetches(t *testing.T) {
	mc := &mockCollector{platform: domain.PlatformReddit}
	mc.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(mqttRecords(), nil).Once()

	dir := t.TempDir()
	store, err := cache.NewStore(dir, nil)
	require.NoError(t, err)
	svc := orchestrate.NewService(map[domain.Platform]domain.Collector{domain.PlatformReddit: mc},
		store, nil, orchestrate.Options{RetryBackoff: time.Millisecond})

	// Plant a corrupt entry at the key's exact location.
	key := cache.Key{Platform: domain.PlatformReddit, Keyword: "mqtt", Mode: domain.ModeHistorical}
	require.NoError(t, store.Put(key, nil, "time_all"))
	corruptCacheFile(t, dir)

	res, err := svc.Collect(context.Background(), "mqtt",
		[]domain.Platform{domain.PlatformReddit}, domain.ModeHistorical, domain.MatchExact, false)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSuccess, res.Platforms[domain.PlatformReddit].Status)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "corrupt cache entry")
	mc.AssertExpectations(t)
}

func TestCacheWriteFailureDegradesToWarning(t *testing.T) {
	mc := &mockCollector{platform: domain.PlatformReddit}
	mc.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(mqttRecords(), nil).Once()

	dir := t.TempDir()
	store, err := cache.NewStore(dir, nil)
	require.NoError(t, err)
	svc := orchestrate.NewService(map[domain.Platform]domain.Collector{domain.PlatformReddit: mc},
		store, nil, orchestrate.Options{RetryBackoff: time.Millisecond})

	// A file squatting on the platform subdir path makes every write fail.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reddit"), nil, 0o644))

	res, err := svc.Collect(context.Background(), "mqtt",
		[]domain.Platform{domain.PlatformReddit}, domain.ModeHistorical, domain.MatchExact, false)

	require.NoError(t, err, "the fetch succeeded; a failed cache write only degrades the result")
	assert.Equal(t, domain.StatusSuccess, res.Platforms[domain.PlatformReddit].Status)
	assert.Len(t, res.Posts, 3)
	assert.Contains(t, strings.Join(res.Warnings, "; "), "cache write failed")
	mc.AssertExpectations(t)
}

func corruptCacheFile(t *testing.T, dir string) {
	t.Helper()
	path := filepath.Join(dir, "reddit", "historical", "mqtt.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))
}
