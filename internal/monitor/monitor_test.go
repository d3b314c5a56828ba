package monitor_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qepting91/buzzscope/internal/domain"
	"github.com/qepting91/buzzscope/internal/monitor"
	"github.com/qepting91/buzzscope/internal/orchestrate"
)

// stubCollector hands back canned results per keyword and counts calls.
type stubCollector struct {
	results map[string]*domain.CollectionResult
	err     error
	calls   int
}

func (s *stubCollector) Collect(_ context.Context, keyword string, _ []domain.Platform,
	_ domain.Mode, _ domain.MatchPolicy, _ bool) (*domain.CollectionResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	res, ok := s.results[domain.NormalizeKeyword(keyword)]
	if !ok {
		res = &domain.CollectionResult{Keyword: domain.NormalizeKeyword(keyword)}
	}
	return res, nil
}

// captureNotifier records delivered events.
type captureNotifier struct {
	events []domain.NotificationEvent
	err    error
}

func (c *captureNotifier) Notify(_ context.Context, e domain.NotificationEvent) error {
	c.events = append(c.events, e)
	return c.err
}

func hotPost(id, title string) domain.Post {
	return domain.Post{
		Platform:     domain.PlatformHackerNews,
		ID:           id,
		Title:        title,
		Author:       "poster",
		Timestamp:    time.Now().UTC(),
		Interactions: 42,
		URL:          "https://news.ycombinator.com/item?id=" + id,
	}
}

func newTestMonitor(t *testing.T, collector monitor.Collector, notifiers ...monitor.Notifier) (*monitor.Monitor, string) {
	t.Helper()
	statePath := filepath.Join(t.TempDir(), "notified.json")
	state, err := monitor.LoadNotifiedSet(statePath)
	require.NoError(t, err)
	m := monitor.New(collector, state, notifiers, nil, monitor.Options{
		Keywords: []string{"mqtt"},
	})
	return m, statePath
}

func TestCheckNotifiesOnlyNewPosts(t *testing.T) {
	collector := &stubCollector{results: map[string]*domain.CollectionResult{
		"mqtt": {Keyword: "mqtt", Posts: []domain.Post{hotPost("1", "mqtt at scale"), hotPost("2", "mqtt brokers")}},
	}}
	capture := &captureNotifier{}
	m, _ := newTestMonitor(t, collector, capture)

	events, err := m.Check(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Len(t, capture.events, 2)
	assert.Equal(t, "mqtt", capture.events[0].Keyword)
	assert.Equal(t, "mqtt at scale", capture.events[0].Post.Title)

	// Second cycle sees the same posts and stays silent.
	events, err = m.Check(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Len(t, capture.events, 2)
	assert.Equal(t, 2, collector.calls)
}

func TestDedupStateSurvivesRestart(t *testing.T) {
	collector := &stubCollector{results: map[string]*domain.CollectionResult{
		"mqtt": {Keyword: "mqtt", Posts: []domain.Post{hotPost("1", "mqtt news")}},
	}}
	m, statePath := newTestMonitor(t, collector)

	_, err := m.Check(context.Background())
	require.NoError(t, err)

	// A fresh monitor over the same state file must not re-notify.
	state, err := monitor.LoadNotifiedSet(statePath)
	require.NoError(t, err)
	assert.True(t, state.Contains(domain.PlatformHackerNews, "1"))

	capture := &captureNotifier{}
	restarted := monitor.New(collector, state, []monitor.Notifier{capture}, nil,
		monitor.Options{Keywords: []string{"mqtt"}})
	events, err := restarted.Check(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Empty(t, capture.events)
}

func TestCollectorFailureDegradesCycle(t *testing.T) {
	collector := &stubCollector{err: orchestrate.ErrNoPlatforms}
	capture := &captureNotifier{}
	m, _ := newTestMonitor(t, collector, capture)

	events, err := m.Check(context.Background())
	require.NoError(t, err, "an unreachable platform set is degradation, not cycle failure")
	assert.Empty(t, events)
}

func TestNotifierFailureDoesNotBlockOthers(t *testing.T) {
	collector := &stubCollector{results: map[string]*domain.CollectionResult{
		"mqtt": {Keyword: "mqtt", Posts: []domain.Post{hotPost("1", "mqtt")}},
	}}
	broken := &captureNotifier{err: errors.New("smtp down")}
	healthy := &captureNotifier{}
	m, _ := newTestMonitor(t, collector, broken, healthy)

	events, err := m.Check(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Len(t, healthy.events, 1, "second channel still delivers")
}

func TestPruneDropsExpiredEntries(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "notified.json")
	state, err := monitor.LoadNotifiedSet(statePath)
	require.NoError(t, err)

	now := time.Now().UTC()
	state.Add(domain.PlatformReddit, "old", now.Add(-40*24*time.Hour))
	state.Add(domain.PlatformReddit, "recent", now.Add(-time.Hour))

	dropped := state.Prune(30*24*time.Hour, now)
	assert.Equal(t, 1, dropped)
	assert.False(t, state.Contains(domain.PlatformReddit, "old"))
	assert.True(t, state.Contains(domain.PlatformReddit, "recent"))
}

func TestStateSaveAndReload(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state", "notified.json")
	state, err := monitor.LoadNotifiedSet(statePath)
	require.NoError(t, err)

	state.Add(domain.PlatformYouTube, "abc", time.Now())
	require.NoError(t, state.Save())

	reloaded, err := monitor.LoadNotifiedSet(statePath)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Len())
	assert.True(t, reloaded.Contains(domain.PlatformYouTube, "abc"))
}

func TestCorruptStateFileIsAnError(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "notified.json")
	require.NoError(t, os.WriteFile(statePath, []byte("{not json"), 0o644))

	_, err := monitor.LoadNotifiedSet(statePath)
	assert.Error(t, err, "starting empty would replay every notification")
}
