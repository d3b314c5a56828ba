// Package dashboard renders cached keyword metrics as browser charts.
package dashboard

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/qepting91/buzzscope/internal/analyze"
	"github.com/qepting91/buzzscope/internal/cache"
	"github.com/qepting91/buzzscope/internal/domain"
	"github.com/qepting91/buzzscope/internal/match"
)

// Server serves charts over the cached corpus. It never triggers live
// collection; an empty chart means the keyword has not been collected yet.
type Server struct {
	store          *cache.Store
	defaultKeyword string
	logger         *slog.Logger
}

func NewServer(store *cache.Store, defaultKeyword string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: store, defaultKeyword: defaultKeyword, logger: logger}
}

// Start blocks serving the dashboard on the given port.
func (s *Server) Start(port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	s.logger.Info("dashboard listening", "port", port)
	return http.ListenAndServe(":"+port, mux)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	keyword := domain.NormalizeKeyword(r.URL.Query().Get("keyword"))
	if keyword == "" {
		keyword = s.defaultKeyword
	}
	if keyword == "" {
		http.Error(w, "no keyword selected; pass ?keyword=<term>", http.StatusBadRequest)
		return
	}
	policy := domain.MatchExact
	if r.URL.Query().Get("policy") == string(domain.MatchFuzzy) {
		policy = domain.MatchFuzzy
	}

	posts, err := s.cachedPosts(keyword, policy)
	if err != nil {
		s.logger.Error("dashboard load failed", "keyword", keyword, "err", err)
		http.Error(w, "failed to load cached posts", http.StatusInternalServerError)
		return
	}

	metrics := analyze.Compute(keyword, posts, analyze.Daily)

	if err := s.renderTrend(w, metrics); err == nil {
		err = s.renderPlatformShare(w, metrics)
		if err == nil {
			err = s.renderContributors(w, metrics)
		}
	}
	if err != nil {
		s.logger.Error("chart render failed", "keyword", keyword, "err", err)
	}
}

// cachedPosts gathers the historical cache entries for every platform and
// re-filters them under the requested policy. Misses just mean no data.
func (s *Server) cachedPosts(keyword string, policy domain.MatchPolicy) ([]domain.Post, error) {
	matcher, err := match.New(keyword, policy)
	if err != nil {
		return nil, err
	}

	var posts []domain.Post
	for _, platform := range domain.AllPlatforms {
		entry, err := s.store.Get(cache.Key{Platform: platform, Keyword: keyword, Mode: domain.ModeHistorical})
		if err != nil {
			continue
		}
		for _, p := range entry.Posts {
			if matcher.MatchPost(p) {
				posts = append(posts, p)
			}
		}
	}
	return posts, nil
}

func (s *Server) renderTrend(w http.ResponseWriter, m analyze.Metrics) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Mentions of %q", m.Keyword),
			Subtitle: fmt.Sprintf("%d mentions, %d authors, %d interactions", m.TotalMentions, m.UniqueAuthors, m.TotalInteractions),
		}),
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
	)

	var x []string
	var y []opts.LineData
	for _, p := range m.Trend {
		x = append(x, p.Bucket.Format("2006-01-02"))
		y = append(y, opts.LineData{Value: p.Count})
	}
	line.SetXAxis(x).AddSeries("Mentions", y)
	return line.Render(w)
}

func (s *Server) renderPlatformShare(w http.ResponseWriter, m analyze.Metrics) error {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Platform Share"}),
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
	)

	var items []opts.PieData
	for platform, pm := range m.ByPlatform {
		items = append(items, opts.PieData{Name: string(platform), Value: pm.Mentions})
	}
	pie.AddSeries("Mentions", items)
	return pie.Render(w)
}

func (s *Server) renderContributors(w http.ResponseWriter, m analyze.Metrics) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "Top Contributors"}))

	var x []string
	var y []opts.BarData
	for _, c := range m.TopContributors {
		x = append(x, c.Author)
		y = append(y, opts.BarData{Value: c.Mentions})
	}
	bar.SetXAxis(x).AddSeries("Mentions", y)
	return bar.Render(w)
}
