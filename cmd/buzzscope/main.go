// Command buzzscope tracks keyword mentions across Hacker News, Reddit,
// YouTube, and archived Discord exports.
//
// Usage:
//
//	buzzscope collect -keyword mqtt [-mode historical|hot] [-policy exact|fuzzy] [-refresh]
//	buzzscope analyze -keyword mqtt [-granularity daily|monthly]
//	buzzscope monitor [-keywords input/keywords.csv]
//	buzzscope stats
//	buzzscope serve [-keyword mqtt]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/qepting91/buzzscope/internal/analyze"
	"github.com/qepting91/buzzscope/internal/cache"
	"github.com/qepting91/buzzscope/internal/collector"
	"github.com/qepting91/buzzscope/internal/config"
	"github.com/qepting91/buzzscope/internal/dashboard"
	"github.com/qepting91/buzzscope/internal/domain"
	"github.com/qepting91/buzzscope/internal/ingest"
	"github.com/qepting91/buzzscope/internal/monitor"
	"github.com/qepting91/buzzscope/internal/orchestrate"
)

func main() {
	godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "collect":
		err = runCollect(ctx, cfg, logger, os.Args[2:])
	case "analyze":
		err = runAnalyze(cfg, logger, os.Args[2:])
	case "monitor":
		err = runMonitor(ctx, cfg, logger, os.Args[2:])
	case "stats":
		err = runStats(cfg, logger)
	case "serve":
		err = runServe(cfg, logger, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", "command", os.Args[1], "err", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: buzzscope <collect|analyze|monitor|stats|serve> [flags]")
}

func newService(cfg config.Config, logger *slog.Logger) (*orchestrate.Service, *cache.Store, error) {
	store, err := cache.NewStore(filepath.Join(cfg.DataDir, "cache"), logger)
	if err != nil {
		return nil, nil, err
	}
	collectors, err := collector.NewSet(cfg)
	if err != nil {
		return nil, nil, err
	}
	svc := orchestrate.NewService(collectors, store, logger, orchestrate.Options{
		CacheMaxAge:     cfg.CacheMaxAge,
		PlatformTimeout: cfg.PlatformTimeout,
		RetryBackoff:    cfg.RetryBackoff,
		HistoricalLimit: cfg.HistoricalLimit,
		HotLimit:        cfg.HotLimit,
	})
	return svc, store, nil
}

func runCollect(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("collect", flag.ExitOnError)
	keyword := fs.String("keyword", "", "keyword to collect (required)")
	mode := fs.String("mode", string(domain.ModeHistorical), "historical or hot")
	policy := fs.String("policy", string(domain.MatchExact), "exact or fuzzy")
	refresh := fs.Bool("refresh", false, "bypass the cache and refetch")
	fs.Parse(args)

	if *keyword == "" {
		return fmt.Errorf("collect: -keyword is required")
	}
	m, err := parseMode(*mode)
	if err != nil {
		return err
	}
	p, err := parsePolicy(*policy)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.OverallTimeout)
	defer cancel()

	svc, _, err := newService(cfg, logger)
	if err != nil {
		return err
	}

	res, err := svc.Collect(ctx, *keyword, nil, m, p, *refresh)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func runAnalyze(cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	keyword := fs.String("keyword", "", "keyword to analyze (required)")
	granularity := fs.String("granularity", string(analyze.Daily), "daily or monthly")
	policy := fs.String("policy", string(domain.MatchExact), "exact or fuzzy")
	fs.Parse(args)

	if *keyword == "" {
		return fmt.Errorf("analyze: -keyword is required")
	}
	p, err := parsePolicy(*policy)
	if err != nil {
		return err
	}

	// Analysis runs over whatever collect has already cached; missing
	// platforms are fetched the same way collect would.
	svc, _, err := newService(cfg, logger)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.OverallTimeout)
	defer cancel()

	res, err := svc.Collect(ctx, *keyword, nil, domain.ModeHistorical, p, false)
	if err != nil {
		return err
	}

	metrics := analyze.Compute(res.Keyword, res.Posts, analyze.Granularity(*granularity))
	return printJSON(metrics)
}

func runMonitor(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("monitor", flag.ExitOnError)
	keywordsPath := fs.String("keywords", cfg.MonitorKeywords, "CSV keyword list")
	schedule := fs.String("schedule", cfg.MonitorSchedule, "cron expression; empty runs one cycle")
	once := fs.Bool("once", false, "run a single check cycle and exit")
	fs.Parse(args)

	keywords, err := ingest.LoadKeywords(*keywordsPath)
	if err != nil {
		return fmt.Errorf("load keywords: %w", err)
	}
	if entries, err := ingest.LoadWatchlist(cfg.WatchlistPath); err == nil {
		for _, e := range entries {
			keywords = append(keywords, e.Keyword)
		}
	}
	keywords = dedup(keywords)
	if len(keywords) == 0 {
		return fmt.Errorf("monitor: no keywords configured")
	}

	svc, _, err := newService(cfg, logger)
	if err != nil {
		return err
	}

	state, err := monitor.LoadNotifiedSet(filepath.Join(cfg.DataDir, "notified.json"))
	if err != nil {
		return err
	}

	eventLog, err := monitor.NewFileNotifier(filepath.Join(cfg.DataDir, "events.ndjson"))
	if err != nil {
		return err
	}
	defer eventLog.Close()

	m := monitor.New(svc, state, []monitor.Notifier{monitor.NewLogNotifier(logger), eventLog},
		logger, monitor.Options{
			Keywords:     keywords,
			Retention:    cfg.MonitorRetention,
			Schedule:     *schedule,
			CycleTimeout: cfg.OverallTimeout,
		})

	if *once || *schedule == "" {
		_, err := m.Check(ctx)
		return err
	}
	return m.Run(ctx)
}

func runStats(cfg config.Config, logger *slog.Logger) error {
	_, store, err := newService(cfg, logger)
	if err != nil {
		return err
	}
	stats, err := store.Stats()
	if err != nil {
		return err
	}
	return printJSON(stats)
}

func runServe(cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	keyword := fs.String("keyword", "", "default keyword for the dashboard")
	fs.Parse(args)

	store, err := cache.NewStore(filepath.Join(cfg.DataDir, "cache"), logger)
	if err != nil {
		return err
	}
	return dashboard.NewServer(store, domain.NormalizeKeyword(*keyword), logger).Start(cfg.Port)
}

func dedup(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := keywords[:0]
	for _, k := range keywords {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func parseMode(s string) (domain.Mode, error) {
	switch m := domain.Mode(s); m {
	case domain.ModeHistorical, domain.ModeHot:
		return m, nil
	}
	return "", fmt.Errorf("invalid mode %q (want historical or hot)", s)
}

func parsePolicy(s string) (domain.MatchPolicy, error) {
	switch p := domain.MatchPolicy(s); p {
	case domain.MatchExact, domain.MatchFuzzy:
		return p, nil
	}
	return "", fmt.Errorf("invalid match policy %q (want exact or fuzzy)", s)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
