package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/qepting91/buzzscope/internal/domain"
)

// Notifier delivers one notification event to some channel. Delivery
// failures are per-event: the monitor logs them and moves on.
type Notifier interface {
	Notify(ctx context.Context, event domain.NotificationEvent) error
}

// LogNotifier writes events to the structured log. It is the default
// channel and always available.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, event domain.NotificationEvent) error {
	n.logger.Info("keyword mention",
		"keyword", event.Keyword,
		"platform", event.Platform,
		"title", event.Post.Title,
		"author", event.Post.Author,
		"url", event.Post.URL,
		"interaction_count", event.Post.InteractionCount,
	)
	return nil
}

// FileNotifier appends events as NDJSON, one event per line, so downstream
// tooling can tail or replay the stream.
type FileNotifier struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

func NewFileNotifier(path string) (*FileNotifier, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log %s: %w", path, err)
	}
	return &FileNotifier{file: f, enc: json.NewEncoder(f)}, nil
}

func (n *FileNotifier) Notify(_ context.Context, event domain.NotificationEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.enc.Encode(event); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (n *FileNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.file.Close()
}
