package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/qepting91/buzzscope/internal/domain"
)

// MockClient implements domain.Collector with deterministic fake data so
// the pipeline can run end to end without credentials or network access.
type MockClient struct {
	platform domain.Platform
}

func NewMockClient(platform domain.Platform) *MockClient {
	return &MockClient{platform: platform}
}

func (mc *MockClient) Platform() domain.Platform { return mc.platform }

func (mc *MockClient) Label(mode domain.Mode) string {
	if mode == domain.ModeHot {
		return "hot"
	}
	return "time_all"
}

func (mc *MockClient) Fetch(ctx context.Context, keyword string, mode domain.Mode, limit int) ([]domain.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewCollectorError(mc.platform, domain.ErrNetwork, err)
	}

	base := time.Now().UTC().Truncate(time.Hour)
	records := make([]domain.RawRecord, 0, limit)
	for i := 0; i < limit; i++ {
		title := fmt.Sprintf("simulated %s post #%d", mc.platform, i)
		// Every other record mentions the keyword as a whole word so both
		// match policies have something to find.
		if i%2 == 0 {
			title = fmt.Sprintf("simulated %s post #%d about %s today", mc.platform, i, keyword)
		}
		records = append(records, domain.RawRecord{
			ID:     fmt.Sprintf("mock_%s_%d", mc.platform, i),
			Title:  title,
			Body:   "generated for local development",
			Author: fmt.Sprintf("simulated_user_%d", i%3),
			Time:   base.Add(-time.Duration(i) * 24 * time.Hour),
			URL:    fmt.Sprintf("http://localhost/mock/%s/%d", mc.platform, i),
			Counts: map[string]int{"score": i * 10, "comments": i},
		})
	}
	return records, nil
}
