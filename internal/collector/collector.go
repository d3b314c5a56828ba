// Package collector implements the per-platform fetch capability behind the
// domain.Collector interface. Live collectors rate-limit themselves and
// classify failures into the shared error taxonomy; matching and caching are
// not their concern, so they return raw, unfiltered records.
package collector

import (
	"net/http"
	"time"

	"github.com/qepting91/buzzscope/internal/domain"
)

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}

// classifyStatus maps an HTTP response code to the collector error taxonomy.
func classifyStatus(code int) domain.ErrorKind {
	switch {
	case code == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return domain.ErrAuthInvalid
	default:
		return domain.ErrNetwork
	}
}
