package render

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// Logo loads the company logo once and serves it as a data URI. A missing
// logo degrades to an empty URI; templates render a neutral box instead.
type Logo struct {
	source string
	client *http.Client
	logger *slog.Logger

	mu     sync.Mutex
	cached string
	loaded bool
}

// NewLogo constructs a logo loader for a local path or URL.
func NewLogo(source string, logger *slog.Logger) *Logo {
	return &Logo{
		source: source,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// DataURI returns the logo as an embeddable data URI, or "" when the asset
// could not be loaded.
func (l *Logo) DataURI(ctx context.Context) string {
	if l == nil {
		return ""
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return l.cached
	}
	raw, err := l.fetch(ctx)
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("logo asset unavailable", slog.String("source", l.source), slog.Any("error", err))
		}
		return ""
	}
	l.loaded = true
	l.cached = "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)
	return l.cached
}

func (l *Logo) fetch(ctx context.Context) ([]byte, error) {
	if strings.HasPrefix(l.source, "http://") || strings.HasPrefix(l.source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.source, nil)
		if err != nil {
			return nil, err
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, io.ErrUnexpectedEOF
		}
		return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	}
	return os.ReadFile(l.source)
}
