// Package stamp prepares the business stamp raster for document overlay.
package stamp

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	// Chroma key thresholds: a pixel is treated as background when it is
	// bright (max channel above brightThreshold) and desaturated (channel
	// spread below spreadThreshold).
	brightThreshold = 230
	spreadThreshold = 25
)

// Processor loads the stamp asset once and serves the keyed result for the
// process lifetime. Safe for concurrent use; the cache is read-only after
// the first successful decode.
type Processor struct {
	source string
	client *http.Client
	logger *slog.Logger

	mu           sync.Mutex
	cached       []byte // encoded PNG with background removed
	fallback     []byte // original asset bytes, used when keying failed
	fallbackMime string // sniffed content type of the original asset
	loaded       bool
}

// NewProcessor constructs a stamp processor for a local path or URL.
func NewProcessor(source string, logger *slog.Logger) *Processor {
	return &Processor{
		source: source,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// DataURI returns the stamp as an embeddable data URI. When loading or
// keying fails the original asset is served opaque; rendering never blocks
// on stamp failure. An empty string means no stamp is available at all.
func (p *Processor) DataURI(ctx context.Context) string {
	data, mime := p.bytes(ctx)
	if len(data) == 0 {
		return ""
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func (p *Processor) bytes(ctx context.Context) ([]byte, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		if p.cached != nil {
			return p.cached, "image/png"
		}
		return p.fallback, p.fallbackMime
	}

	raw, err := p.fetch(ctx)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("stamp asset unavailable", slog.String("source", p.source), slog.Any("error", err))
		}
		// Do not mark loaded: a later call may succeed.
		return nil, ""
	}
	p.loaded = true
	p.fallback = raw
	// The opaque fallback keeps the source encoding, so its mime must
	// be sniffed rather than assumed PNG.
	p.fallbackMime = http.DetectContentType(raw)

	keyed, err := RemoveBackground(raw)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("stamp chroma key failed, serving opaque asset", slog.Any("error", err))
		}
		return p.fallback, p.fallbackMime
	}
	p.cached = keyed
	return p.cached, "image/png"
}

// Invalidate drops the cache so the next call reloads the asset.
func (p *Processor) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = nil
	p.fallback = nil
	p.fallbackMime = ""
	p.loaded = false
}

func (p *Processor) fetch(ctx context.Context) ([]byte, error) {
	if p.source == "" {
		return nil, fmt.Errorf("stamp: no source configured")
	}
	if strings.HasPrefix(p.source, "http://") || strings.HasPrefix(p.source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.source, nil)
		if err != nil {
			return nil, err
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("stamp: fetch status %d", resp.StatusCode)
		}
		return io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	}
	return os.ReadFile(p.source)
}

// RemoveBackground decodes a raster image and clears near-white, low
// saturation pixels to full transparency, returning the result as PNG.
func RemoveBackground(raw []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("stamp: decode: %w", err)
	}
	bounds := src.Bounds()
	out := image.NewNRGBA(bounds)
	draw.Draw(out, bounds, src, bounds.Min, draw.Src)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := out.NRGBAAt(x, y)
			if isBackground(c) {
				c.A = 0
				out.SetNRGBA(x, y, c)
			}
		}
	}

	buf := &bytes.Buffer{}
	if err := png.Encode(buf, out); err != nil {
		return nil, fmt.Errorf("stamp: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func isBackground(c color.NRGBA) bool {
	maxC := max3(c.R, c.G, c.B)
	minC := min3(c.R, c.G, c.B)
	return int(maxC) > brightThreshold && int(maxC)-int(minC) < spreadThreshold
}

func max3(a, b, c uint8) uint8 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func min3(a, b, c uint8) uint8 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
