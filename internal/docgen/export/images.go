package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dealerdesk/dealerdesk/internal/docgen"
)

var imgSrcRe = regexp.MustCompile(`(?i)<img[^>]+src="([^"]+)"`)

// ImageBarrier waits until every embedded raster image in the document is
// decodable with nonzero dimensions, or the timeout elapses. A timeout or
// undecodable image yields an AssetError; images are never silently
// omitted from the capture.
type ImageBarrier struct {
	Client  *http.Client
	Timeout time.Duration
}

// NewImageBarrier builds a barrier with the configured budget.
func NewImageBarrier(timeout time.Duration) *ImageBarrier {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &ImageBarrier{
		Client:  &http.Client{Timeout: timeout},
		Timeout: timeout,
	}
}

// Wait checks every <img> source in the HTML concurrently.
func (b *ImageBarrier) Wait(ctx context.Context, html string) error {
	sources := collectImageSources(html)
	if len(sources) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		g.Go(func() error {
			if err := b.check(ctx, src); err != nil {
				return &docgen.AssetError{URL: truncate(src, 64), Err: err}
			}
			return nil
		})
	}
	return g.Wait()
}

func (b *ImageBarrier) check(ctx context.Context, src string) error {
	var raw []byte
	switch {
	case strings.HasPrefix(src, "data:"):
		idx := strings.Index(src, "base64,")
		if idx < 0 {
			return fmt.Errorf("unsupported data URI encoding")
		}
		decoded, err := base64.StdEncoding.DecodeString(src[idx+len("base64,"):])
		if err != nil {
			return fmt.Errorf("decode data URI: %w", err)
		}
		raw = decoded
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return err
		}
		resp, err := b.Client.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("fetch status %d", resp.StatusCode)
		}
		raw, err = io.ReadAll(io.LimitReader(resp.Body, 16<<20))
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported image source")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("image has zero dimensions")
	}
	return nil
}

func collectImageSources(html string) []string {
	matches := imgSrcRe.FindAllStringSubmatch(html, -1)
	seen := make(map[string]struct{}, len(matches))
	var sources []string
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		sources = append(sources, m[1])
	}
	return sources
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
