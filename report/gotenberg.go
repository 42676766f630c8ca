package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

// RenderOptions configure one HTML-to-PDF conversion.
type RenderOptions struct {
	// Paper size in inches. Zero values fall back to A4 portrait.
	PaperWidth  float64
	PaperHeight float64
	// Margins in inches.
	MarginTop    float64
	MarginBottom float64
	MarginLeft   float64
	MarginRight  float64
	// Scale is the Chromium rendering scale factor (oversampling).
	Scale float64
	// WaitDelay gives embedded assets time to settle before capture.
	WaitDelay time.Duration
}

// A4 returns the house default: A4 portrait, zero margins.
func A4(scale float64) RenderOptions {
	return RenderOptions{
		PaperWidth:  8.27,
		PaperHeight: 11.69,
		Scale:       scale,
		WaitDelay:   100 * time.Millisecond,
	}
}

// Client wraps interactions with the Gotenberg API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Ping checks if the remote Gotenberg service is available.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gotenberg returned status %d", resp.StatusCode)
	}
	return nil
}

// RenderHTML converts raw HTML into a PDF document using Gotenberg.
func (c *Client) RenderHTML(ctx context.Context, html string, opts RenderOptions) ([]byte, error) {
	if opts.PaperWidth == 0 || opts.PaperHeight == 0 {
		opts.PaperWidth, opts.PaperHeight = 8.27, 11.69
	}
	if opts.Scale == 0 {
		opts.Scale = 1
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "document.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, bytes.NewBufferString(html)); err != nil {
		return nil, err
	}

	fields := map[string]string{
		"paperWidth":   formatFloat(opts.PaperWidth),
		"paperHeight":  formatFloat(opts.PaperHeight),
		"marginTop":    formatFloat(opts.MarginTop),
		"marginBottom": formatFloat(opts.MarginBottom),
		"marginLeft":   formatFloat(opts.MarginLeft),
		"marginRight":  formatFloat(opts.MarginRight),
		"scale":        formatFloat(opts.Scale),
	}
	if opts.WaitDelay > 0 {
		fields["waitDelay"] = strconv.FormatInt(opts.WaitDelay.Milliseconds(), 10) + "ms"
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/forms/chromium/convert/html", c.baseURL), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("render failed with status %d: %s", resp.StatusCode, string(data))
	}
	return io.ReadAll(resp.Body)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
