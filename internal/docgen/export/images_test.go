package export

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerdesk/dealerdesk/internal/docgen"
)

// 1x1 opaque PNG.
const tinyPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg=="

func TestImageBarrierDataURI(t *testing.T) {
	b := NewImageBarrier(time.Second)
	html := `<img src="data:image/png;base64,` + tinyPNG + `">`

	require.NoError(t, b.Wait(context.Background(), html))
}

func TestImageBarrierNoImages(t *testing.T) {
	b := NewImageBarrier(time.Second)

	require.NoError(t, b.Wait(context.Background(), "<p>no images here</p>"))
}

func TestImageBarrierBrokenDataURI(t *testing.T) {
	b := NewImageBarrier(time.Second)
	html := `<img src="data:image/png;base64,not-base64!!">`

	err := b.Wait(context.Background(), html)
	require.Error(t, err)
	var assetErr *docgen.AssetError
	require.ErrorAs(t, err, &assetErr)
}

func TestImageBarrierHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(mustDecodePNG(t))
	}))
	defer srv.Close()

	b := NewImageBarrier(time.Second)
	html := `<img src="` + srv.URL + `/stamp.png">`

	require.NoError(t, b.Wait(context.Background(), html))
}

func TestImageBarrierHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	b := NewImageBarrier(time.Second)
	html := `<img src="` + srv.URL + `/missing.png">`

	err := b.Wait(context.Background(), html)
	require.Error(t, err)
	var assetErr *docgen.AssetError
	require.ErrorAs(t, err, &assetErr)
	assert.Contains(t, assetErr.URL, srv.URL[:20])
}

func mustDecodePNG(t *testing.T) []byte {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(tinyPNG)
	require.NoError(t, err)
	return raw
}

func TestCollectImageSourcesDeduplicates(t *testing.T) {
	html := `<img src="a.png"><img src="b.png"><img src="a.png">`
	// Relative sources are still collected; the check rejects them later.
	assert.Equal(t, []string{"a.png", "b.png"}, collectImageSources(html))
}
