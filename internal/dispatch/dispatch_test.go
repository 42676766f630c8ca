package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerdesk/dealerdesk/internal/docgen"
)

type fakePutter struct {
	input *s3.PutObjectInput
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

type fakePresigner struct {
	url string
	err error
}

func (f *fakePresigner) PresignGetURL(_ context.Context, _, _ string, _ time.Duration) (string, error) {
	return f.url, f.err
}

func testArtifact() docgen.Artifact {
	return docgen.Artifact{
		Bytes:       []byte("%PDF-1.4 fake"),
		Filename:    "Contract_BMW_X5.pdf",
		ContentType: "application/pdf",
		Pages:       1,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseIntent(t *testing.T) {
	for raw, want := range map[string]Intent{
		"":         IntentDownload,
		"download": IntentDownload,
		"print":    IntentPrint,
		"share":    IntentShare,
	} {
		got, err := ParseIntent(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseIntent("telegram")
	require.Error(t, err)
}

func TestDisposition(t *testing.T) {
	assert.Equal(t, `attachment; filename=Contract_BMW_X5.pdf`, Disposition(IntentDownload, "Contract_BMW_X5.pdf"))
	assert.Equal(t, `inline; filename=Invoice_WBAXXXX.pdf`, Disposition(IntentPrint, "Invoice_WBAXXXX.pdf"))
}

func TestDeliverDownloadSpoolsWithGrace(t *testing.T) {
	dir := t.TempDir()
	d := newDispatcher(nil, nil, Options{SpoolDir: dir, Grace: 50 * time.Millisecond}, discardLogger())

	receipt, err := d.Deliver(context.Background(), testArtifact(), IntentDownload, ShareMeta{})
	require.NoError(t, err)
	assert.True(t, receipt.Opened)
	assert.Equal(t, IntentDownload, receipt.Intent)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "Contract_BMW_X5.pdf")

	raw, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, testArtifact().Bytes, raw)

	// The spooled copy disappears after the grace period.
	require.Eventually(t, func() bool {
		entries, err := os.ReadDir(dir)
		return err == nil && len(entries) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestDeliverShare(t *testing.T) {
	putter := &fakePutter{}
	presigner := &fakePresigner{url: "https://s3.example.com/shared/doc?sig=abc"}
	d := newDispatcher(putter, presigner, Options{Bucket: "docs", SpoolDir: t.TempDir()}, discardLogger())

	meta := ShareMeta{Title: "Sale contract", Text: "BMW X5", DialogTitle: "Share contract"}
	receipt, err := d.Deliver(context.Background(), testArtifact(), IntentShare, meta)
	require.NoError(t, err)

	assert.True(t, receipt.Opened)
	assert.Equal(t, IntentShare, receipt.Intent)
	assert.Equal(t, presigner.url, receipt.URL)

	require.NotNil(t, putter.input)
	assert.Equal(t, "docs", *putter.input.Bucket)
	assert.Contains(t, *putter.input.Key, "Contract_BMW_X5.pdf")
	assert.Equal(t, "application/pdf", *putter.input.ContentType)
	assert.Equal(t, "Sale contract", putter.input.Metadata["share-title"])
	assert.Equal(t, "BMW X5", putter.input.Metadata["share-text"])
	assert.Equal(t, "Share contract", putter.input.Metadata["share-dialog-title"])
}

func TestDeliverShareDegradesToDownload(t *testing.T) {
	putter := &fakePutter{err: errors.New("bucket unreachable")}
	d := newDispatcher(putter, &fakePresigner{}, Options{Bucket: "docs", SpoolDir: t.TempDir(), Grace: time.Hour}, discardLogger())

	receipt, err := d.Deliver(context.Background(), testArtifact(), IntentShare, ShareMeta{})
	require.NoError(t, err)

	assert.False(t, receipt.Opened)
	assert.Equal(t, IntentDownload, receipt.Intent)
	assert.Empty(t, receipt.URL)
}

func TestDeliverShareUnconfigured(t *testing.T) {
	d := newDispatcher(nil, nil, Options{SpoolDir: t.TempDir(), Grace: time.Hour}, discardLogger())

	receipt, err := d.Deliver(context.Background(), testArtifact(), IntentShare, ShareMeta{})
	require.NoError(t, err)
	assert.False(t, receipt.Opened)
}
