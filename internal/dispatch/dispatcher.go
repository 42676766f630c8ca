package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dealerdesk/dealerdesk/internal/docgen"
)

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type objectPresigner interface {
	PresignGetURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
}

// presignAdapter narrows the SDK presign client to the single call the
// dispatcher needs.
type presignAdapter struct {
	client *s3.PresignClient
}

func (a presignAdapter) PresignGetURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
	req, err := a.client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// Dispatcher routes artifacts to their delivery destination. Download
// and print artifacts are spooled locally for the hand-off and removed
// after a grace period; shared artifacts are uploaded and handed back as
// a presigned link.
type Dispatcher struct {
	putter    objectPutter
	presigner objectPresigner
	bucket    string
	linkTTL   time.Duration
	spoolDir  string
	grace     time.Duration
	logger    *slog.Logger
}

// Options configures a Dispatcher.
type Options struct {
	Bucket   string
	LinkTTL  time.Duration
	SpoolDir string
	Grace    time.Duration
}

// New builds a dispatcher on an S3 client. A nil client disables the
// share path; share requests then degrade to a download receipt.
func New(client *s3.Client, opts Options, logger *slog.Logger) *Dispatcher {
	var putter objectPutter
	var presigner objectPresigner
	if client != nil {
		putter = client
		presigner = presignAdapter{client: s3.NewPresignClient(client)}
	}
	return newDispatcher(putter, presigner, opts, logger)
}

func newDispatcher(putter objectPutter, presigner objectPresigner, opts Options, logger *slog.Logger) *Dispatcher {
	if opts.Grace <= 0 {
		opts.Grace = 10 * time.Second
	}
	if opts.LinkTTL <= 0 {
		opts.LinkTTL = 24 * time.Hour
	}
	return &Dispatcher{
		putter:    putter,
		presigner: presigner,
		bucket:    opts.Bucket,
		linkTTL:   opts.LinkTTL,
		spoolDir:  opts.SpoolDir,
		grace:     opts.Grace,
		logger:    logger,
	}
}

// Deliver hands the artifact off per the intent and reports a receipt.
// A failed share upload falls back to the download path with
// Opened=false so the caller can surface the degradation.
func (d *Dispatcher) Deliver(ctx context.Context, artifact docgen.Artifact, intent Intent, meta ShareMeta) (Receipt, error) {
	switch intent {
	case IntentShare:
		url, err := d.share(ctx, artifact, meta)
		if err != nil {
			d.logger.Warn("share delivery degraded to download", "filename", artifact.Filename, "error", err)
			if _, spoolErr := d.spool(artifact); spoolErr != nil {
				return Receipt{}, spoolErr
			}
			return Receipt{Intent: IntentDownload, Opened: false}, nil
		}
		return Receipt{Intent: IntentShare, Opened: true, URL: url}, nil
	case IntentDownload, IntentPrint:
		if _, err := d.spool(artifact); err != nil {
			return Receipt{}, err
		}
		return Receipt{Intent: intent, Opened: true}, nil
	}
	return Receipt{}, fmt.Errorf("unknown delivery intent %q", intent)
}

func (d *Dispatcher) share(ctx context.Context, artifact docgen.Artifact, meta ShareMeta) (string, error) {
	if d.putter == nil || d.presigner == nil {
		return "", fmt.Errorf("share delivery not configured")
	}

	key := fmt.Sprintf("shared/%s/%s/%s", time.Now().UTC().Format("2006/01/02"), uuid.New(), artifact.Filename)
	_, err := d.putter.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(artifact.Bytes),
		ContentType: aws.String(artifact.ContentType),
		Metadata: map[string]string{
			"share-title":        meta.Title,
			"share-text":         meta.Text,
			"share-dialog-title": meta.DialogTitle,
		},
	})
	if err != nil {
		return "", fmt.Errorf("upload shared document: %w", err)
	}

	url, err := d.presigner.PresignGetURL(ctx, d.bucket, key, d.linkTTL)
	if err != nil {
		return "", fmt.Errorf("presign shared document: %w", err)
	}
	return url, nil
}

// spool writes the artifact to local disk for the hand-off window and
// schedules its removal once the grace period elapses.
func (d *Dispatcher) spool(artifact docgen.Artifact) (string, error) {
	if d.spoolDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(d.spoolDir, 0o755); err != nil {
		return "", fmt.Errorf("create spool dir: %w", err)
	}

	path := filepath.Join(d.spoolDir, uuid.NewString()+"_"+artifact.Filename)
	if err := os.WriteFile(path, artifact.Bytes, 0o644); err != nil {
		return "", fmt.Errorf("spool artifact: %w", err)
	}

	time.AfterFunc(d.grace, func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			d.logger.Debug("spool cleanup failed", "path", path, "error", err)
		}
	})
	return path, nil
}
