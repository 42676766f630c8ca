// Package objstore builds the S3 client used for shared document links.
package objstore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Options carries the connection settings. Static credentials suit both
// AWS and MinIO-style endpoints.
type Options struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// Configured reports whether enough settings are present to build a client.
func (o Options) Configured() bool {
	return o.AccessKey != "" && o.SecretKey != ""
}

// New builds an S3 client, or nil when the store is not configured.
func New(ctx context.Context, opts Options) (*s3.Client, error) {
	if !opts.Configured() {
		return nil, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
