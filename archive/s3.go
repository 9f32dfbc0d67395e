// Package archive keeps the exact upstream snapshot bodies in S3 so the
// historical record can be rebuilt or audited independently of the store.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config contains minimal configuration for the snapshot archiver.
// Values fall back to the standard AWS config/credential chain.
type Config struct {
	Bucket string
	// Region to use for requests. If empty, AWS defaults apply.
	Region string
	// Prefix is prepended to every object key, e.g. "snapshots".
	Prefix string
}

// S3Archiver uploads raw feed snapshots to one bucket.
type S3Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates an archiver using the default AWS configuration chain.
func New(ctx context.Context, cfg Config) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive: bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3Archiver{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: prefix,
	}, nil
}

// Archive writes one raw snapshot body under
// <prefix>/<routeKey>/<RFC3339>.json.
func (a *S3Archiver) Archive(ctx context.Context, routeKey string, body []byte, at time.Time) error {
	key := fmt.Sprintf("%s%s/%s.json", a.prefix, routeKey, at.UTC().Format(time.RFC3339))

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("archive %s: %w", key, err)
	}
	return nil
}
