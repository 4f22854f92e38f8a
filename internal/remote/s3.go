package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"billsync/internal/config"
	"billsync/internal/sync"
)

// S3Remote stores each principal's document as an S3 object at
// <prefix>/<principalID>.json.
type S3Remote struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

var _ sync.Remote = (*S3Remote)(nil)

// NewS3Remote creates an S3 remote from config. When no static keys
// are configured, the ambient AWS credential chain is used.
func NewS3Remote(ctx context.Context, cfg config.RemoteConfig) (*S3Remote, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 remote requires s3_bucket to be set")
	}

	var optFns []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Remote{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.S3Bucket,
		prefix:   cfg.S3Prefix,
	}, nil
}

func (r *S3Remote) key(principalID string) string {
	return path.Join(r.prefix, principalID+".json")
}

func (r *S3Remote) Read(ctx context.Context, principalID string) (*sync.Document, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key(principalID)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, nil
		}
		return nil, classify("reading remote document", err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, sync.NewTransient("reading remote document body", err)
	}

	var doc sync.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding remote document: %w", err)
	}
	return &doc, nil
}

func (r *S3Remote) Write(ctx context.Context, principalID string, doc *sync.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding remote document: %w", err)
	}

	_, err = r.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(r.key(principalID)),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return classify("writing remote document", err)
	}
	return nil
}

// apiError matches AWS service errors without binding to the smithy
// packages directly.
type apiError interface{ ErrorCode() string }

// classify maps S3 failures onto the reconciler's taxonomy: credential
// problems are fatal, everything else on the wire is retryable.
func classify(msg string, err error) error {
	var ae apiError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch",
			"ExpiredToken", "TokenRefreshRequired":
			return sync.NewAuthRevoked(msg, err)
		}
	}
	return sync.NewTransient(msg, err)
}
