package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/hyperifyio/jobextract/internal/posting"
)

// S3Config addresses an S3-compatible bucket (AWS, MinIO, Tigris).
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
}

// objectPutter is the part of *s3.Client the sinks use.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client builds a client with static credentials and, when an endpoint
// is set, path-style addressing.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3Sink uploads each record as <prefix>/postings/<file name>.
type S3Sink struct {
	Client objectPutter
	Bucket string
	Prefix string
}

func (s *S3Sink) Name() string { return "s3" }

func (s *S3Sink) Persist(ctx context.Context, p posting.JobPosting) error {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return put(ctx, s.Client, s.Bucket, path.Join(s.Prefix, "postings", FileName(p)), "application/json", b)
}

// S3RawArchive uploads raw model text as <prefix>/raw/<file name> with the
// url and model as object metadata.
type S3RawArchive struct {
	Client objectPutter
	Bucket string
	Prefix string
}

func (a *S3RawArchive) SaveRaw(ctx context.Context, url, model, text string) error {
	_, err := a.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.Bucket),
		Key:         aws.String(path.Join(a.Prefix, "raw", RawFileName())),
		Body:        bytes.NewReader([]byte(text)),
		ContentType: aws.String("text/plain; charset=utf-8"),
		Metadata:    map[string]string{"source-url": url, "model": model},
	})
	if err != nil {
		return fmt.Errorf("upload raw response: %w", err)
	}
	return nil
}

func put(ctx context.Context, c objectPutter, bucket, key, contentType string, body []byte) error {
	_, err := c.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}
