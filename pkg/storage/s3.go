package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Config holds configuration for S3 storage.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"` // MinIO
	PublicURL       string `mapstructure:"public_url"`
}

// S3Store keeps recordings in a bucket. Bodies do not seek; ranged reads go
// through OpenRange.
type S3Store struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	publicURL string
}

// NewS3Store builds a client for cfg. Static credentials are used when both
// keys are set, the default AWS chain otherwise.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Store{
		client:    client,
		presign:   s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
	}, nil
}

// Write uploads r under key.
func (s *S3Store) Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if contentType == "" {
		contentType = ContentType(key)
	}
	in.ContentType = aws.String(contentType)
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Open fetches the whole object.
func (s *S3Store) Open(ctx context.Context, key string) (*Object, error) {
	obj, _, err := s.OpenRange(ctx, key, "")
	return obj, err
}

// OpenRange fetches a byte range of key. rng is an HTTP Range header value,
// empty for the whole object. The Content-Range of a partial response is
// returned alongside the object.
func (s *S3Store) OpenRange(ctx context.Context, key, rng string) (*Object, string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, "", err
	}
	in := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if rng != "" {
		in.Range = aws.String(rng)
	}

	out, err := s.client.GetObject(ctx, in)
	if err != nil {
		return nil, "", s3Error("get", key, err)
	}
	info := s3Info(key, out.ContentLength, out.LastModified, out.ContentType)
	return &Object{Body: out.Body, Info: info}, aws.ToString(out.ContentRange), nil
}

// Stat heads key.
func (s *S3Store) Stat(ctx context.Context, key string) (FileInfo, error) {
	key, err := CleanKey(key)
	if err != nil {
		return FileInfo{}, err
	}
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return FileInfo{}, s3Error("head", key, err)
	}
	return s3Info(key, out.ContentLength, out.LastModified, out.ContentType), nil
}

// GetURL returns the public URL of key when one is configured, a presigned
// GET valid for expires otherwise.
func (s *S3Store) GetURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	if s.publicURL != "" {
		return s.publicURL + "/" + key, nil
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

func s3Info(key string, size *int64, modified *time.Time, contentType *string) FileInfo {
	info := FileInfo{
		Key:          key,
		Size:         aws.ToInt64(size),
		LastModified: aws.ToTime(modified),
		ContentType:  aws.ToString(contentType),
	}
	if info.ContentType == "" {
		info.ContentType = ContentType(key)
	}
	return info
}

// s3Error maps missing objects onto ErrNotFound. HEAD responses carry no
// error body, so the status code is checked as well as the API code.
func s3Error(op, key string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return fmt.Errorf("%s %s: %w", op, key, err)
}
