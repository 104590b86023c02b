// Copyright (c) 2026 Netskope, Inc. All rights reserved.

package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/netSkope/s3-adls-connector/internal/xfererr"
	"go.uber.org/zap"
)

// SupportedExtensions are the object extensions offered for transfer.
var SupportedExtensions = []string{"csv", "json", "parquet"}

// Config identifies the source bucket and the credentials used to reach it.
// Credentials are held only for the lifetime of the Source.
type Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// Endpoint overrides the S3 endpoint (LocalStack, S3-compatible stores)
	// and switches to path-style addressing.
	Endpoint string
}

// Object describes a listed object.
type Object struct {
	Key       string
	Size      int64
	Extension string
}

// BaseName is the object's file name without any key prefix.
func (o Object) BaseName() string {
	return path.Base(o.Key)
}

// API is the subset of the S3 client used for listing.
type API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Downloader fetches a whole object into a local writer.
type Downloader interface {
	Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, options ...func(*manager.Downloader)) (int64, error)
}

// Source lists and fetches objects from one bucket.
type Source struct {
	bucket     string
	api        API
	downloader Downloader
	logger     *zap.Logger
}

// NewSource builds an S3 client from explicit credentials. Without an access
// key pair the SDK default credential chain is used. The client makes a
// single attempt per request.
func NewSource(ctx context.Context, cfg Config, logger *zap.Logger) (*Source, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("aws region is required")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
		config.WithRetryMaxAttempts(1),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		)))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, xfererr.New(xfererr.KindAuth, "load aws config", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	if logger != nil && cfg.Endpoint != "" {
		logger.Info("Using custom S3 endpoint", zap.String("endpoint", cfg.Endpoint))
	}

	downloader := manager.NewDownloader(client, func(d *manager.Downloader) {
		d.Concurrency = 1
	})

	return New(cfg.Bucket, client, downloader, logger), nil
}

// New wires a Source from already-built clients.
func New(bucket string, api API, downloader Downloader, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{
		bucket:     bucket,
		api:        api,
		downloader: downloader,
		logger:     logger,
	}
}

// Bucket returns the bucket this source reads from.
func (s *Source) Bucket() string {
	return s.bucket
}

// CheckBucket verifies the bucket exists and is reachable with the
// configured credentials.
func (s *Source) CheckBucket(ctx context.Context) error {
	_, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return classify("check bucket "+s.bucket, err)
	}
	return nil
}

// List returns every object with a supported extension, sorted by key.
func (s *Source) List(ctx context.Context) ([]Object, error) {
	paginator := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	})

	var objects []Object
	scanned := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("list bucket "+s.bucket, err)
		}
		for _, obj := range page.Contents {
			scanned++
			key := aws.ToString(obj.Key)
			size := aws.ToInt64(obj.Size)
			if strings.HasSuffix(key, "/") {
				continue
			}
			ext, ok := SupportedExtension(key)
			if !ok {
				continue
			}
			objects = append(objects, Object{Key: key, Size: size, Extension: ext})
		}
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })

	s.logger.Info("Listed bucket",
		zap.String("bucket", s.bucket),
		zap.Int("scanned", scanned),
		zap.Int("matched", len(objects)))

	return objects, nil
}

// Fetch downloads obj into dir, keeping the object's base name, and returns
// the local path. A partially written file is left for the caller's scratch
// cleanup.
func (s *Source) Fetch(ctx context.Context, obj Object, dir string) (string, error) {
	local := filepath.Join(dir, obj.BaseName())

	f, err := os.Create(local)
	if err != nil {
		return "", fmt.Errorf("failed to create local file: %w", err)
	}

	s.logger.Info("Downloading object",
		zap.String("bucket", s.bucket),
		zap.String("key", obj.Key),
		zap.Int64("size", obj.Size))

	n, err := s.downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(obj.Key),
	})
	if err != nil {
		_ = f.Close()
		return "", classify("fetch "+obj.Key, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close local file %s: %w", local, err)
	}

	s.logger.Info("Object downloaded",
		zap.String("key", obj.Key),
		zap.String("local", local),
		zap.Int64("bytes", n))

	return local, nil
}

// SupportedExtension returns the lower-cased extension of key when it is one
// of SupportedExtensions.
func SupportedExtension(key string) (string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(key), "."))
	for _, want := range SupportedExtensions {
		if ext == want {
			return ext, true
		}
	}
	return "", false
}

// classify maps SDK failures onto the transfer error kinds. Anything that is
// not an S3 API response is treated as a connection failure.
func classify(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return xfererr.New(xfererr.KindNotFound, op, err)
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch",
			"ExpiredToken", "InvalidToken", "TokenRefreshRequired", "AuthorizationHeaderMalformed",
			"AllAccessDisabled", "AccountProblem":
			return xfererr.New(xfererr.KindAuth, op, err)
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case 401, 403:
			return xfererr.New(xfererr.KindAuth, op, err)
		case 404:
			return xfererr.New(xfererr.KindNotFound, op, err)
		}
	}

	return xfererr.New(xfererr.KindConnection, op, err)
}
