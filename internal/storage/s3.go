package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	appconfig "nodestore/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/transfermanager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type objectUploader interface {
	UploadObject(ctx context.Context, input *transfermanager.UploadObjectInput, optFns ...func(*transfermanager.Options)) (*transfermanager.UploadObjectOutput, error)
}

type listObjectsV2Paginator interface {
	HasMorePages() bool
	NextPage(ctx context.Context, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type awsListObjectsV2Paginator struct {
	inner *s3.ListObjectsV2Paginator
}

func (p *awsListObjectsV2Paginator) HasMorePages() bool {
	return p.inner != nil && p.inner.HasMorePages()
}

func (p *awsListObjectsV2Paginator) NextPage(ctx context.Context, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if p.inner == nil {
		return nil, errors.New("s3 paginator is not configured")
	}
	return p.inner.NextPage(ctx, optFns...)
}

func newAWSListObjectsV2Paginator(client s3.ListObjectsV2APIClient, input *s3.ListObjectsV2Input) listObjectsV2Paginator {
	return &awsListObjectsV2Paginator{inner: s3.NewListObjectsV2Paginator(client, input)}
}

// S3Client stores each object under its key verbatim in a single bucket.
type S3Client struct {
	api                       s3API
	uploader                  objectUploader
	bucket                    string
	requestTimeout            time.Duration
	newListObjectsV2Paginator func(s3.ListObjectsV2APIClient, *s3.ListObjectsV2Input) listObjectsV2Paginator
}

var _ ObjectStore = (*S3Client)(nil)

// NewFromConfig returns an S3 client when a bucket is configured and a
// LocalClient rooted at localDir otherwise.
func NewFromConfig(cfg appconfig.S3Config, localDir string) (ObjectStore, error) {
	if !cfg.UsesS3() {
		return NewLocalClient(localDir), nil
	}
	return NewS3Client(cfg)
}

func NewS3Client(cfg appconfig.S3Config) (*S3Client, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		return nil, errors.New("s3 region is required")
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint != "" {
		if err := validateEndpoint(endpoint); err != nil {
			return nil, err
		}
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Client{
		api:                       client,
		uploader:                  transfermanager.New(client),
		bucket:                    bucket,
		requestTimeout:            cfg.RequestTimeout(),
		newListObjectsV2Paginator: newAWSListObjectsV2Paginator,
	}, nil
}

func validateEndpoint(endpoint string) error {
	scheme, rest, ok := strings.Cut(endpoint, "://")
	if !ok || scheme == "" || rest == "" {
		return fmt.Errorf("s3 endpoint %q must be a valid http(s) URL", endpoint)
	}
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("s3 endpoint %q must use http or https", endpoint)
	}
	return nil
}

func (c *S3Client) PutObject(ctx context.Context, key string, data []byte) error {
	if c.uploader == nil {
		return errors.New("s3 uploader is not configured")
	}
	if err := validateKey(key); err != nil {
		return err
	}

	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	_, err := c.uploader.UploadObject(ctx, &transfermanager.UploadObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (c *S3Client) GetObject(ctx context.Context, key string) ([]byte, error) {
	if c.api == nil {
		return nil, errors.New("s3 api client is not configured")
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}

	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("get object: %w: %w", ErrNotFound, err)
		}
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object body: %w", err)
	}
	return data, nil
}

func (c *S3Client) DeleteObject(ctx context.Context, key string) error {
	if c.api == nil {
		return errors.New("s3 api client is not configured")
	}
	if err := validateKey(key); err != nil {
		return err
	}

	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// DeleteObjects sends one request per MaxDeleteBatch keys. Failures the
// service reports per key are returned alongside a nil error; a request
// error stops the pass and returns the failures gathered so far.
func (c *S3Client) DeleteObjects(ctx context.Context, keys []string) ([]DeleteFailure, error) {
	if c.api == nil {
		return nil, errors.New("s3 api client is not configured")
	}
	for _, key := range keys {
		if err := validateKey(key); err != nil {
			return nil, err
		}
	}

	var failures []DeleteFailure
	for start := 0; start < len(keys); start += MaxDeleteBatch {
		end := min(start+MaxDeleteBatch, len(keys))

		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
		}

		out, err := c.deleteBatch(ctx, objects)
		if err != nil {
			return failures, fmt.Errorf("delete objects: %w", err)
		}
		for _, e := range out.Errors {
			failures = append(failures, DeleteFailure{
				Key:     aws.ToString(e.Key),
				Code:    aws.ToString(e.Code),
				Message: aws.ToString(e.Message),
			})
		}
	}
	return failures, nil
}

func (c *S3Client) deleteBatch(ctx context.Context, objects []types.ObjectIdentifier) (*s3.DeleteObjectsOutput, error) {
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	return c.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(c.bucket),
		Delete: &types.Delete{
			Objects: objects,
			Quiet:   aws.Bool(true),
		},
	})
}

func (c *S3Client) ListKeys(ctx context.Context) ([]string, error) {
	if c.api == nil {
		return nil, errors.New("s3 api client is not configured")
	}
	if c.newListObjectsV2Paginator == nil {
		return nil, errors.New("s3 paginator factory is not configured")
	}

	paginator := c.newListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
	})
	if paginator == nil {
		return nil, errors.New("s3 paginator is not configured")
	}

	keys := make([]string, 0)
	for paginator.HasMorePages() {
		page, err := c.nextPage(ctx, paginator)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil || *obj.Key == "" {
				continue
			}
			keys = append(keys, *obj.Key)
		}
	}

	sort.Strings(keys)
	return keys, nil
}

func (c *S3Client) nextPage(ctx context.Context, paginator listObjectsV2Paginator) (*s3.ListObjectsV2Output, error) {
	ctx, cancel := c.requestContext(ctx)
	defer cancel()
	return paginator.NextPage(ctx)
}

func (c *S3Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.requestTimeout)
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("invalid object key: key must not be empty")
	}
	return nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
