// Package s3store implements the remote storage capability on top of an
// S3-compatible object store. Folders are represented by zero-byte marker
// objects with a trailing slash, so folder creation is naturally idempotent.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"time"

	"invoicedrop/internal/storage"
	"invoicedrop/pkg/faults"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

type Config struct {
	Region      string
	Bucket      string
	AccessKey   string
	SecretKey   string
	Endpoint    string
	CallTimeout time.Duration
}

type Store struct {
	cfg Config
	s3  *s3.Client
}

var _ storage.RemoteStore = (*Store)(nil)

func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Region == "" || cfg.Bucket == "" {
		return nil, errors.New("s3 region and bucket are required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		if parsed, err := url.Parse(endpoint); err == nil {
			endpoint = parsed.String()
		}
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				if service == s3.ServiceID {
					return aws.Endpoint{URL: endpoint, SigningRegion: cfg.Region}, nil
				}
				return aws.Endpoint{}, &aws.EndpointNotFoundError{}
			}),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	return &Store{cfg: cfg, s3: client}, nil
}

// markerKey is the zero-byte object standing in for a folder.
func markerKey(path string) string {
	return strings.TrimSuffix(path, "/") + "/"
}

func (s *Store) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.CallTimeout)
}

func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	_, err := s.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(markerKey(path)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classify("exists", err)
	}
	return true, nil
}

func (s *Store) CreateFolder(ctx context.Context, path string) error {
	exists, err := s.Exists(ctx, path)
	if err != nil {
		return classify("create_folder", err)
	}
	if exists {
		return faults.ErrAlreadyExists
	}

	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	_, err = s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(markerKey(path)),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		return classify("create_folder", err)
	}
	return nil
}

func (s *Store) UploadBytes(ctx context.Context, path string, r io.Reader, size int64, overwrite bool) error {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(path),
		Body:   r,
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if !overwrite {
		input.IfNoneMatch = aws.String("*")
	}

	if _, err := s.s3.PutObject(ctx, input); err != nil {
		return classify("upload_bytes", err)
	}
	return nil
}

func (s *Store) DownloadBytes(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	out, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, faults.ErrNotFound
		}
		return nil, classify("download_bytes", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, classify("download_bytes", err)
	}
	return data, nil
}

func (s *Store) DeleteObject(ctx context.Context, path string) error {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	_, err := s.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return classify("delete_object", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	_, err := s.s3.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.cfg.Bucket),
	})
	if err != nil {
		return classify("ping", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "404":
			return true
		}
	}
	return false
}

// classify maps provider errors onto the failure taxonomy. Anything without a
// recognizable API code is treated as transient.
func classify(op string, err error) error {
	var f *faults.Failure
	if errors.As(err, &f) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return faults.New(faults.KindRemoteTransient, op, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken", "AccountProblem":
			return faults.New(faults.KindRemoteAccessDenied, op, err)
		case "QuotaExceeded", "ServiceQuotaExceeded", "SlowDown", "TooManyRequests", "EntityTooLarge":
			return faults.New(faults.KindRemoteQuota, op, err)
		}
	}

	return faults.New(faults.KindRemoteTransient, op, err)
}
