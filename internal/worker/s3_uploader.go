// internal/worker/s3_uploader.go
package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"cdr-ingest/internal/config"
	"cdr-ingest/internal/metrics"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfgLib "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// putObjectAPI 는 S3Uploader 가 쓰는 s3.Client 메서드.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader 는 인코딩된 배치를 S3 에 올린다.
// SDK 자체 retry 는 끄고, attempt 마다 timeout 을 건 앱 레벨 retry + backoff 로 제어한다.
type S3Uploader struct {
	bucket   string
	timeout  time.Duration
	attempts int
	backoff  time.Duration
	metrics  *metrics.Metrics
	client   putObjectAPI
}

// NewS3Uploader 는 AWS 기본 credential chain 으로 client 를 만든다.
func NewS3Uploader(ctx context.Context, cfg config.Config, m *metrics.Metrics) (*S3Uploader, error) {
	awsCfg, err := awsCfgLib.LoadDefaultConfig(ctx, awsCfgLib.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.RetryMaxAttempts = 0
	})
	return newS3Uploader(cfg, m, client), nil
}

func newS3Uploader(cfg config.Config, m *metrics.Metrics, client putObjectAPI) *S3Uploader {
	attempts := cfg.S3AppRetries
	if attempts <= 0 {
		attempts = 1
	}
	return &S3Uploader{
		bucket:   cfg.OutputBucket,
		timeout:  cfg.S3Timeout,
		attempts: attempts,
		backoff:  200 * time.Millisecond,
		metrics:  m,
		client:   client,
	}
}

// UploadBytesWithRetryCtx
// -----------------------
// gzip+JSONL 바이트 배열을 S3 로 업로드한다.
//   - attempt 마다 S3Timeout
//   - exponential backoff (최대 2초)
//   - ctx.Done() 시 즉시 중단
//
// body 는 재시도마다 reader 를 새로 만들어야 하므로 bytes.NewReader 사용.
func (u *S3Uploader) UploadBytesWithRetryCtx(ctx context.Context, key string, body []byte) error {
	var lastErr error
	backoff := u.backoff

	for attempt := 1; attempt <= u.attempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := u.putObject(ctx, key, bytes.NewReader(body), int64(len(body)))
		if err == nil {
			return nil
		}
		lastErr = err
		atomic.AddInt64(&u.metrics.S3PutErrorsTotal, 1)

		if attempt == u.attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > 2*time.Second {
				backoff = 2 * time.Second
			}
		}
	}

	return fmt.Errorf("put s3://%s/%s after %d attempts: %w", u.bucket, key, u.attempts, lastErr)
}

// putObject 는 1회 호출. retry 는 caller 가 제어한다.
func (u *S3Uploader) putObject(ctx context.Context, key string, body io.Reader, size int64) error {
	ctx2, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	_, err := u.client.PutObject(ctx2, &s3.PutObjectInput{
		Bucket:          aws.String(u.bucket),
		Key:             aws.String(key),
		Body:            body,
		ContentLength:   aws.Int64(size),
		ContentType:     aws.String("application/x-ndjson"),
		ContentEncoding: aws.String("gzip"),
	})
	return err
}
