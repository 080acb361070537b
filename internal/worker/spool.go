// internal/worker/spool.go
package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Spooler 는 인코딩된 배치 하나를 최종 저장소에 쓴다.
// 반환값은 저장된 위치 (로그용).
type Spooler interface {
	Spool(ctx context.Context, name string, data []byte) (string, error)
}

// DirSpooler 는 로컬 디렉토리에 쓴다.
// 같은 디렉토리의 임시 파일에 쓴 뒤 rename 하므로 reader 는 완성된 파일만 본다.
type DirSpooler struct {
	Dir string
}

func (s DirSpooler) Spool(_ context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o750); err != nil {
		return "", fmt.Errorf("create directory %s: %w", s.Dir, err)
	}

	tmp, err := os.CreateTemp(s.Dir, ".spool-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	dest := filepath.Join(s.Dir, name)
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename to %s: %w", dest, err)
	}
	return dest, nil
}

// S3Spooler 는 파티션 key 로 S3 에 올린다.
type S3Spooler struct {
	Uploader *S3Uploader
	Prefix   string
	Clock    *Clock
}

func (s S3Spooler) Spool(ctx context.Context, name string, data []byte) (string, error) {
	key := BuildS3Key(s.Clock, s.Prefix, name)
	if err := s.Uploader.UploadBytesWithRetryCtx(ctx, key, data); err != nil {
		return "", err
	}
	return "s3://" + s.Uploader.bucket + "/" + key, nil
}
