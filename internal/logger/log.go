// internal/logger/log.go
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"cdr-ingest/internal/config"

	stdlog "log"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Sink
//
// Init 이 만든 로그 출력 대상.
// LOG_FILE 이 설정된 경우 파일 핸들을 들고 있으므로 종료 시 닫아야 한다.
// resource.Registry 에 LogResourceKey 로 등록되어 "가장 마지막에" 닫힌다.
// (다른 리소스들이 종료 로그를 남길 수 있도록)
type Sink struct {
	file *os.File
}

// Name 은 resource.Registry 에 등록될 때 쓰는 심볼 이름.
func (s *Sink) Name() string { return "logger" }

// Close 는 로그 파일을 닫는다. stdout 으로만 쓰는 경우 아무 것도 하지 않는다.
func (s *Sink) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Init
//
// 애플리케이션 시작 시 한 번만 호출되는 로거 초기화 함수.
// Config 설정에 따라 '개발자용 화면' 또는 '운영용 시스템 로그'로 형태를 바꾼다.
//
//  1. 로그 포맷 자동 전환:
//     - LOG_PRETTY=true: 콘솔용 컬러 텍스트
//     - LOG_PRETTY=false: JSON (CloudWatch 등 검색/분석 위주)
//
//  2. 공통 필드: 모든 로그에 "service", "instance" 가 붙는다.
//
//  3. 샘플링: Debug/Info 는 LOG_SAMPLE_N 중 1개만 기록, Warn 이상은 100% 기록.
//
//  4. LOG_FILE 이 지정되면 stdout 대신 해당 파일에 append 한다.
func Init(cfg config.Config) (*Sink, error) {
	level := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.LogLevel))); err == nil {
		level = l
	}
	zerolog.SetGlobalLevel(level)

	sink := &Sink{}
	var out io.Writer = os.Stdout

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", cfg.LogFile, err)
		}
		sink.file = f
		out = f
	}

	var w io.Writer = out
	if cfg.LogPretty {
		w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
			NoColor:    cfg.LogFile != "",
		}
	}

	base := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("instance", cfg.InstanceID).
		Logger()

	logger := base
	if cfg.LogSampleN > 1 {
		logger = base.Sample(&zerolog.LevelSampler{
			DebugSampler: &zerolog.BasicSampler{N: cfg.LogSampleN},
			InfoSampler:  &zerolog.BasicSampler{N: cfg.LogSampleN},
			// Warn/Error: 샘플링하지 않음 (nil)
		})
	}

	zlog.Logger = logger

	// 표준 log 패키지 출력도 zerolog 로 돌린다.
	stdlog.SetFlags(0)
	stdlog.SetOutput(zlog.Logger)

	return sink, nil
}

// Component 는 "component" 필드가 붙은 하위 로거를 돌려준다.
func Component(name string) zerolog.Logger {
	return zlog.With().Str("component", name).Logger()
}
