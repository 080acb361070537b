// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig 는 설정 값 검증에 실패했을 때 반환된다.
var ErrInvalidConfig = errors.New("invalid config")

// Config
//
// 서비스 실행 시 필요한 모든 설정 값을 보관하는 구조체.
// YAML 파일(선택) → 환경변수 override → 기본값 순서로 채워지며,
// 프로세스 시작 이후에는 변경되지 않는 read-only 설정이다.
type Config struct {

	// ---------------------------
	// 입력 어댑터 (디렉토리 / 파일명 규칙)
	// ---------------------------

	Input InputConfig `yaml:"input"`

	// ---------------------------
	// 트랜잭션 / 스케줄링
	// ---------------------------

	BatchSize       int           `yaml:"batch_size"`       // LoadBatch 1회 최대 레코드 수 (파이프라인 공통)
	MaxTransactions int           `yaml:"max_transactions"` // 동시에 열려 있을 수 있는 트랜잭션 수
	PollInterval    time.Duration `yaml:"poll_interval"`    // 입력 디렉토리 polling 주기
	SinkQueue       int           `yaml:"sink_queue"`       // producer → sink 채널 버퍼 크기
	SortInput       bool          `yaml:"sort_input"`       // true 면 입력 파일을 이름순으로 claim

	// ---------------------------
	// 출력 (sink)
	// ---------------------------

	OutputDir    string        `yaml:"output_dir"`     // 로컬 출력 디렉토리 (bucket 미설정 시)
	AWSRegion    string        `yaml:"aws_region"`     // AWS 리전
	OutputBucket string        `yaml:"output_bucket"`  // 설정 시 배치를 S3 로 업로드
	OutputPrefix string        `yaml:"output_prefix"`  // S3 key prefix
	S3Timeout    time.Duration `yaml:"s3_timeout"`     // PutObject 1회 시도당 timeout
	S3AppRetries int           `yaml:"s3_app_retries"` // 애플리케이션 레벨 재시도 횟수 (SDK retry 는 0)

	// ---------------------------
	// 서버 식별자 / 네트워크 / 로그
	// ---------------------------

	ServiceName string `yaml:"service_name"`
	InstanceID  string `yaml:"instance_id"`
	HTTPAddr    string `yaml:"http_addr"`
	LogLevel    string `yaml:"log_level"`
	LogPretty   bool   `yaml:"log_pretty"`
	LogSampleN  uint32 `yaml:"log_sample_n"`
	LogFile     string `yaml:"log_file"`
}

// InputConfig
//
// 입력/완료/에러 디렉토리와 각 파일명 prefix/suffix.
// 키 이름은 런타임 control event 의 옵션 이름과 1:1 로 대응한다.
type InputConfig struct {
	InputFilePath    string `yaml:"input_file_path"`
	DoneFilePath     string `yaml:"done_file_path"`
	ErrFilePath      string `yaml:"err_file_path"`
	InputFilePrefix  string `yaml:"input_file_prefix"`
	DoneFilePrefix   string `yaml:"done_file_prefix"`
	ErrFilePrefix    string `yaml:"err_file_prefix"`
	InputFileSuffix  string `yaml:"input_file_suffix"`
	DoneFileSuffix   string `yaml:"done_file_suffix"`
	ErrFileSuffix    string `yaml:"err_file_suffix"`
	ProcessingPrefix string `yaml:"processing_prefix"`
}

// Load
//
// path 가 비어있지 않으면 YAML 파일을 먼저 읽고, 그 위에 환경변수를 덮어쓴다.
// 형식이 잘못된 값은 즉시 에러로 돌려준다 (fail-fast 는 main 이 결정).
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	envStr("INPUT_FILE_PATH", &c.Input.InputFilePath)
	envStr("DONE_FILE_PATH", &c.Input.DoneFilePath)
	envStr("ERR_FILE_PATH", &c.Input.ErrFilePath)
	envStr("INPUT_FILE_PREFIX", &c.Input.InputFilePrefix)
	envStr("DONE_FILE_PREFIX", &c.Input.DoneFilePrefix)
	envStr("ERR_FILE_PREFIX", &c.Input.ErrFilePrefix)
	envStr("INPUT_FILE_SUFFIX", &c.Input.InputFileSuffix)
	envStr("DONE_FILE_SUFFIX", &c.Input.DoneFileSuffix)
	envStr("ERR_FILE_SUFFIX", &c.Input.ErrFileSuffix)
	envStr("PROCESSING_PREFIX", &c.Input.ProcessingPrefix)

	envStr("OUTPUT_DIR", &c.OutputDir)
	envStr("AWS_REGION", &c.AWSRegion)
	envStr("OUTPUT_BUCKET", &c.OutputBucket)
	envStr("OUTPUT_PREFIX", &c.OutputPrefix)

	envStr("SERVICE_NAME", &c.ServiceName)
	envStr("INSTANCE_ID", &c.InstanceID)
	envStr("HTTP_ADDR", &c.HTTPAddr)
	envStr("LOG_LEVEL", &c.LogLevel)
	envStr("LOG_FILE", &c.LogFile)

	return errors.Join(
		envInt("BATCH_SIZE", &c.BatchSize),
		envInt("MAX_TRANSACTIONS", &c.MaxTransactions),
		envInt("SINK_QUEUE", &c.SinkQueue),
		envInt("S3_APP_RETRIES", &c.S3AppRetries),
		envDur("POLL_INTERVAL", &c.PollInterval),
		envDur("S3_TIMEOUT", &c.S3Timeout),
		envBool("LOG_PRETTY", &c.LogPretty),
		envBool("SORT_INPUT", &c.SortInput),
		envUint32("LOG_SAMPLE_N", &c.LogSampleN),
	)
}

func (c *Config) applyDefaults() {
	if c.Input.ProcessingPrefix == "" {
		c.Input.ProcessingPrefix = DefaultProcessingPrefix
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 5000
	}
	if c.MaxTransactions <= 0 {
		c.MaxTransactions = 4
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.SinkQueue <= 0 {
		c.SinkQueue = 8
	}
	if c.S3Timeout <= 0 {
		c.S3Timeout = 5 * time.Second
	}
	if c.S3AppRetries <= 0 {
		c.S3AppRetries = 3
	}
	if c.ServiceName == "" {
		c.ServiceName = "cdr-ingest"
	}
	if c.InstanceID == "" {
		c.InstanceID = fallbackInstanceID()
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// DefaultProcessingPrefix 는 claim 된 파일 이름 앞에 붙는 기본 marker.
const DefaultProcessingPrefix = "tmp"

// Validate 는 디렉토리 존재 여부와 무관한 값 검증만 수행한다.
// 디렉토리/이름 충돌 검증은 어댑터 초기화 단계에서 이루어진다.
func (c Config) Validate() error {
	if c.OutputBucket == "" && c.OutputDir == "" {
		return fmt.Errorf("%w: one of output_dir or output_bucket is required", ErrInvalidConfig)
	}
	if c.OutputBucket != "" && c.AWSRegion == "" {
		return fmt.Errorf("%w: aws_region is required when output_bucket is set", ErrInvalidConfig)
	}
	return nil
}

// envStr / envInt / envDur / envBool / envUint32
//
// 환경변수가 설정되어 있을 때만 dst 를 덮어쓴다.
// 형식 오류는 어떤 키가 잘못되었는지 포함한 에러로 돌려준다.
func envStr(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: invalid int env %s=%q: %v", ErrInvalidConfig, key, v, err)
	}
	*dst = n
	return nil
}

func envUint32(key string, dst *uint32) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return fmt.Errorf("%w: invalid uint env %s=%q: %v", ErrInvalidConfig, key, v, err)
	}
	*dst = uint32(n)
	return nil
}

func envDur(key string, dst *time.Duration) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%w: invalid duration env %s=%q: %v", ErrInvalidConfig, key, v, err)
	}
	*dst = d
	return nil
}

func envBool(key string, dst *bool) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%w: invalid bool env %s=%q: %v", ErrInvalidConfig, key, v, err)
	}
	*dst = b
	return nil
}

// fallbackInstanceID
//
// 이 ingest 인스턴스를 식별하는 고유 값.
//   - 기본: hostname
//   - fallback: uuid 앞 12자리
func fallbackInstanceID() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
