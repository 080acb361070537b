// internal/adapter/adapter.go

// Package adapter implements the transactional flat-file input adapter:
// it claims files from an input directory by rename, streams their lines
// as bounded batches framed by header and trailer records, and moves each
// file to its done or error location when the coordinator settles the
// transaction.
package adapter

import (
	"fmt"
	"sync/atomic"

	"cdr-ingest/internal/config"
	"cdr-ingest/internal/metrics"

	"github.com/rs/zerolog"
)

// Coordinator 는 어댑터가 사용하는 외부 트랜잭션 매니저 계약.
// 여러 어댑터가 하나의 coordinator 를 공유할 수 있으므로
// 구현체는 모든 메서드를 직렬화해야 한다.
type Coordinator interface {
	CanStartNewTransaction() bool
	CreateNewTransaction() int
	CancelTransaction(id int)
	SetTransactionProcessing(id int)
	SetTransactionFlushed(id int)
	TransactionAbortRequested(id int) bool
	UpdateRecordCount(id int, count int)

	// ClosingInProgress 가 true 인 동안은 새 파일을 claim 하지 않는다.
	ClosingInProgress() bool
}

// Scheduler 는 "처리할 일이 더 있다" 는 힌트를 받는다.
// LoadBatch 호출 주기는 전적으로 외부 스케줄러가 정한다.
type Scheduler interface {
	Wake()
}

type nopScheduler struct{}

func (nopScheduler) Wake() {}

// Adapter
//
// 하나의 입력 디렉토리를 담당하는 어댑터 인스턴스.
// LoadBatch 는 한 goroutine 에서만 호출되어야 하며,
// Commit/Rollback/Close 콜백은 다른 goroutine 에서 와도 된다 (names 가 잠금 보호).
type Adapter struct {
	settings settings
	scheme   Scheme

	coord       Coordinator
	sched       Scheduler
	fs          FS
	transformer RecordTransformer
	policy      FilePolicy
	log         zerolog.Logger
	metrics     *metrics.Metrics

	names *nameTable
	state State

	initialised atomic.Bool
}

// Option 은 Adapter 의 주입 가능한 협력자를 설정한다.
type Option func(*Adapter)

func WithFS(fsys FS) Option {
	return func(a *Adapter) { a.fs = fsys }
}

func WithTransformer(t RecordTransformer) Option {
	return func(a *Adapter) { a.transformer = t }
}

func WithFilePolicy(p FilePolicy) Option {
	return func(a *Adapter) { a.policy = p }
}

func WithLogger(l zerolog.Logger) Option {
	return func(a *Adapter) { a.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Adapter) { a.metrics = m }
}

func WithScheduler(s Scheduler) Option {
	return func(a *Adapter) { a.sched = s }
}

// New
//
// 설정 값을 초기화용 control event 로 하나씩 적용한 뒤 디렉토리 구성을 검증한다.
// 검증 실패는 ErrInvalidConfig 로 감싸서 돌려주며, 호출자는 프로세스를 시작하지 않아야 한다.
func New(in config.InputConfig, batchSize int, coord Coordinator, opts ...Option) (*Adapter, error) {
	if coord == nil {
		return nil, fmt.Errorf("%w: coordinator is required", ErrInvalidConfig)
	}

	a := &Adapter{
		coord:       coord,
		sched:       nopScheduler{},
		fs:          OSFS{},
		transformer: NopTransformer{},
		policy:      DefaultFilePolicy{},
		log:         zerolog.Nop(),
		metrics:     metrics.New(),
		names:       newNameTable(),
		settings:    settings{procPrefix: config.DefaultProcessingPrefix},
	}
	for _, opt := range opts {
		opt(a)
	}

	initial := []struct{ key, value string }{
		{OptInputFilePath, in.InputFilePath},
		{OptDoneFilePath, in.DoneFilePath},
		{OptErrFilePath, in.ErrFilePath},
		{OptInputFilePrefix, in.InputFilePrefix},
		{OptDoneFilePrefix, in.DoneFilePrefix},
		{OptErrFilePrefix, in.ErrFilePrefix},
		{OptInputFileSuffix, in.InputFileSuffix},
		{OptDoneFileSuffix, in.DoneFileSuffix},
		{OptErrFileSuffix, in.ErrFileSuffix},
		{OptBatchSize, fmt.Sprint(batchSize)},
	}
	if in.ProcessingPrefix != "" {
		initial = append(initial, struct{ key, value string }{OptProcessingPrefix, in.ProcessingPrefix})
	}
	for _, kv := range initial {
		if _, err := a.ProcessControlEvent(kv.key, true, kv.value); err != nil {
			return nil, err
		}
	}

	if err := a.validate(); err != nil {
		a.log.WithLevel(zerolog.FatalLevel).Err(err).Msg("adapter initialisation failed")
		return nil, err
	}

	a.scheme = a.settings.scheme()
	a.initialised.Store(true)
	a.logOptions(a.log.Debug()).Msg("adapter options")

	a.log.Info().
		Str("input", a.scheme.Input.Path).
		Str("done", a.scheme.Done.Path).
		Str("error", a.scheme.Error.Path).
		Str("pattern", a.scheme.Input.Prefix+"*"+a.scheme.Input.Suffix).
		Str("processing_prefix", a.scheme.ProcPrefix).
		Int("batch_size", a.settings.batchSize).
		Msg("flat file input adapter initialised")

	return a, nil
}

// Close 는 열려 있는 스트림 핸들을 닫는다.
// 파일 자체는 processing 이름으로 남으며, 큐에 있던 트랜잭션은 메모리에서 사라진다.
func (a *Adapter) Close() error {
	var err error
	if st := a.state.stream; st != nil {
		err = st.reader.Close()
		a.log.Warn().
			Int("txn", st.txn).
			Msg("adapter closed with an open stream; file left under its processing name")
		a.state.stream = nil
		a.state.active = 0
	}
	if n := len(a.state.pending); n > 0 {
		a.log.Warn().Int("pending", n).Msg("adapter closed with claimed transactions not yet opened")
	}
	return err
}

// Names 는 id 에 등록된 파일명 집합을 돌려준다.
func (a *Adapter) Names(id int) (FileNames, bool) {
	return a.names.get(id)
}

// Scheme 은 초기화 이후 고정된 이름 규칙.
func (a *Adapter) Scheme() Scheme {
	return a.scheme
}

func (a *Adapter) setPendingGauge() {
	atomic.StoreInt64(&a.metrics.PendingTransactions, int64(len(a.state.pending)))
}
