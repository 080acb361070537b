// internal/worker/manager.go
package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"cdr-ingest/internal/config"
	"cdr-ingest/internal/metrics"
	"cdr-ingest/internal/model"
	"cdr-ingest/internal/txn"

	"github.com/rs/zerolog"
)

// Producer 는 production cycle 1회를 수행한다 (입력 어댑터).
type Producer interface {
	LoadBatch(ctx context.Context) (*model.Batch, error)
}

// Settler 는 트랜잭션의 abort 요청과 정산을 받는다 (coordinator).
type Settler interface {
	RequestAbort(id int) error
	Settle(id int) (txn.Status, error)
}

// Manager 는 어댑터를 구동하는 스케줄러 + 배치 sink 파이프라인이다.
//
// 주요 구성:
//   - produceLoop: PollInterval 마다, 또는 Wake() 힌트를 받으면 LoadBatch 를 호출해 sinkCh 에 전달
//   - sinkCh:      인코딩/출력 작업 큐 (SinkQueue 크기)
//   - sinkLoop:    JSONL.gz 인코딩 → Spooler 출력 → 닫힌 트랜잭션 정산
//
// 출력에 실패한 배치에 레코드를 실은 트랜잭션은 모두 abort 요청되어 결국 rollback 된다.
// Shutdown 은 producer 를 먼저 멈추고, 큐에 남은 배치를 모두 출력·정산한 뒤 끝난다.
type Manager struct {
	cfg     config.Config
	metrics *metrics.Metrics
	log     zerolog.Logger

	settler Settler
	spool   Spooler
	encoder *Encoder
	clock   *Clock

	wakeCh chan struct{}
	sinkCh chan *model.Batch
	stopCh chan struct{}

	wg       sync.WaitGroup
	stopOnce sync.Once
	started  atomic.Bool
	done     chan struct{}
}

func NewManager(cfg config.Config, m *metrics.Metrics, settler Settler, spool Spooler, clock *Clock, log zerolog.Logger) *Manager {
	if clock == nil {
		clock = NewClock(nil)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Manager{
		cfg:     cfg,
		metrics: m,
		log:     log,
		settler: settler,
		spool:   spool,
		encoder: NewEncoder(),
		clock:   clock,
		wakeCh:  make(chan struct{}, 1),
		sinkCh:  make(chan *model.Batch, cfg.SinkQueue),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Wake 는 다음 poll 을 기다리지 않고 LoadBatch 를 한 번 더 돌리게 한다.
// 이미 신호가 대기 중이면 합쳐진다.
func (m *Manager) Wake() {
	select {
	case m.wakeCh <- struct{}{}:
	default:
	}
}

// Run 은 파이프라인을 시작하고 끝날 때까지 block 한다.
// ctx 취소 또는 Shutdown 이 정상 종료 경로이며, 이 경우 nil 을 돌려준다.
// LoadBatch 에러는 파이프라인을 멈추고 그대로 돌려준다.
// Manager 하나에 대해 한 번만 호출할 수 있다.
func (m *Manager) Run(ctx context.Context, p Producer) error {
	if !m.started.CompareAndSwap(false, true) {
		return errors.New("worker manager already started")
	}
	defer close(m.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-m.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	var produceErr error

	m.wg.Add(3)
	go func() {
		defer m.wg.Done()
		m.clock.Run(ctx)
	}()
	go func() {
		defer m.wg.Done()
		produceErr = m.produceLoop(ctx, p)
		cancel()
	}()
	go func() {
		defer m.wg.Done()
		m.sinkLoop(context.WithoutCancel(ctx))
	}()

	m.wg.Wait()
	return produceErr
}

// Shutdown 은 producer 를 멈추고 sink 가 큐를 비울 때까지 기다린다.
// 여러 번 호출해도 안전하며, Run 전에 호출하면 이후의 Run 은 곧바로 끝난다.
func (m *Manager) Shutdown() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	if m.started.Load() {
		<-m.done
	}
}

// produceLoop 는 sinkCh 의 유일한 writer 이며, 끝날 때 sinkCh 를 닫는다.
func (m *Manager) produceLoop(ctx context.Context, p Producer) error {
	defer close(m.sinkCh)

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-m.wakeCh:
		}
		if ctx.Err() != nil {
			return nil
		}

		b, err := p.LoadBatch(ctx)
		if b.Len() > 0 {
			// sinkLoop 는 sinkCh 가 닫힐 때까지 소비하므로 blocking send 로 충분하다
			m.sinkCh <- b
		}
		if err != nil {
			m.log.Error().Err(err).Msg("input adapter failed, stopping pipeline")
			return err
		}
	}
}

func (m *Manager) sinkLoop(ctx context.Context) {
	for b := range m.sinkCh {
		m.processBatch(ctx, b)
	}
	m.log.Info().Msg("sink exiting")
}

// processBatch
//  1. JSONL + gzip 인코딩
//  2. Spooler 출력 (실패 시 기여한 트랜잭션 전부 abort 요청)
//  3. Trailer 가 실린 트랜잭션 정산 (commit / rollback)
func (m *Manager) processBatch(ctx context.Context, b *model.Batch) {
	where, size, err := m.write(ctx, b)
	if err != nil {
		atomic.AddInt64(&m.metrics.SinkErrorsTotal, 1)
		m.log.Error().
			Err(err).
			Ints("transactions", b.Transactions).
			Int("records", b.Len()).
			Msg("batch sink failed, aborting transactions")

		for _, id := range b.Transactions {
			if err := m.settler.RequestAbort(id); err != nil && !errors.Is(err, txn.ErrUnknownTransaction) {
				m.log.Error().Err(err).Int("txn", id).Msg("abort request failed")
			}
		}
	} else {
		atomic.AddInt64(&m.metrics.SinkBatchesTotal, 1)
		atomic.AddInt64(&m.metrics.SinkBytesTotal, int64(size))
		m.log.Debug().
			Str("to", where).
			Int("records", b.Len()).
			Int("bytes", size).
			Msg("batch written")
	}

	for _, id := range b.Closed {
		if _, err := m.settler.Settle(id); err != nil {
			m.log.Error().Err(err).Int("txn", id).Msg("settle failed")
		}
	}
}

func (m *Manager) write(ctx context.Context, b *model.Batch) (string, int, error) {
	data, err := m.encoder.EncodeBatch(b)
	if err != nil {
		return "", 0, err
	}
	where, err := m.spool.Spool(ctx, NewFilename(m.clock, m.cfg.InstanceID), data)
	if err != nil {
		return "", 0, err
	}
	return where, len(data), nil
}
