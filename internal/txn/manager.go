// internal/txn/manager.go

// Package txn is the in-memory transaction coordinator the input adapter
// claims files against. It caps the number of open transactions and
// settles each flushed transaction into commit or rollback.
package txn

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"cdr-ingest/internal/metrics"

	"github.com/rs/zerolog"
)

var (
	ErrUnknownTransaction = errors.New("unknown transaction")
	ErrNotFlushed         = errors.New("transaction is not flushed")
	ErrNoParticipant      = errors.New("no participant attached")
)

// Participant 는 정산 시점에 호출되는 쪽 (입력 어댑터).
type Participant interface {
	FlushTransaction(id int) error
	CommitTransaction(id int)
	RollbackTransaction(id int)
	CloseTransaction(id int)
}

// Manager
//
// 트랜잭션 상태표. 모든 메서드는 mu 로 직렬화되므로
// 여러 어댑터가 하나의 Manager 를 공유해도 된다.
// participant 콜백은 잠금을 놓은 상태에서 호출한다.
type Manager struct {
	mu       sync.Mutex
	max      int
	nextID   int
	txs      map[int]*Transaction
	settling int

	participant Participant
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

func NewManager(maxOpen int, m *metrics.Metrics, log zerolog.Logger) *Manager {
	if maxOpen <= 0 {
		maxOpen = 1
	}
	if m == nil {
		m = metrics.New()
	}
	return &Manager{
		max:     maxOpen,
		txs:     make(map[int]*Transaction),
		metrics: m,
		log:     log,
	}
}

// Attach 는 정산 콜백을 받을 participant 를 등록한다.
// 어댑터가 Manager 를 생성자 인자로 받으므로 등록은 생성 뒤에 한다.
func (tm *Manager) Attach(p Participant) {
	tm.mu.Lock()
	tm.participant = p
	tm.mu.Unlock()
}

func (tm *Manager) CanStartNewTransaction() bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return len(tm.txs) < tm.max
}

func (tm *Manager) CreateNewTransaction() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.nextID++
	id := tm.nextID
	tm.txs[id] = &Transaction{ID: id, Status: StatusClaimed, StartTime: time.Now()}
	tm.setOpenGauge()
	return id
}

func (tm *Manager) CancelTransaction(id int) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	delete(tm.txs, id)
	tm.setOpenGauge()
}

func (tm *Manager) SetTransactionProcessing(id int) {
	tm.setStatus(id, StatusProcessing)
}

func (tm *Manager) SetTransactionFlushed(id int) {
	tm.setStatus(id, StatusFlushed)
}

func (tm *Manager) TransactionAbortRequested(id int) bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tx, ok := tm.txs[id]
	return ok && tx.Abort
}

func (tm *Manager) UpdateRecordCount(id, count int) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tx, ok := tm.txs[id]; ok {
		tx.Records = count
	}
}

// ClosingInProgress 는 정산이 끝나지 않은 Flushed 트랜잭션이 있거나 Settle 이 진행 중이면 true.
func (tm *Manager) ClosingInProgress() bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.settling > 0 {
		return true
	}
	for _, tx := range tm.txs {
		if tx.Status == StatusFlushed {
			return true
		}
	}
	return false
}

// RequestAbort 는 트랜잭션에 abort 플래그를 세운다.
// 어댑터는 다음 drain pass 에서 이를 보고 현재 배치의 데이터를 버리며,
// 정산 시에는 commit 대신 rollback 된다.
func (tm *Manager) RequestAbort(id int) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tx, ok := tm.txs[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTransaction, id)
	}
	tx.Abort = true
	return nil
}

// Settle
//
// Flushed 트랜잭션을 정산한다.
//
//	FlushTransaction 에러 또는 abort → RollbackTransaction
//	그 외                           → CommitTransaction
//
// 이후 CloseTransaction 을 호출하고 상태표에서 지운다.
func (tm *Manager) Settle(id int) (Status, error) {
	tm.mu.Lock()
	tx, ok := tm.txs[id]
	switch {
	case !ok:
		tm.mu.Unlock()
		return "", fmt.Errorf("%w: %d", ErrUnknownTransaction, id)
	case tx.Status != StatusFlushed:
		st := tx.Status
		tm.mu.Unlock()
		return st, fmt.Errorf("%w: %d is %s", ErrNotFlushed, id, st)
	case tm.participant == nil:
		tm.mu.Unlock()
		return tx.Status, ErrNoParticipant
	}
	p := tm.participant
	abort := tx.Abort
	tm.settling++
	tm.mu.Unlock()

	outcome := StatusCommitted
	if err := p.FlushTransaction(id); err != nil {
		tm.log.Error().Err(err).Int("txn", id).Msg("flush failed, rolling back")
		outcome = StatusRolledBack
	} else if abort {
		outcome = StatusRolledBack
	}

	if outcome == StatusCommitted {
		p.CommitTransaction(id)
		atomic.AddInt64(&tm.metrics.TransactionsCommittedTotal, 1)
	} else {
		p.RollbackTransaction(id)
		atomic.AddInt64(&tm.metrics.TransactionsRolledBackTotal, 1)
	}
	p.CloseTransaction(id)

	tm.mu.Lock()
	tx.Status = StatusClosed
	delete(tm.txs, id)
	tm.settling--
	tm.setOpenGauge()
	records := tx.Records
	tm.mu.Unlock()

	tm.log.Info().
		Int("txn", id).
		Str("outcome", string(outcome)).
		Int("records", records).
		Dur("elapsed", time.Since(tx.StartTime)).
		Msg("transaction settled")

	return outcome, nil
}

// Snapshot 은 열린 트랜잭션의 사본을 id 순으로 돌려준다.
func (tm *Manager) Snapshot() []Transaction {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	out := make([]Transaction, 0, len(tm.txs))
	for _, tx := range tm.txs {
		out = append(out, *tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (tm *Manager) setStatus(id int, st Status) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tx, ok := tm.txs[id]; ok {
		tx.Status = st
	}
}

// mu 를 잡은 상태에서 호출.
func (tm *Manager) setOpenGauge() {
	atomic.StoreInt64(&tm.metrics.OpenTransactions, int64(len(tm.txs)))
}
