package metrics

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 는 ingest 어댑터 상태를 나타내는 카운터 모음이다.
//
// 값은 hot path 에서 sync/atomic 으로만 갱신하고,
// Prometheus 노출은 Register 가 CounterFunc/GaugeFunc 로 읽어가도록 한다.
type Metrics struct {
	// ======================
	// 파일 claim 지표
	// ======================

	// FilesClaimedTotal
	// - 입력 파일을 processing 이름으로 rename 하는 데 성공한 횟수.
	// - 1 증가 = 트랜잭션 1개 시작.
	FilesClaimedTotal int64

	// ClaimFailuresTotal
	// - claim rename 이 실패해서 트랜잭션을 cancel 한 횟수.
	// - 다른 프로세스가 먼저 가져갔거나 권한 문제일 때 증가한다.
	ClaimFailuresTotal int64

	// ======================
	// 스트림 / 레코드 지표
	// ======================

	StreamsOpenedTotal    int64 // Header 를 방출하며 연 스트림 수
	RecordsEmittedTotal   int64 // 배치에 실린 레코드 수 (sentinel 포함, abort 로 버려진 것 제외)
	BlankLinesTotal       int64 // 건너뛴 빈 줄 수 (budget 미소모)
	RecordsDiscardedTotal int64 // abort 로 현재 배치에서 제거된 레코드 수
	ReadErrorsTotal       int64 // 스트림 읽기 도중 I/O 에러
	BatchesProducedTotal  int64 // 비어있지 않은 LoadBatch 결과 수

	// ======================
	// 트랜잭션 종료 지표
	// ======================

	TransactionsCommittedTotal  int64
	TransactionsRolledBackTotal int64

	// CompletionRenameFailuresTotal
	// - commit/rollback 시 done/error 로의 rename 이 실패한 횟수.
	// - 0 이 아니면 입력 디렉토리에 processing 이름의 파일이 "걸려" 있다는 뜻 → 운영자 확인 필요.
	CompletionRenameFailuresTotal int64

	// ======================
	// Sink 지표
	// ======================

	SinkBatchesTotal int64 // 출력에 성공한 배치 수
	SinkBytesTotal   int64 // 출력된 gzip 바이트 수
	SinkErrorsTotal  int64 // 출력 실패 배치 수
	S3PutErrorsTotal int64 // PutObject 시도(attempt) 실패 횟수

	// ======================
	// Gauge
	// ======================

	PendingTransactions int64 // claim 되었지만 아직 열리지 않은 트랜잭션 수
	OpenTransactions    int64 // coordinator 기준 Closed 가 아닌 트랜잭션 수
}

func New() *Metrics {
	return &Metrics{}
}

// field 는 노출 이름과 값 포인터의 쌍.
type field struct {
	name  string
	help  string
	gauge bool
	ptr   *int64
}

func (m *Metrics) fields() []field {
	return []field{
		{"files_claimed_total", "Input files claimed by rename", false, &m.FilesClaimedTotal},
		{"claim_failures_total", "Claim renames that failed and cancelled the transaction", false, &m.ClaimFailuresTotal},
		{"streams_opened_total", "Streams opened with a header record", false, &m.StreamsOpenedTotal},
		{"records_emitted_total", "Records placed into batches", false, &m.RecordsEmittedTotal},
		{"blank_lines_total", "Blank input lines skipped", false, &m.BlankLinesTotal},
		{"records_discarded_total", "Records discarded because of a pending abort", false, &m.RecordsDiscardedTotal},
		{"read_errors_total", "I/O errors while reading an open stream", false, &m.ReadErrorsTotal},
		{"batches_produced_total", "Non-empty batches produced", false, &m.BatchesProducedTotal},
		{"transactions_committed_total", "Transactions committed (file moved to done)", false, &m.TransactionsCommittedTotal},
		{"transactions_rolled_back_total", "Transactions rolled back (file moved to error)", false, &m.TransactionsRolledBackTotal},
		{"completion_rename_failures_total", "Done/error renames that failed", false, &m.CompletionRenameFailuresTotal},
		{"sink_batches_total", "Batches written by the sink", false, &m.SinkBatchesTotal},
		{"sink_bytes_total", "Compressed bytes written by the sink", false, &m.SinkBytesTotal},
		{"sink_errors_total", "Batches the sink failed to write", false, &m.SinkErrorsTotal},
		{"s3_put_errors_total", "Failed S3 PutObject attempts", false, &m.S3PutErrorsTotal},
		{"pending_transactions", "Claimed transactions waiting for their stream to open", true, &m.PendingTransactions},
		{"open_transactions", "Transactions not yet closed", true, &m.OpenTransactions},
	}
}

// Register 는 모든 카운터를 reg 에 "cdr_ingest" namespace 로 등록한다.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, f := range m.fields() {
		ptr := f.ptr
		read := func() float64 { return float64(atomic.LoadInt64(ptr)) }

		var c prometheus.Collector
		if f.gauge {
			c = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: "cdr_ingest",
				Name:      f.name,
				Help:      f.help,
			}, read)
		} else {
			c = prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: "cdr_ingest",
				Name:      f.name,
				Help:      f.help,
			}, read)
		}
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register %s: %w", f.name, err)
		}
	}
	return nil
}

// String 은 종료 시 로그로 남기기 위한 key=value 텍스트 형태.
func (m *Metrics) String() string {
	var sb strings.Builder
	sb.Grow(512)
	for _, f := range m.fields() {
		fmt.Fprintf(&sb, "%s=%d\n", f.name, atomic.LoadInt64(f.ptr))
	}
	return sb.String()
}
