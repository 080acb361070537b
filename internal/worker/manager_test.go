package worker

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"testing/iotest"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdr-ingest/internal/adapter"
	"cdr-ingest/internal/config"
	"cdr-ingest/internal/metrics"
	"cdr-ingest/internal/model"
	"cdr-ingest/internal/txn"
)

// scriptedProducer 는 준비된 배치를 차례로 돌려주고, 다 쓰면 빈 배치를 돌려준다.
type scriptedProducer struct {
	mu      sync.Mutex
	batches []*model.Batch
	err     error
	calls   int
}

func (p *scriptedProducer) LoadBatch(context.Context) (*model.Batch, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if len(p.batches) > 0 {
		b := p.batches[0]
		p.batches = p.batches[1:]
		return b, nil
	}
	return &model.Batch{}, p.err
}

func (p *scriptedProducer) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type recordingSettler struct {
	mu      sync.Mutex
	aborted []int
	settled []int
}

func (s *recordingSettler) RequestAbort(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborted = append(s.aborted, id)
	return nil
}

func (s *recordingSettler) Settle(id int) (txn.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settled = append(s.settled, id)
	return txn.StatusCommitted, nil
}

func (s *recordingSettler) snapshot() (aborted, settled []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.aborted...), append([]int(nil), s.settled...)
}

type failingSpooler struct{}

func (failingSpooler) Spool(context.Context, string, []byte) (string, error) {
	return "", errors.New("bucket unavailable")
}

func testConfig(poll time.Duration) config.Config {
	return config.Config{PollInterval: poll, SinkQueue: 4, InstanceID: "test"}
}

func twoTxnBatch() *model.Batch {
	return &model.Batch{
		Records: []model.Record{
			&model.Data{Line: "x", Seq: 3},
			&model.Trailer{StreamName: "001", TransactionID: 1},
			&model.Header{StreamName: "002", TransactionID: 2},
		},
		Transactions: []int{1, 2},
		Closed:       []int{1},
	}
}

func TestSinkFailureAbortsAndSettles(t *testing.T) {
	t.Parallel()
	m := metrics.New()
	settler := &recordingSettler{}
	mgr := NewManager(testConfig(time.Hour), m, settler, failingSpooler{}, fixedClock(), zerolog.Nop())

	mgr.processBatch(context.Background(), twoTxnBatch())

	aborted, settled := settler.snapshot()
	assert.Equal(t, []int{1, 2}, aborted)
	assert.Equal(t, []int{1}, settled)
	assert.EqualValues(t, 1, m.SinkErrorsTotal)
	assert.Zero(t, m.SinkBatchesTotal)
}

func TestSinkSuccessSettlesOnly(t *testing.T) {
	t.Parallel()
	m := metrics.New()
	settler := &recordingSettler{}
	dir := t.TempDir()
	mgr := NewManager(testConfig(time.Hour), m, settler, DirSpooler{Dir: dir}, fixedClock(), zerolog.Nop())

	mgr.processBatch(context.Background(), twoTxnBatch())

	aborted, settled := settler.snapshot()
	assert.Empty(t, aborted)
	assert.Equal(t, []int{1}, settled)
	assert.EqualValues(t, 1, m.SinkBatchesTotal)
	assert.Positive(t, m.SinkBytesTotal)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWakeTriggersCycle(t *testing.T) {
	t.Parallel()
	p := &scriptedProducer{}
	mgr := NewManager(testConfig(time.Hour), metrics.New(), &recordingSettler{}, failingSpooler{}, fixedClock(), zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- mgr.Run(context.Background(), p) }()

	mgr.Wake()
	require.Eventually(t, func() bool { return p.Calls() >= 1 }, 2*time.Second, 5*time.Millisecond)

	mgr.Shutdown()
	mgr.Shutdown()
	require.NoError(t, <-done)
}

func TestLoadBatchErrorStopsPipeline(t *testing.T) {
	t.Parallel()
	p := &scriptedProducer{
		batches: []*model.Batch{twoTxnBatch()},
		err:     adapter.ErrStreamOpen,
	}
	settler := &recordingSettler{}
	mgr := NewManager(testConfig(5*time.Millisecond), metrics.New(), settler, DirSpooler{Dir: t.TempDir()}, fixedClock(), zerolog.Nop())

	err := mgr.Run(context.Background(), p)
	assert.ErrorIs(t, err, adapter.ErrStreamOpen)

	_, settled := settler.snapshot()
	assert.Equal(t, []int{1}, settled, "queued batch is drained before Run returns")
}

func TestRunAlreadyStarted(t *testing.T) {
	t.Parallel()
	mgr := NewManager(testConfig(time.Hour), metrics.New(), &recordingSettler{}, failingSpooler{}, fixedClock(), zerolog.Nop())
	mgr.Shutdown()

	require.NoError(t, mgr.Run(context.Background(), &scriptedProducer{}))
	assert.Error(t, mgr.Run(context.Background(), &scriptedProducer{}))
}

// TestPipelineEndToEnd 는 실제 어댑터와 coordinator 로 파일 하나를 끝까지 처리한다.
func TestPipelineEndToEnd(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	in, done, bad, out := filepath.Join(root, "in"), filepath.Join(root, "done"), filepath.Join(root, "err"), filepath.Join(root, "out")
	for _, d := range []string{in, done, bad} {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(in, "CDR_001.txt"), []byte("a\nb\nc\n"), 0o644))

	m := metrics.New()
	coord := txn.NewManager(2, m, zerolog.Nop())
	mgr := NewManager(testConfig(10*time.Millisecond), m, coord, DirSpooler{Dir: out}, nil, zerolog.Nop())

	ad, err := adapter.New(config.InputConfig{
		InputFilePath:   in,
		DoneFilePath:    done,
		ErrFilePath:     bad,
		InputFilePrefix: "CDR_",
		InputFileSuffix: ".txt",
		DoneFileSuffix:  ".done",
		ErrFileSuffix:   ".err",
	}, 2, coord, adapter.WithScheduler(mgr), adapter.WithMetrics(m), adapter.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	coord.Attach(ad)

	errCh := make(chan error, 1)
	go func() { errCh <- mgr.Run(context.Background(), ad) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(done, "001.done"))
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	mgr.Shutdown()
	require.NoError(t, <-errCh)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	var lines []map[string]any
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(out, e.Name()))
		require.NoError(t, err)
		lines = append(lines, decodeLines(t, data)...)
	}

	var types []string
	for _, l := range lines {
		types = append(types, l["type"].(string))
	}
	assert.Equal(t, []string{"header", "data", "data", "data", "trailer"}, types)
	assert.EqualValues(t, 1, m.TransactionsCommittedTotal)
	assert.Empty(t, coord.Snapshot())
}

// brokenFS 는 claim 은 정상으로 하지만 열린 파일의 읽기는 항상 실패한다.
type brokenFS struct {
	adapter.OSFS
}

func (brokenFS) Open(string) (io.ReadCloser, error) {
	return io.NopCloser(iotest.ErrReader(errors.New("input/output error"))), nil
}

// countingProducer 는 LoadBatch 호출 횟수를 센다.
type countingProducer struct {
	Producer
	calls atomic.Int64
}

func (p *countingProducer) LoadBatch(ctx context.Context) (*model.Batch, error) {
	p.calls.Add(1)
	return p.Producer.LoadBatch(ctx)
}

func TestReadErrorRetriesAtPollCadence(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	in, done, bad := filepath.Join(root, "in"), filepath.Join(root, "done"), filepath.Join(root, "err")
	for _, d := range []string{in, done, bad} {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(in, "CDR_001.txt"), []byte("a\n"), 0o644))

	m := metrics.New()
	coord := txn.NewManager(2, m, zerolog.Nop())
	mgr := NewManager(testConfig(50*time.Millisecond), m, coord, DirSpooler{Dir: filepath.Join(root, "out")}, nil, zerolog.Nop())

	ad, err := adapter.New(config.InputConfig{
		InputFilePath:   in,
		DoneFilePath:    done,
		ErrFilePath:     bad,
		InputFilePrefix: "CDR_",
		InputFileSuffix: ".txt",
	}, 10, coord,
		adapter.WithScheduler(mgr), adapter.WithMetrics(m), adapter.WithLogger(zerolog.Nop()), adapter.WithFS(brokenFS{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ad.Close() })
	coord.Attach(ad)

	p := &countingProducer{Producer: ad}
	errCh := make(chan error, 1)
	go func() { errCh <- mgr.Run(context.Background(), p) }()

	time.Sleep(300 * time.Millisecond)
	mgr.Shutdown()
	require.NoError(t, <-errCh)

	assert.GreaterOrEqual(t, atomic.LoadInt64(&m.ReadErrorsTotal), int64(2), "read is retried")
	assert.LessOrEqual(t, p.calls.Load(), int64(10), "retries follow the poll interval")
	assert.True(t, ad.State().StreamOpen(), "stream stays open after read errors")
}
