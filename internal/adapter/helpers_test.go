package adapter

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"cdr-ingest/internal/config"
	"cdr-ingest/internal/model"
)

// fakeCoord 는 limit 개까지 트랜잭션을 허용하는 Coordinator.
type fakeCoord struct {
	mu         sync.Mutex
	limit      int
	next       int
	open       map[int]bool
	cancelled  []int
	processing []int
	flushed    []int
	counts     map[int]int
	abort      map[int]bool
	closing    bool
}

func newFakeCoord(limit int) *fakeCoord {
	return &fakeCoord{
		limit:  limit,
		open:   make(map[int]bool),
		counts: make(map[int]int),
		abort:  make(map[int]bool),
	}
}

func (c *fakeCoord) CanStartNewTransaction() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.open) < c.limit
}

func (c *fakeCoord) CreateNewTransaction() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	c.open[c.next] = true
	return c.next
}

func (c *fakeCoord) CancelTransaction(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.open, id)
	c.cancelled = append(c.cancelled, id)
}

func (c *fakeCoord) SetTransactionProcessing(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processing = append(c.processing, id)
}

func (c *fakeCoord) SetTransactionFlushed(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushed = append(c.flushed, id)
}

func (c *fakeCoord) TransactionAbortRequested(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.abort[id]
}

func (c *fakeCoord) UpdateRecordCount(id, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[id] = count
}

func (c *fakeCoord) ClosingInProgress() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing
}

// faultyFS 는 OSFS 위에서 지정한 경로의 연산만 실패시킨다.
type faultyFS struct {
	OSFS
	renameErr map[string]error // key: oldpath
	openErr   error
	open      func(name string) (io.ReadCloser, error)
}

func (f faultyFS) Rename(oldpath, newpath string) error {
	if err, ok := f.renameErr[oldpath]; ok {
		return err
	}
	return f.OSFS.Rename(oldpath, newpath)
}

func (f faultyFS) Open(name string) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	if f.open != nil {
		return f.open(name)
	}
	return f.OSFS.Open(name)
}

type dirs struct {
	in, done, err string
}

func newDirs(t *testing.T) dirs {
	t.Helper()
	root := t.TempDir()
	d := dirs{
		in:   filepath.Join(root, "in"),
		done: filepath.Join(root, "done"),
		err:  filepath.Join(root, "err"),
	}
	for _, p := range []string{d.in, d.done, d.err} {
		require.NoError(t, os.MkdirAll(p, 0o755))
	}
	return d
}

// cdrConfig 는 CDR_*.txt 를 읽어 같은 이름으로 done/err 에 두는 구성.
func (d dirs) cdrConfig() config.InputConfig {
	return config.InputConfig{
		InputFilePath:   d.in,
		DoneFilePath:    d.done,
		ErrFilePath:     d.err,
		InputFilePrefix: "CDR_",
		DoneFilePrefix:  "CDR_",
		ErrFilePrefix:   "CDR_",
		InputFileSuffix: ".txt",
		DoneFileSuffix:  ".txt",
		ErrFileSuffix:   ".txt",
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func newTestAdapter(t *testing.T, in config.InputConfig, batchSize int, coord Coordinator, opts ...Option) *Adapter {
	t.Helper()
	opts = append([]Option{WithLogger(zerolog.Nop())}, opts...)
	a, err := New(in, batchSize, coord, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func loadAll(t *testing.T, a *Adapter, maxCycles int) ([]model.Record, []*model.Batch) {
	t.Helper()
	var recs []model.Record
	var batches []*model.Batch
	for i := 0; i < maxCycles; i++ {
		b, err := a.LoadBatch(context.Background())
		require.NoError(t, err)
		if b.Len() == 0 && !a.State().StreamOpen() && len(a.State().Pending()) == 0 {
			break
		}
		batches = append(batches, b)
		recs = append(recs, b.Records...)
	}
	return recs, batches
}

// merged 는 transform hook 이 만들어내는 도메인 레코드.
type merged struct {
	Text string `json:"text"`
}

func (*merged) RecordKind() model.Kind { return model.KindCustom }

var errDisk = errors.New("disk failure")
