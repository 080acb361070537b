// internal/adapter/state.go
package adapter

import "sync"

// openStream 은 현재 읽고 있는 processing 파일.
type openStream struct {
	txn    int
	reader *lineReader
	seq    int // 스트림 내부 Data 순번 (0 부터)
}

// State
// ------------------------------------------------------------
// LoadBatch 가 cycle 사이에 유지하는 상태 전부.
//
//   - pending: claim 은 됐지만 아직 열지 않은 트랜잭션 (FIFO, 중복 없음)
//   - stream:  열려 있는 스트림 (nil = Idle)
//   - active:  stream 의 트랜잭션 id, 없으면 0
//   - streams: 지금까지 연 스트림 수
//
// producer goroutine 한 곳에서만 변경된다.
type State struct {
	pending []int
	stream  *openStream
	active  int
	streams int
}

// Pending returns a copy of the queued transaction ids in opening order.
func (s *State) Pending() []int {
	return append([]int(nil), s.pending...)
}

func (s *State) StreamOpen() bool { return s.stream != nil }

func (s *State) ActiveTransaction() int { return s.active }

func (s *State) StreamCount() int { return s.streams }

func (s *State) enqueue(id int) bool {
	for _, v := range s.pending {
		if v == id {
			return false
		}
	}
	s.pending = append(s.pending, id)
	return true
}

func (s *State) dequeue() (int, bool) {
	if len(s.pending) == 0 {
		return 0, false
	}
	id := s.pending[0]
	s.pending = s.pending[1:]
	return id, true
}

// State 는 테스트에서 cycle 사이 상태를 확인할 때 쓴다.
func (a *Adapter) State() *State {
	return &a.state
}

// nameTable
// ------------------------------------------------------------
// 트랜잭션 id → 파일명 집합.
// claim 은 producer 가, commit/rollback/close 는 sink 쪽 goroutine 이 호출하므로 잠금으로 보호한다.
type nameTable struct {
	mu sync.Mutex
	m  map[int]FileNames
}

func newNameTable() *nameTable {
	return &nameTable{m: make(map[int]FileNames)}
}

func (t *nameTable) put(id int, n FileNames) {
	t.mu.Lock()
	t.m[id] = n
	t.mu.Unlock()
}

func (t *nameTable) get(id int) (FileNames, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.m[id]
	return n, ok
}

func (t *nameTable) delete(id int) {
	t.mu.Lock()
	delete(t.m, id)
	t.mu.Unlock()
}

func (t *nameTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.m)
}
