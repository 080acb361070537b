package pool

import (
	"bufio"
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// ---------------------------------------------------------------
// Pool 구성 목적
//
// 어댑터는 입력 파일마다 큰 read 버퍼를 열고, sink 는 배치마다
// gzip 결과 버퍼를 만든다. 파일/배치 수가 많을 때 이 할당이 반복되므로
// sync.Pool 로 재사용한다.
// ---------------------------------------------------------------

// ReaderBufSize 는 입력 파일 line reader 의 버퍼 크기 (64KB).
const ReaderBufSize = 64 * 1024

var (
	// ReaderPool:
	//   - 입력 파일 스트림용 bufio.Reader 재사용
	//   - 스트림 open 시 Reset(file), close 시 PutReader
	ReaderPool = sync.Pool{
		New: func() any { return bufio.NewReaderSize(nil, ReaderBufSize) },
	}

	// BufferPool:
	//   - gzip 인코딩 결과를 담는 임시 버퍼
	//   - 초기 용량 256KB
	//   - 1MB 초과 버퍼는 메모리 폭주 방지를 위해 풀에 넣지 않음
	BufferPool = sync.Pool{
		New: func() any {
			return bytes.NewBuffer(make([]byte, 0, 256*1024))
		},
	}

	// GzipPool:
	//   - gzip.Writer 재사용 (매번 new 하면 비용 매우 큼)
	//   - BestSpeed: 배치 출력은 속도 우선
	GzipPool = sync.Pool{
		New: func() any {
			w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
			return w
		},
	}
)

// MaxBufferCap 보다 큰 버퍼는 Pool 에 넣지 않고 GC 에게 위임한다.
const MaxBufferCap = 1 * 1024 * 1024 // 1MB

// GetReader 는 r 을 읽는 pooled bufio.Reader 를 돌려준다.
func GetReader(r io.Reader) *bufio.Reader {
	br := ReaderPool.Get().(*bufio.Reader)
	br.Reset(r)
	return br
}

// PutReader 는 내부 참조(파일 핸들)를 끊은 뒤 풀에 반환한다.
func PutReader(br *bufio.Reader) {
	if br == nil {
		return
	}
	br.Reset(nil)
	ReaderPool.Put(br)
}

// PutBuffer:
//   - gzip 결과 버퍼 반환
//   - 1MB 이하이면 풀에 재사용
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() <= MaxBufferCap {
		buf.Reset()
		BufferPool.Put(buf)
	}
}
