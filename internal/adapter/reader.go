// internal/adapter/reader.go
package adapter

import (
	"bufio"
	"errors"
	"io"

	"cdr-ingest/internal/pool"
)

// lineReader 는 processing 파일을 줄 단위로 읽는다.
// bufio.Reader 는 pool 에서 빌리고 Close 시 반환한다.
//
// 줄 중간에서 읽기가 실패하면 이미 소비된 앞부분을 partial 에 보관했다가
// 다음 ReadLine 결과 앞에 붙인다.
type lineReader struct {
	rc      io.ReadCloser
	br      *bufio.Reader
	partial []byte
}

func newLineReader(rc io.ReadCloser) *lineReader {
	return &lineReader{rc: rc, br: pool.GetReader(rc)}
}

// More 는 읽을 바이트가 하나라도 남았는지 본다.
// EOF 가 아닌 에러는 호출자에게 돌려준다.
func (r *lineReader) More() (bool, error) {
	_, err := r.br.Peek(1)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, io.EOF) {
		return len(r.partial) > 0, nil
	}
	return false, err
}

// ReadLine 은 줄 끝의 "\n" 또는 "\r\n" 을 제거한 한 줄을 돌려준다.
// 개행 없이 끝나는 마지막 줄도 그대로 돌려준다.
func (r *lineReader) ReadLine() (string, error) {
	chunk, err := r.br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		r.partial = append(r.partial, chunk...)
		return "", err
	}

	line := chunk
	if len(r.partial) > 0 {
		line = string(r.partial) + chunk
		r.partial = r.partial[:0]
	}
	if err != nil && line == "" {
		return "", err
	}

	n := len(line)
	if n > 0 && line[n-1] == '\n' {
		n--
		if n > 0 && line[n-1] == '\r' {
			n--
		}
	}
	return line[:n], nil
}

func (r *lineReader) Close() error {
	if r.br != nil {
		pool.PutReader(r.br)
		r.br = nil
	}
	return r.rc.Close()
}
