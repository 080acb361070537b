// internal/worker/encoder.go
package worker

import (
	"bytes"

	"cdr-ingest/internal/model"
	"cdr-ingest/internal/pool"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
)

// envelope 는 출력 JSONL 한 줄.
//
//	{"type":"header","stream":"001","txn":1}
//	{"type":"data","txn":1,"seq":0,"line":"..."}
//	{"type":"trailer","stream":"001","txn":1}
//	{"type":"record","txn":1,"record":{...}}   // transform hook 이 만든 레코드
type envelope struct {
	Type   string       `json:"type"`
	Stream string       `json:"stream,omitempty"`
	Txn    int          `json:"txn,omitempty"`
	Seq    *int         `json:"seq,omitempty"`
	Line   string       `json:"line,omitempty"`
	Record model.Record `json:"record,omitempty"`
}

// Encoder 는 배치를 JSONL → gzip 형태로 직렬화한다.
//
//   - goccy/go-json 인코딩
//   - gzip.Writer + bytes.Buffer 재사용(pool 기반)
//   - 결과는 새로운 []byte 로 복사해 호출자에게 소유권을 넘긴다
//     (pool 버퍼를 그대로 반환하면 다음 배치가 덮어쓴다)
type Encoder struct{}

func NewEncoder() *Encoder {
	return &Encoder{}
}

// EncodeBatch
//
// Data 와 hook 레코드에는 txn 필드가 없으므로 배치 안에서 직전 Header 의 txn 을 따라간다.
// Header 없이 시작하는 배치(앞 cycle 에서 열린 스트림)는 Transactions[0] 이 현재 txn 이다.
func (e *Encoder) EncodeBatch(b *model.Batch) ([]byte, error) {
	buf := pool.BufferPool.Get().(*bytes.Buffer)
	buf.Reset()

	gz := pool.GzipPool.Get().(*gzip.Writer)
	gz.Reset(buf)

	enc := json.NewEncoder(gz)

	cur := 0
	if len(b.Transactions) > 0 {
		cur = b.Transactions[0]
	}

	for _, r := range b.Records {
		if err := enc.Encode(wrap(r, &cur)); err != nil {
			_ = gz.Close()
			pool.GzipPool.Put(gz)
			pool.PutBuffer(buf)
			return nil, err
		}
	}

	if err := gz.Close(); err != nil {
		pool.GzipPool.Put(gz)
		pool.PutBuffer(buf)
		return nil, err
	}
	pool.GzipPool.Put(gz)

	raw := buf.Bytes()
	data := make([]byte, len(raw))
	copy(data, raw)

	pool.PutBuffer(buf)

	return data, nil
}

func wrap(r model.Record, cur *int) envelope {
	switch v := r.(type) {
	case *model.Header:
		*cur = v.TransactionID
		return envelope{Type: model.KindHeader.String(), Stream: v.StreamName, Txn: v.TransactionID}
	case *model.Trailer:
		return envelope{Type: model.KindTrailer.String(), Stream: v.StreamName, Txn: v.TransactionID}
	case *model.Data:
		seq := v.Seq
		return envelope{Type: model.KindData.String(), Txn: *cur, Seq: &seq, Line: v.Line}
	default:
		return envelope{Type: r.RecordKind().String(), Txn: *cur, Record: r}
	}
}
