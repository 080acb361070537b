package worker

import (
	"bufio"
	"bytes"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdr-ingest/internal/model"
)

type note struct {
	Text string `json:"text"`
}

func (*note) RecordKind() model.Kind { return model.KindCustom }

func decodeLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	zr, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer zr.Close()

	var out []map[string]any
	sc := bufio.NewScanner(zr)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestEncodeBatchEnvelopes(t *testing.T) {
	t.Parallel()

	b := &model.Batch{
		Records: []model.Record{
			&model.Data{Line: "tail of 7", Seq: 12},
			&model.Trailer{StreamName: "007", TransactionID: 7},
			&model.Header{StreamName: "008", TransactionID: 8},
			&model.Data{Line: "first", Seq: 0},
			&note{Text: "merged"},
		},
		Transactions: []int{7, 8},
		Closed:       []int{7},
	}

	data, err := NewEncoder().EncodeBatch(b)
	require.NoError(t, err)

	lines := decodeLines(t, data)
	require.Len(t, lines, 5)

	assert.Equal(t, map[string]any{"type": "data", "txn": float64(7), "seq": float64(12), "line": "tail of 7"}, lines[0])
	assert.Equal(t, map[string]any{"type": "trailer", "stream": "007", "txn": float64(7)}, lines[1])
	assert.Equal(t, map[string]any{"type": "header", "stream": "008", "txn": float64(8)}, lines[2])
	assert.Equal(t, map[string]any{"type": "data", "txn": float64(8), "seq": float64(0), "line": "first"}, lines[3])
	assert.Equal(t, map[string]any{"type": "record", "txn": float64(8), "record": map[string]any{"text": "merged"}}, lines[4])
}

func TestEncodeEmptyBatch(t *testing.T) {
	t.Parallel()

	data, err := NewEncoder().EncodeBatch(&model.Batch{})
	require.NoError(t, err)
	assert.Empty(t, decodeLines(t, data))
}
