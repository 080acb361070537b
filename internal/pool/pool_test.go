package pool

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderReuse(t *testing.T) {
	br := GetReader(strings.NewReader("first"))
	assert.Equal(t, ReaderBufSize, br.Size())
	got, err := io.ReadAll(br)
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))
	PutReader(br)

	br = GetReader(strings.NewReader("second"))
	got, err = io.ReadAll(br)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
	PutReader(br)

	PutReader(nil)
}

func TestPutBufferResets(t *testing.T) {
	buf := BufferPool.Get().(*bytes.Buffer)
	buf.WriteString("stale")
	PutBuffer(buf)

	big := bytes.NewBuffer(make([]byte, 0, 2*MaxBufferCap))
	big.WriteString("x")
	PutBuffer(big)
	assert.Equal(t, 1, big.Len(), "oversized buffers are dropped untouched")
}
