package resource

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	name   string
	closed *[]string
	err    error
}

func (r recorder) Close() error {
	*r.closed = append(*r.closed, r.name)
	return r.err
}

func TestCleanupClosesLogResourceLast(t *testing.T) {
	t.Parallel()

	var closed []string
	reg := NewRegistry()

	require.NoError(t, reg.Register(LogResourceKey, recorder{name: LogResourceKey, closed: &closed}))
	require.NoError(t, reg.Register("adapter", recorder{name: "adapter", closed: &closed}))
	require.NoError(t, reg.Register("spooler", recorder{name: "spooler", closed: &closed}))

	assert.True(t, reg.Active())
	assert.Equal(t, []string{LogResourceKey, "adapter", "spooler"}, reg.Keys())

	require.NoError(t, reg.Cleanup())
	assert.Equal(t, []string{"adapter", "spooler", LogResourceKey}, closed)
	assert.False(t, reg.Active())
	assert.Empty(t, reg.Keys())
	assert.Nil(t, reg.Get("adapter"))
}

func TestCleanupJoinsErrorsAndKeepsClosing(t *testing.T) {
	t.Parallel()

	var closed []string
	boom := errors.New("boom")
	reg := NewRegistry()

	require.NoError(t, reg.Register("a", recorder{name: "a", closed: &closed, err: boom}))
	require.NoError(t, reg.Register("b", recorder{name: "b", closed: &closed}))
	require.NoError(t, reg.Register(LogResourceKey, recorder{name: LogResourceKey, closed: &closed}))

	err := reg.Cleanup()
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "b", LogResourceKey}, closed)
}

func TestRegisterRejectsInvalid(t *testing.T) {
	t.Parallel()

	var closed []string
	reg := NewRegistry()

	require.ErrorIs(t, reg.Register("", recorder{closed: &closed}), ErrInvalidResource)
	require.ErrorIs(t, reg.Register("x", nil), ErrInvalidResource)
	assert.False(t, reg.Active())
}
