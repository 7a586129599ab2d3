package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	val, err := m.Get(ctx, "student:missing")
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, m.Set(ctx, "student:1", []byte(`{"id":"1"}`)))
	val, err = m.Get(ctx, "student:1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"id":"1"}`), val)

	require.NoError(t, m.Set(ctx, "student:1", []byte(`{"id":"1","name":"x"}`)))
	val, err = m.Get(ctx, "student:1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"id":"1","name":"x"}`), val)

	require.NoError(t, m.Delete(ctx, "student:1"))
	val, err = m.Get(ctx, "student:1")
	require.NoError(t, err)
	assert.Nil(t, val)

	// deleting a missing key is not an error
	require.NoError(t, m.Delete(ctx, "student:1"))
}

func TestMemory_ScanPrefix(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "student:1", []byte("a")))
	require.NoError(t, m.Set(ctx, "student:2", []byte("b")))
	require.NoError(t, m.Set(ctx, "attendance:1", []byte("c")))

	vals, err := m.ScanPrefix(ctx, "student:")
	require.NoError(t, err)
	assert.Len(t, vals, 2)

	vals, err = m.ScanPrefix(ctx, "attendance:")
	require.NoError(t, err)
	assert.Len(t, vals, 1)

	vals, err = m.ScanPrefix(ctx, "device:")
	require.NoError(t, err)
	assert.Empty(t, vals)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "k", []byte("abc")))
	val, err := m.Get(ctx, "k")
	require.NoError(t, err)
	val[0] = 'z'

	again, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}
