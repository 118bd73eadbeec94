package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedBuffer(t *testing.T) {
	buf := NewFixedBuffer(8)
	assert.Equal(t, 0, buf.Len())
	assert.Equal(t, 8, buf.Available())

	n, err := buf.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buf.Bytes()))
	assert.Equal(t, 3, buf.Available())

	buf.Discard(2)
	assert.Equal(t, "llo", string(buf.Bytes()))
	assert.Equal(t, 5, buf.Available())
}

func TestFixedBufferOverflowLeavesContent(t *testing.T) {
	buf := NewFixedBuffer(4)
	_, err := buf.Write([]byte("abc"))
	require.NoError(t, err)

	_, err = buf.Write([]byte("de"))
	require.ErrorIs(t, err, ErrBufferOverflow)
	assert.Equal(t, "abc", string(buf.Bytes()))
}

func TestFixedBufferDiscardAll(t *testing.T) {
	buf := NewFixedBuffer(4)
	buf.Write([]byte("abcd"))
	buf.Discard(10)
	assert.Equal(t, 0, buf.Len())
	assert.Equal(t, 4, buf.Available())
}

func TestGrowableBufferGrows(t *testing.T) {
	buf := NewGrowableBuffer(2, 0)
	_, err := buf.Write([]byte("a long payload well past the initial capacity"))
	require.NoError(t, err)
	assert.Equal(t, 46, buf.Len())

	buf.Discard(7)
	assert.Equal(t, "payload well past the initial capacity", string(buf.Bytes()))
}

func TestGrowableBufferHardCap(t *testing.T) {
	buf := NewGrowableBuffer(2, 4)
	_, err := buf.Write([]byte("abcd"))
	require.NoError(t, err)

	_, err = buf.Write([]byte("e"))
	require.ErrorIs(t, err, ErrBufferOverflow)
	assert.Equal(t, 0, buf.Available())
}
