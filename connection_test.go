package redis_test

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redis "github.com/atlas-aero/rt-embedded-redis"
)

func TestRepliesResolveInCommandOrder(t *testing.T) {
	client, sock := newTestClient(t)

	setFut, err := client.Set("greeting", []byte("world"))
	require.NoError(t, err)
	getFut, err := client.Get("greeting")
	require.NoError(t, err)

	sock.QueueIncoming("+OK\r\n$5\r\nworld\r\n")

	stored, err := setFut.Wait()
	require.NoError(t, err)
	assert.True(t, stored)

	value, err := getFut.Wait()
	require.NoError(t, err)
	assert.True(t, value.Found)
	assert.Equal(t, "world", string(value.Data))

	want := encodeCmd(t, "SET", "greeting", "world") + encodeCmd(t, "GET", "greeting")
	assert.Equal(t, want, sock.Written())
}

func TestWriteCommandDoesNoIO(t *testing.T) {
	client, sock := newTestClient(t)

	_, err := client.Ping()
	require.NoError(t, err)
	assert.Empty(t, sock.Written())

	_, err = client.Connection().Poll()
	require.NoError(t, err)
	assert.Equal(t, encodeCmd(t, "PING"), sock.Written())
}

// A short write leaves the unsent tail in place; the next poll resumes
// from the exact byte where the socket stopped.
func TestShortWriteResumes(t *testing.T) {
	client, sock := newTestClient(t)
	sock.QueueSendQuota(5).QueueSendQuota(0)

	fut, err := client.Ping()
	require.NoError(t, err)

	wire := encodeCmd(t, "PING")

	result, err := client.Connection().Poll()
	require.NoError(t, err)
	assert.Equal(t, redis.Progress, result)
	assert.Equal(t, wire[:5], sock.Written())

	// quota 0: nothing moves
	result, err = client.Connection().Poll()
	require.NoError(t, err)
	assert.Equal(t, redis.Pending, result)
	assert.Equal(t, wire[:5], sock.Written())

	_, err = client.Connection().Poll()
	require.NoError(t, err)
	assert.Equal(t, wire, sock.Written())

	sock.QueueIncoming("+PONG\r\n")
	pong, err := fut.Wait()
	require.NoError(t, err)
	assert.Equal(t, "PONG", pong)
}

// A reply fragmented across receives completes only once all bytes are
// in; the partial prefix is never consumed.
func TestPartialReplyAcrossPolls(t *testing.T) {
	client, sock := newTestClient(t)

	fut, err := client.Get("key")
	require.NoError(t, err)

	sock.QueueIncoming("$5\r\nwor")
	_, err = client.Connection().Poll()
	require.NoError(t, err)
	assert.False(t, fut.Ready())

	sock.QueueIncoming("ld\r\n")
	_, err = client.Connection().Poll()
	require.NoError(t, err)
	require.True(t, fut.Ready())

	value, err := fut.Wait()
	require.NoError(t, err)
	assert.Equal(t, "world", string(value.Data))
}

func TestPollWithoutTrafficIsPending(t *testing.T) {
	client, _ := newTestClient(t)

	result, err := client.Connection().Poll()
	require.NoError(t, err)
	assert.Equal(t, redis.Pending, result)
}

// A transport failure closes the connection and completes every
// outstanding future with ErrConnectionLost, in FIFO order, exactly once.
func TestTransportFailureCompletesAllFutures(t *testing.T) {
	client, sock := newTestClient(t)

	futs := make([]*redis.ReplyFuture[string], 3)
	for i := range futs {
		fut, err := client.Ping()
		require.NoError(t, err)
		futs[i] = fut
	}

	sock.FailReceive(io.ErrUnexpectedEOF)
	_, err := client.Connection().Poll()
	require.Error(t, err)

	assert.Equal(t, redis.StateClosed, client.Connection().State())
	assert.True(t, sock.Closed())

	for _, fut := range futs {
		require.True(t, fut.Ready())
		_, err := fut.Wait()
		require.ErrorIs(t, err, redis.ErrConnectionLost)
	}

	_, err = client.Ping()
	require.ErrorIs(t, err, redis.ErrConnectionClosed)
	assert.Equal(t, uint64(1), client.Connection().Stats().FatalCloses)
}

func TestUnsolicitedReplyIsFatal(t *testing.T) {
	client, sock := newTestClient(t)

	sock.QueueIncoming("+OK\r\n")
	_, err := client.Connection().Poll()
	require.Error(t, err)

	var protoErr *redis.ProtocolError
	assert.True(t, errors.As(err, &protoErr))
	assert.Equal(t, redis.StateClosed, client.Connection().State())
}

func TestMalformedFrameIsFatal(t *testing.T) {
	client, sock := newTestClient(t)

	fut, err := client.Ping()
	require.NoError(t, err)

	sock.QueueIncoming("?bogus\r\n")
	_, err = client.Connection().Poll()
	require.Error(t, err)

	_, err = fut.Wait()
	require.ErrorIs(t, err, redis.ErrConnectionLost)
}

// A frame larger than the fixed read buffer can never complete; this is
// detected and treated as fatal rather than spinning forever.
func TestOversizedFrameIsFatal(t *testing.T) {
	client, sock := newTestClientWithMemory(t, redis.MemoryConfig{ReadBufferSize: 8})

	_, err := client.Get("key")
	require.NoError(t, err)

	sock.QueueIncoming("$100\r\nab")
	_, err = client.Connection().Poll()
	require.Error(t, err)
	assert.Equal(t, redis.StateClosed, client.Connection().State())
}

func TestPendingLimitIsLocalError(t *testing.T) {
	client, sock := newTestClientWithMemory(t, redis.MemoryConfig{MaxPending: 2})

	fut1, err := client.Ping()
	require.NoError(t, err)
	_, err = client.Ping()
	require.NoError(t, err)

	_, err = client.Ping()
	require.ErrorIs(t, err, redis.ErrBufferOverflow)
	assert.Equal(t, redis.StateConnected, client.Connection().State())

	// capacity frees up once a reply arrives
	sock.QueueIncoming("+PONG\r\n")
	_, err = fut1.Wait()
	require.NoError(t, err)

	_, err = client.Ping()
	require.NoError(t, err)
}

func TestWriteBufferOverflowIsLocalError(t *testing.T) {
	client, _ := newTestClientWithMemory(t, redis.MemoryConfig{WriteBufferSize: 16})

	_, err := client.Set("key", []byte("a value that does not fit in sixteen bytes"))
	require.ErrorIs(t, err, redis.ErrBufferOverflow)
	assert.Equal(t, redis.StateConnected, client.Connection().State())
	assert.Equal(t, 0, client.Connection().PendingCount())
}

func TestGrowableBuffersAcceptLargeCommands(t *testing.T) {
	client, sock := newTestClientWithMemory(t, redis.MemoryConfig{
		WriteBufferSize: 8,
		Growable:        true,
	})

	fut, err := client.Set("key", make([]byte, 1024))
	require.NoError(t, err)

	sock.QueueIncoming("+OK\r\n")
	stored, err := fut.Wait()
	require.NoError(t, err)
	assert.True(t, stored)
}

func TestCloseCompletesOutstanding(t *testing.T) {
	client, sock := newTestClient(t)

	fut, err := client.Ping()
	require.NoError(t, err)

	require.NoError(t, client.Close())
	assert.True(t, sock.Closed())

	_, err = fut.Wait()
	require.ErrorIs(t, err, redis.ErrConnectionLost)
}

func TestStatsCountTraffic(t *testing.T) {
	client, sock := newTestClient(t)

	fut, err := client.Ping()
	require.NoError(t, err)
	sock.QueueIncoming("+PONG\r\n")
	_, err = fut.Wait()
	require.NoError(t, err)

	stats := client.Connection().Stats()
	assert.Equal(t, uint64(1), stats.CommandsWritten)
	assert.Equal(t, uint64(1), stats.RepliesMatched)
	assert.Equal(t, uint64(len(encodeCmd(t, "PING"))), stats.BytesSent)
	assert.Equal(t, uint64(7), stats.BytesReceived)
}

func TestFutureIDsAreMonotonic(t *testing.T) {
	client, _ := newTestClient(t)

	first, err := client.Ping()
	require.NoError(t, err)
	second, err := client.Ping()
	require.NoError(t, err)

	assert.Equal(t, first.ID()+1, second.ID())
}
