package redis_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redis "github.com/atlas-aero/rt-embedded-redis"
	"github.com/atlas-aero/rt-embedded-redis/internal/testutils"
)

func newTimedClient(t *testing.T, timeout time.Duration) (*redis.Client, *testutils.SocketMock) {
	t.Helper()
	sock := testutils.NewSocketMock()
	stack := &testutils.StackMock{Socket: sock}
	clock := &testutils.ClockMock{Current: time.Unix(0, 0), Step: 100 * time.Millisecond}

	client, err := redis.NewHandlerResp2("mock:6379").
		WithTimeout(timeout).
		Connect(stack, clock)
	require.NoError(t, err)
	return client, sock
}

func TestWaitReturnsOnceReplyArrives(t *testing.T) {
	client, sock := newTimedClient(t, time.Minute)

	fut, err := client.Ping()
	require.NoError(t, err)
	assert.False(t, fut.Ready())

	sock.QueueIncoming("+PONG\r\n")
	pong, err := fut.Wait()
	require.NoError(t, err)
	assert.Equal(t, "PONG", pong)
	assert.True(t, fut.Ready())
}

// Wait is repeatable: once resolved, later calls return the same result
// without touching the connection.
func TestWaitIsIdempotent(t *testing.T) {
	client, sock := newTimedClient(t, time.Minute)

	fut, err := client.Ping()
	require.NoError(t, err)
	sock.QueueIncoming("+PONG\r\n")

	for i := 0; i < 3; i++ {
		pong, err := fut.Wait()
		require.NoError(t, err)
		assert.Equal(t, "PONG", pong)
	}
}

// An expired wait poisons the connection: reply correlation can no longer
// be guaranteed, so everything outstanding is invalidated.
func TestWaitTimeoutPoisonsConnection(t *testing.T) {
	client, _ := newTimedClient(t, time.Second)

	fut, err := client.Ping()
	require.NoError(t, err)
	other, err := client.Ping()
	require.NoError(t, err)

	_, err = fut.Wait()
	require.ErrorIs(t, err, redis.ErrTimeout)

	assert.Equal(t, redis.StateClosed, client.Connection().State())
	_, err = other.Wait()
	require.ErrorIs(t, err, redis.ErrConnectionLost)
}

// An abandoned future's reply is still consumed so later commands keep
// matching their own replies.
func TestAbandonedFutureKeepsFIFOAligned(t *testing.T) {
	client, sock := newTestClient(t)

	_, err := client.Ping()
	require.NoError(t, err)

	getFut, err := client.Get("key")
	require.NoError(t, err)

	sock.QueueIncoming("+PONG\r\n$5\r\nvalue\r\n")

	value, err := getFut.Wait()
	require.NoError(t, err)
	assert.Equal(t, "value", string(value.Data))
	assert.Equal(t, 0, client.Connection().PendingCount())
}
