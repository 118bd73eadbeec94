package redis_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	redis "github.com/atlas-aero/rt-embedded-redis"
	"github.com/atlas-aero/rt-embedded-redis/internal/testutils"
)

// newTestClient connects a RESP2 client over a scripted socket. No
// handshake traffic is exchanged, so the socket starts empty.
func newTestClient(t *testing.T) (*redis.Client, *testutils.SocketMock) {
	t.Helper()
	return newTestClientWithMemory(t, redis.MemoryConfig{})
}

func newTestClientWithMemory(t *testing.T, memory redis.MemoryConfig) (*redis.Client, *testutils.SocketMock) {
	t.Helper()
	sock := testutils.NewSocketMock()
	stack := &testutils.StackMock{Socket: sock}

	client, err := redis.NewHandlerResp2("mock:6379").WithMemory(memory).Connect(stack, nil)
	require.NoError(t, err)
	return client, sock
}

func encodeCmd(t *testing.T, args ...string) string {
	t.Helper()
	builder := redis.NewCommand(args[0])
	for _, arg := range args[1:] {
		builder.ArgString(arg)
	}
	return builder.String()
}
