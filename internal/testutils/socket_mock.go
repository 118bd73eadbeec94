package testutils

import (
	"bytes"
	"time"

	redis "github.com/atlas-aero/rt-embedded-redis"
)

// SocketMock is a scripted implementation of redis.Socket. Incoming bytes
// are delivered one queued chunk per Receive call so tests control exactly
// how the wire fragments; Send accepts at most the next queued quota per
// call so tests can force short writes.
type SocketMock struct {
	incoming [][]byte
	quotas   []int
	written  bytes.Buffer
	closed   bool
	sendErr  error
	recvErr  error
}

func NewSocketMock() *SocketMock {
	return &SocketMock{}
}

// QueueIncoming appends one chunk delivered by a single Receive call.
func (m *SocketMock) QueueIncoming(chunk string) *SocketMock {
	m.incoming = append(m.incoming, []byte(chunk))
	return m
}

// QueueSendQuota limits how many bytes the next Send call accepts. A zero
// quota makes the call report redis.ErrWouldBlock without progress. Once
// all quotas are consumed, Send accepts everything.
func (m *SocketMock) QueueSendQuota(n int) *SocketMock {
	m.quotas = append(m.quotas, n)
	return m
}

// FailSend makes every later Send call return err.
func (m *SocketMock) FailSend(err error) *SocketMock {
	m.sendErr = err
	return m
}

// FailReceive makes Receive return err once the incoming queue is empty.
func (m *SocketMock) FailReceive(err error) *SocketMock {
	m.recvErr = err
	return m
}

func (m *SocketMock) Send(p []byte) (int, error) {
	if m.sendErr != nil {
		return 0, m.sendErr
	}
	if len(m.quotas) > 0 {
		quota := m.quotas[0]
		m.quotas = m.quotas[1:]
		if quota == 0 {
			return 0, redis.ErrWouldBlock
		}
		if quota < len(p) {
			m.written.Write(p[:quota])
			return quota, redis.ErrWouldBlock
		}
	}
	m.written.Write(p)
	return len(p), nil
}

func (m *SocketMock) Receive(p []byte) (int, error) {
	if len(m.incoming) == 0 {
		if m.recvErr != nil {
			return 0, m.recvErr
		}
		return 0, redis.ErrWouldBlock
	}
	chunk := m.incoming[0]
	n := copy(p, chunk)
	if n < len(chunk) {
		m.incoming[0] = chunk[n:]
	} else {
		m.incoming = m.incoming[1:]
	}
	return n, nil
}

func (m *SocketMock) Close() error {
	m.closed = true
	return nil
}

// Written returns everything accepted by Send so far.
func (m *SocketMock) Written() string {
	return m.written.String()
}

// Closed reports whether Close was called.
func (m *SocketMock) Closed() bool {
	return m.closed
}

// StackMock hands out a prepared socket, optionally reporting
// redis.ErrWouldBlock for a number of Connect attempts first.
type StackMock struct {
	Socket     *SocketMock
	NotReady   int
	ConnectErr error

	Attempts int
}

func (s *StackMock) Connect(addr string) (redis.Socket, error) {
	s.Attempts++
	if s.ConnectErr != nil {
		return nil, s.ConnectErr
	}
	if s.NotReady > 0 {
		s.NotReady--
		return nil, redis.ErrWouldBlock
	}
	return s.Socket, nil
}

// ClockMock advances a fixed step on every Now call.
type ClockMock struct {
	Current time.Time
	Step    time.Duration
}

func (c *ClockMock) Now() time.Time {
	c.Current = c.Current.Add(c.Step)
	return c.Current
}
