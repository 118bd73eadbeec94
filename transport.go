package redis

import (
	"errors"
	"net"
	"os"
	"time"
)

// Socket is one established, non-blocking transport connection. Send and
// Receive must never block: when the operation cannot make progress they
// return ErrWouldBlock (possibly after a partial transfer) and the caller
// retries on a later poll cycle.
type Socket interface {
	// Send writes as much of p as the transport accepts and returns the
	// number of bytes taken. A short send is not an error.
	Send(p []byte) (int, error)

	// Receive fills p with available bytes and returns the count.
	Receive(p []byte) (int, error)

	Close() error
}

// Stack opens sockets. Connect may return ErrWouldBlock while the
// connection attempt is still in progress; the handler polls it until it
// succeeds or fails.
type Stack interface {
	Connect(addr string) (Socket, error)
}

// NetStack adapts the standard library's TCP stack to the non-blocking
// Socket contract. The dial itself is synchronous; per-operation
// deadlines emulate non-blocking send and receive.
type NetStack struct {
	Dialer net.Dialer

	// PollInterval bounds how long a single Send or Receive may occupy
	// the caller before reporting ErrWouldBlock. Defaults to 1ms.
	PollInterval time.Duration
}

func (s *NetStack) Connect(addr string) (Socket, error) {
	conn, err := s.Dialer.Dial("tcp", addr)
	if err != nil {
		return nil, &TransportError{Op: "connect", Err: err}
	}
	interval := s.PollInterval
	if interval <= 0 {
		interval = time.Millisecond
	}
	return &netSocket{conn: conn, interval: interval}, nil
}

type netSocket struct {
	conn     net.Conn
	interval time.Duration
}

func (s *netSocket) Send(p []byte) (int, error) {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.interval)); err != nil {
		return 0, err
	}
	n, err := s.conn.Write(p)
	return n, mapDeadline(err)
}

func (s *netSocket) Receive(p []byte) (int, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(s.interval)); err != nil {
		return 0, err
	}
	n, err := s.conn.Read(p)
	return n, mapDeadline(err)
}

func (s *netSocket) Close() error {
	return s.conn.Close()
}

func mapDeadline(err error) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return ErrWouldBlock
	}
	return err
}
