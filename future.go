package redis

import (
	"github.com/atlas-aero/rt-embedded-redis/resp"
)

// slot is the single-assignment completion cell shared between a pending
// command (write side, owned by the Connection) and its Future (read
// side). It is written at most once.
type slot struct {
	frame  resp.Frame
	err    error
	filled bool
}

func (s *slot) resolve(frame resp.Frame, err error) {
	if s.filled {
		return
	}
	s.frame = frame
	s.err = err
	s.filled = true
}

// Future is the caller-facing handle for one issued command. It does not
// own the connection. Abandoning a Future is safe: the connection still
// decodes and discards its reply to keep the FIFO aligned for later
// commands.
type Future struct {
	conn *Connection
	slot *slot
	id   uint64
}

// ID returns the command's monotonic sequence number on its connection.
func (f *Future) ID() uint64 {
	return f.id
}

// Ready reports whether the completion slot has been filled. It checks
// the slot only and never drives I/O; pair it with Connection.Poll when
// waiting manually.
func (f *Future) Ready() bool {
	return f.slot.filled
}

// Wait drives the owning connection's Poll until the slot fills or a
// fatal error surfaces. This is cooperative, single-threaded waiting: the
// loop runs entirely on the caller's context. When the connection has a
// clock, the loop is bounded by the configured timeout; expiry poisons
// the connection because reply correlation can no longer be guaranteed.
func (f *Future) Wait() (resp.Frame, error) {
	deadline := deadlineFor(f.conn.clock, f.conn.timeout)

	for !f.slot.filled {
		if _, err := f.conn.Poll(); err != nil && !f.slot.filled {
			return resp.Frame{}, err
		}
		if f.slot.filled {
			break
		}
		if expired(f.conn.clock, deadline) {
			f.conn.fail(ErrTimeout)
			return resp.Frame{}, ErrTimeout
		}
	}
	return f.slot.frame, f.slot.err
}
