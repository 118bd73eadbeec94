package redis

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/atlas-aero/rt-embedded-redis/resp"
)

// State is the connection lifecycle. A Connection's transitions are
// monotonic; the ConnectionHandler reports StateDisconnected and dials a
// fresh connection on reconnect.
type State uint8

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// PollResult reports whether one poll pass moved any bytes or frames.
type PollResult uint8

const (
	// Pending means nothing was ready: poll again later.
	Pending PollResult = iota
	// Progress means at least one byte or frame moved.
	Progress
)

// MemoryConfig fixes the connection's memory footprint at construction.
// With Growable false every buffer and queue is allocated once and never
// grows; capacity violations surface as ErrBufferOverflow.
type MemoryConfig struct {
	// ReadBufferSize caps bytes received but not yet decoded. Default 4096.
	ReadBufferSize int

	// WriteBufferSize caps bytes queued for transmission. Default 4096.
	WriteBufferSize int

	// MaxPending caps commands awaiting replies. Default 32.
	MaxPending int

	// SubscriptionSlots caps concurrently registered subscriptions.
	// Default 8.
	SubscriptionSlots int

	// Growable backs the byte buffers with dynamically growing storage,
	// using the sizes above as initial capacities and MaxGrowth as the
	// hard cap (0 = unbounded).
	Growable  bool
	MaxGrowth int
}

func (m MemoryConfig) withDefaults() MemoryConfig {
	if m.ReadBufferSize <= 0 {
		m.ReadBufferSize = 4096
	}
	if m.WriteBufferSize <= 0 {
		m.WriteBufferSize = 4096
	}
	if m.MaxPending <= 0 {
		m.MaxPending = 32
	}
	if m.SubscriptionSlots <= 0 {
		m.SubscriptionSlots = 8
	}
	return m
}

func (m MemoryConfig) newBuffer(size int) Buffer {
	if m.Growable {
		return NewGrowableBuffer(size, m.MaxGrowth)
	}
	return NewFixedBuffer(size)
}

// pendingCommand pairs a monotonic id with the completion slot the
// Connection will fill once the matching reply is decoded.
type pendingCommand struct {
	id   uint64
	slot *slot
}

// pendingRing is the bounded FIFO of commands awaiting replies. Queue
// order equals command write order.
type pendingRing struct {
	items []pendingCommand
	head  int
	count int
}

func newPendingRing(capacity int) pendingRing {
	return pendingRing{items: make([]pendingCommand, capacity)}
}

func (r *pendingRing) push(pc pendingCommand) bool {
	if r.count == len(r.items) {
		return false
	}
	r.items[(r.head+r.count)%len(r.items)] = pc
	r.count++
	return true
}

func (r *pendingRing) pop() (pendingCommand, bool) {
	if r.count == 0 {
		return pendingCommand{}, false
	}
	pc := r.items[r.head]
	r.items[r.head] = pendingCommand{}
	r.head = (r.head + 1) % len(r.items)
	r.count--
	return pc, true
}

func (r *pendingRing) len() int { return r.count }

// Connection owns one socket, a bounded write buffer with a sent cursor,
// a bounded read buffer, and the pending-command FIFO. It is driven
// exclusively through Poll: no method blocks, and there is no internal
// locking because there is no concurrent mutation, only sequential
// re-entry by a single logical owner.
type Connection struct {
	sock    Socket
	version resp.Version

	writeBuf Buffer
	sent     int // bytes at the front of writeBuf already handed to the socket
	readBuf  Buffer
	scratch  []byte

	pending pendingRing
	nextID  uint64

	subs subscriptionTable

	state    State
	closeErr error
	sockErr  error

	clock   Clock
	timeout time.Duration

	stats ConnectionStats
	log   *zap.Logger
}

func newConnection(sock Socket, version resp.Version, memory MemoryConfig, log *zap.Logger) *Connection {
	memory = memory.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &Connection{
		sock:     sock,
		version:  version,
		writeBuf: memory.newBuffer(memory.WriteBufferSize),
		readBuf:  memory.newBuffer(memory.ReadBufferSize),
		scratch:  make([]byte, 256),
		pending:  newPendingRing(memory.MaxPending),
		subs:     newSubscriptionTable(memory.SubscriptionSlots),
		state:    StateConnected,
		log:      log,
	}
}

// State returns the connection lifecycle state.
func (c *Connection) State() State {
	return c.state
}

// PendingCount returns the number of commands awaiting replies.
func (c *Connection) PendingCount() int {
	return c.pending.len()
}

// WriteCommand queues pre-encoded command bytes for transmission and
// enqueues a pending command at the FIFO tail. The returned Future is
// bound to the command's completion slot. A full write buffer or FIFO
// fails with ErrBufferOverflow; the error is local and the connection
// stays usable.
func (c *Connection) WriteCommand(encoded []byte) (*Future, error) {
	if c.state != StateConnected {
		return nil, ErrConnectionClosed
	}
	if c.pending.len() == len(c.pending.items) {
		return nil, ErrBufferOverflow
	}
	if _, err := c.writeBuf.Write(encoded); err != nil {
		return nil, err
	}

	c.nextID++
	pc := pendingCommand{id: c.nextID, slot: &slot{}}
	c.pending.push(pc)
	c.stats.CommandsWritten++

	return &Future{conn: c, slot: pc.slot, id: pc.id}, nil
}

// Poll performs one non-blocking pass: flush as much of the write buffer
// as the socket accepts, append newly available bytes to the read buffer,
// then decode and route complete frames. Would-block conditions and
// incomplete frames yield Pending; fatal conditions close the connection
// and complete every outstanding slot with ErrConnectionLost in FIFO
// order, exactly once.
func (c *Connection) Poll() (PollResult, error) {
	if c.state != StateConnected {
		return Pending, c.closedErr()
	}

	progress := false

	ok, err := c.flushWrites(&progress)
	if !ok {
		return Pending, err
	}
	ok, err = c.fillReads(&progress)
	if !ok {
		return Pending, err
	}
	ok, err = c.decodeFrames(&progress)
	if !ok {
		return Pending, err
	}

	if progress {
		return Progress, nil
	}
	return Pending, nil
}

// flushWrites sends writeBuf[sent:], advancing the sent cursor. A short
// write resumes from the cursor on the next cycle; the buffer is
// compacted once fully flushed.
func (c *Connection) flushWrites(progress *bool) (bool, error) {
	for c.sent < c.writeBuf.Len() {
		n, err := c.sock.Send(c.writeBuf.Bytes()[c.sent:])
		if n > 0 {
			c.sent += n
			c.stats.BytesSent += uint64(n)
			*progress = true
		}
		if err != nil {
			if errors.Is(err, ErrWouldBlock) {
				break
			}
			return false, c.fail(&TransportError{Op: "send", Err: err})
		}
		if n == 0 {
			break
		}
	}
	if c.sent > 0 && c.sent == c.writeBuf.Len() {
		c.writeBuf.Discard(c.sent)
		c.sent = 0
	}
	return true, nil
}

func (c *Connection) fillReads(progress *bool) (bool, error) {
	for {
		avail := c.readBuf.Available()
		if avail == 0 {
			return true, nil
		}
		chunk := c.scratch
		if avail < len(chunk) {
			chunk = chunk[:avail]
		}
		n, err := c.sock.Receive(chunk)
		if n > 0 {
			c.readBuf.Write(chunk[:n])
			c.stats.BytesReceived += uint64(n)
			*progress = true
		}
		if err != nil {
			if errors.Is(err, ErrWouldBlock) {
				return true, nil
			}
			return false, c.fail(&TransportError{Op: "receive", Err: err})
		}
		if n == 0 {
			return true, nil
		}
	}
}

func (c *Connection) decodeFrames(progress *bool) (bool, error) {
	for c.readBuf.Len() > 0 {
		frame, n, err := resp.Decode(c.readBuf.Bytes())
		if err != nil {
			if errors.Is(err, resp.ErrIncomplete) {
				if c.readBuf.Available() == 0 {
					// The partial frame can never complete within the
					// fixed capacity.
					return false, c.fail(&ProtocolError{Message: "read buffer full with no decodable frame"})
				}
				return true, nil
			}
			return false, c.fail(&ProtocolError{Message: err.Error()})
		}
		// The decoded frame aliases the read buffer, which is about to be
		// compacted; detach it before routing.
		frame = frame.Clone()
		c.readBuf.Discard(n)
		*progress = true

		if err := c.route(frame); err != nil {
			return false, err
		}
	}
	return true, nil
}

// route delivers one decoded frame. Published messages go to the
// subscription demultiplexer by key; everything else, including
// subscribe/unsubscribe confirmations, resolves the FIFO head.
func (c *Connection) route(frame resp.Frame) error {
	push, isPush, err := resp.AsPush(frame, c.version)
	if err != nil {
		return c.fail(&ProtocolError{Message: err.Error()})
	}

	if isPush && !push.IsConfirmation() {
		if c.subs.deliver(push) {
			c.stats.PushesRouted++
		} else {
			c.stats.PushesDropped++
		}
		return nil
	}

	pc, ok := c.pending.pop()
	if !ok {
		return c.fail(&ProtocolError{Message: "reply received with no pending command"})
	}
	pc.slot.resolve(frame, nil)
	c.stats.RepliesMatched++
	return nil
}

// fail transitions the connection to StateClosed: every outstanding slot
// is force-completed with ErrConnectionLost in FIFO order, every live
// subscription is terminated, and the socket is closed. Idempotent; only
// the first cause is recorded. Always returns the recorded close error.
func (c *Connection) fail(cause error) error {
	if c.state == StateClosed {
		return c.closedErr()
	}
	c.state = StateClosed
	c.closeErr = cause
	c.stats.FatalCloses++

	lost := fmt.Errorf("%w: %v", ErrConnectionLost, cause)
	for {
		pc, ok := c.pending.pop()
		if !ok {
			break
		}
		pc.slot.resolve(resp.Frame{}, lost)
	}
	c.subs.failAll(lost)

	if c.sock != nil {
		c.sockErr = c.sock.Close()
	}
	c.log.Warn("connection closed",
		zap.Error(cause),
		zap.Uint64("commands_written", c.stats.CommandsWritten))
	return c.closeErr
}

func (c *Connection) closedErr() error {
	if c.closeErr != nil {
		return c.closeErr
	}
	return ErrConnectionClosed
}

// Close tears the connection down locally. Outstanding slots and
// subscriptions are completed with ErrConnectionLost; the returned error
// is the socket's close result.
func (c *Connection) Close() error {
	if c.state == StateClosed {
		return c.sockErr
	}
	c.fail(ErrConnectionClosed)
	return c.sockErr
}
