package redis

import "errors"

var (
	// ErrWouldBlock is the transport's "not ready yet" result. It is never
	// a failure: the caller retries on the next poll cycle.
	ErrWouldBlock = errors.New("redis: operation would block")

	// ErrTimeout is returned when a clock is configured and a connect or
	// wait loop exceeds its deadline.
	ErrTimeout = errors.New("redis: deadline exceeded")

	// ErrConnectionLost terminates every outstanding command slot and
	// subscription when a connection fails fatally.
	ErrConnectionLost = errors.New("redis: connection lost")

	// ErrConnectionClosed is returned when operating on a closed connection.
	ErrConnectionClosed = errors.New("redis: connection closed")

	// ErrBufferOverflow reports a fixed-capacity buffer or queue running
	// out of space. On WriteCommand it is local to the call; the
	// connection stays usable.
	ErrBufferOverflow = errors.New("redis: buffer capacity exceeded")

	// ErrUnauthorized is returned when the server rejects AUTH.
	ErrUnauthorized = errors.New("redis: authentication rejected")

	// ErrProtocolMismatch is returned when the server rejects the
	// requested protocol version during the HELLO handshake.
	ErrProtocolMismatch = errors.New("redis: protocol version rejected")

	// ErrAlreadySubscribed is returned when subscribing to a channel or
	// pattern that already has a live subscription on this connection.
	ErrAlreadySubscribed = errors.New("redis: already subscribed")

	// ErrUnsubscribed is returned when a subscription handle is used
	// after removal and its queue has been drained.
	ErrUnsubscribed = errors.New("redis: subscription closed")

	// ErrUnexpectedReply is returned by a typed command whose reply does
	// not match the command specification.
	ErrUnexpectedReply = errors.New("redis: unexpected reply for command")
)

// ErrorReply is an error response sent by the server for a single
// command (for example WRONGTYPE). It is local to that command; the
// connection itself stays healthy.
type ErrorReply struct {
	Message string
}

func (e *ErrorReply) Error() string {
	return "redis: server error: " + e.Message
}

// ProtocolError reports a malformed or unexpected frame on a live
// connection. Terminal for that connection.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return "redis: protocol violation: " + e.Message
}

// TransportError wraps a socket-level failure. Terminal for the
// connection.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return "redis: transport " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
