package redis

import (
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/atlas-aero/rt-embedded-redis/resp"
)

// Credentials authenticates a connection during the handshake.
type Credentials struct {
	// Username is empty for password-only (requirepass) authentication.
	Username string
	Password string
}

// PasswordCredentials authenticates against requirepass.
func PasswordCredentials(password string) Credentials {
	return Credentials{Password: password}
}

// ACLCredentials authenticates a named user.
func ACLCredentials(username, password string) Credentials {
	return Credentials{Username: username, Password: password}
}

func (c Credentials) empty() bool {
	return c.Username == "" && c.Password == ""
}

// ConnectionHandler dials, authenticates and hands out clients for one
// server address. Construction never performs I/O; nothing happens until
// Connect. Each handler owns at most one connection at a time and caches
// it across Connect calls until it fails or Disconnect is called.
//
// Handlers are independent: two handlers for the same address share no
// state, so constructing one is free and repeatable.
type ConnectionHandler struct {
	addr    string
	version resp.Version

	auth    Credentials
	memory  MemoryConfig
	subCfg  SubscriptionConfig
	timeout time.Duration
	log     *zap.Logger
	breaker *gobreaker.CircuitBreaker[*Client]

	client *Client
}

// NewHandlerResp2 prepares a handler speaking RESP2. No HELLO handshake
// is performed.
func NewHandlerResp2(addr string) *ConnectionHandler {
	return &ConnectionHandler{addr: addr, version: resp.RESP2}
}

// NewHandlerResp3 prepares a handler speaking RESP3. Connect performs the
// HELLO handshake and fails with ErrProtocolMismatch if the server does
// not support protocol version 3.
func NewHandlerResp3(addr string) *ConnectionHandler {
	return &ConnectionHandler{addr: addr, version: resp.RESP3}
}

// WithAuth sends AUTH before any other command on every new connection.
func (h *ConnectionHandler) WithAuth(creds Credentials) *ConnectionHandler {
	h.auth = creds
	return h
}

// WithTimeout bounds connect attempts and future waits. Requires a clock
// at Connect time; zero disables deadlines.
func (h *ConnectionHandler) WithTimeout(timeout time.Duration) *ConnectionHandler {
	h.timeout = timeout
	return h
}

// WithMemory fixes the memory footprint of connections this handler
// creates.
func (h *ConnectionHandler) WithMemory(memory MemoryConfig) *ConnectionHandler {
	h.memory = memory
	return h
}

// WithSubscriptionDefaults sets the queue capacity and overflow policy
// used by Client.Subscribe and PSubscribe.
func (h *ConnectionHandler) WithSubscriptionDefaults(cfg SubscriptionConfig) *ConnectionHandler {
	h.subCfg = cfg
	return h
}

func (h *ConnectionHandler) WithLogger(log *zap.Logger) *ConnectionHandler {
	h.log = log
	return h
}

// WithBreaker guards Connect with a circuit breaker so a flapping server
// is not re-dialed on every attempt.
func (h *ConnectionHandler) WithBreaker(cb *gobreaker.CircuitBreaker[*Client]) *ConnectionHandler {
	h.breaker = cb
	return h
}

// NewConnectBreaker builds a circuit breaker suitable for WithBreaker:
// it opens after 5 consecutive connect failures and probes again after
// 10 seconds.
func NewConnectBreaker(name string) *gobreaker.CircuitBreaker[*Client] {
	return gobreaker.NewCircuitBreaker[*Client](gobreaker.Settings{
		Name:    name,
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// Connect returns the cached client if its connection is still alive,
// otherwise dials and performs the handshake. With a clock and a
// configured timeout the attempt is bounded by a deadline; otherwise it
// polls until the stack answers.
func (h *ConnectionHandler) Connect(stack Stack, clock Clock) (*Client, error) {
	if h.client != nil && h.client.conn.State() == StateConnected {
		return h.client, nil
	}
	h.client = nil

	if h.breaker != nil {
		return h.breaker.Execute(func() (*Client, error) {
			return h.connect(stack, clock)
		})
	}
	return h.connect(stack, clock)
}

func (h *ConnectionHandler) connect(stack Stack, clock Clock) (*Client, error) {
	sock, err := h.dial(stack, clock)
	if err != nil {
		return nil, err
	}

	conn := newConnection(sock, h.version, h.memory, h.log)
	conn.clock = clock
	conn.timeout = h.timeout

	client := newClient(conn)
	client.subDefaults = h.subCfg
	if err := h.handshake(client); err != nil {
		return nil, multierr.Append(err, conn.sockErr)
	}

	h.client = client
	return client, nil
}

func (h *ConnectionHandler) dial(stack Stack, clock Clock) (Socket, error) {
	deadline := deadlineFor(clock, h.timeout)
	for {
		sock, err := stack.Connect(h.addr)
		if err == nil {
			return sock, nil
		}
		if !errors.Is(err, ErrWouldBlock) {
			return nil, err
		}
		if expired(clock, deadline) {
			return nil, ErrTimeout
		}
	}
}

// handshake authenticates and negotiates the protocol version. Any
// failure tears the fresh connection down so a half-configured socket is
// never handed out.
func (h *ConnectionHandler) handshake(client *Client) error {
	if !h.auth.empty() {
		fut, err := Send(client, AuthCommand{Username: h.auth.Username, Password: h.auth.Password})
		if err != nil {
			client.conn.Close()
			return err
		}
		if _, err := fut.Wait(); err != nil {
			client.conn.Close()
			var reply *ErrorReply
			if errors.As(err, &reply) {
				return fmt.Errorf("%w: %v", ErrUnauthorized, reply.Message)
			}
			return err
		}
	}

	if h.version.RequiresHello() {
		fut, err := Send(client, HelloCommand{Proto: int64(h.version)})
		if err != nil {
			client.conn.Close()
			return err
		}
		hello, err := fut.Wait()
		if err != nil {
			client.conn.Close()
			var reply *ErrorReply
			if errors.As(err, &reply) {
				return fmt.Errorf("%w: %v", ErrProtocolMismatch, reply.Message)
			}
			return err
		}
		client.hello = &hello
	}
	return nil
}

// Reconnect drops the current connection and dials a fresh one.
// Outstanding futures on the old connection complete with
// ErrConnectionLost.
func (h *ConnectionHandler) Reconnect(stack Stack, clock Clock) (*Client, error) {
	h.Disconnect()
	return h.Connect(stack, clock)
}

// Disconnect closes the cached connection, if any.
func (h *ConnectionHandler) Disconnect() {
	if h.client != nil {
		h.client.Close()
		h.client = nil
	}
}

// State reports the lifecycle of the cached connection.
func (h *ConnectionHandler) State() State {
	if h.client == nil {
		return StateDisconnected
	}
	return h.client.conn.State()
}
