package redis

import (
	"time"

	"github.com/atlas-aero/rt-embedded-redis/resp"
)

// Client pairs a Connection with the typed command layer. It shares the
// connection's single-owner discipline: all methods must be called from
// one logical context.
type Client struct {
	conn    *Connection
	version resp.Version
	hello   *HelloReply

	subDefaults SubscriptionConfig
	encodeBuf   []byte
}

func newClient(conn *Connection) *Client {
	return &Client{conn: conn, version: conn.version}
}

// Connection exposes the underlying connection for direct polling and
// inspection.
func (c *Client) Connection() *Connection {
	return c.conn
}

// ProtocolVersion returns the negotiated wire protocol dialect.
func (c *Client) ProtocolVersion() resp.Version {
	return c.version
}

// Hello returns the server metadata captured during the HELLO handshake,
// or nil on RESP2 connections.
func (c *Client) Hello() *HelloReply {
	return c.hello
}

// Close tears down the connection. Outstanding futures complete with
// ErrConnectionLost.
func (c *Client) Close() error {
	return c.conn.Close()
}

// ReplyFuture resolves a pending reply into the command's typed result.
type ReplyFuture[R any] struct {
	fut *Future
	cmd Command[R]
}

// ID returns the command's monotonic sequence number on its connection.
func (f *ReplyFuture[R]) ID() uint64 {
	return f.fut.ID()
}

// Ready reports whether the reply has arrived. It never drives I/O.
func (f *ReplyFuture[R]) Ready() bool {
	return f.fut.Ready()
}

// Wait polls the connection until the reply arrives, then evaluates it.
func (f *ReplyFuture[R]) Wait() (R, error) {
	frame, err := f.fut.Wait()
	if err != nil {
		var zero R
		return zero, err
	}
	return f.cmd.Evaluate(frame)
}

// Send encodes the command, queues it for transmission and returns a
// typed future. It does not perform I/O; call Poll or Wait to make
// progress. This is a free function because methods cannot introduce
// type parameters.
func Send[R any](c *Client, cmd Command[R]) (*ReplyFuture[R], error) {
	encoded, err := cmd.Build().encode(c.encodeBuf[:0])
	if err != nil {
		return nil, err
	}
	// keep the grown capacity; WriteCommand copies the bytes out
	c.encodeBuf = encoded[:0]

	fut, err := c.conn.WriteCommand(encoded)
	if err != nil {
		return nil, err
	}
	return &ReplyFuture[R]{fut: fut, cmd: cmd}, nil
}

func send[R any](c *Client, cmd Command[R]) (*ReplyFuture[R], error) {
	return Send(c, cmd)
}

// Ping round-trips a liveness check.
func (c *Client) Ping() (*ReplyFuture[string], error) {
	return Send(c, PingCommand{})
}

func (c *Client) Get(key string) (*ReplyFuture[Value], error) {
	return Send(c, GetCommand{Key: key})
}

func (c *Client) Set(key string, value []byte) (*ReplyFuture[bool], error) {
	return Send(c, SetCommand{Key: key, Value: value})
}

// SetWithOptions stores a value with expiry and conditional-write options.
func (c *Client) SetWithOptions(key string, value []byte, opts SetOptions) (*ReplyFuture[bool], error) {
	return Send(c, SetCommand{Key: key, Value: value, Options: opts})
}

// SetWithTTL stores a value that expires after ttl.
func (c *Client) SetWithTTL(key string, value []byte, ttl time.Duration) (*ReplyFuture[bool], error) {
	return Send(c, SetCommand{Key: key, Value: value, Options: SetOptions{TTL: ttl}})
}

// Publish posts a message; the result is the receiving subscriber count.
func (c *Client) Publish(channel string, payload []byte) (*ReplyFuture[int64], error) {
	return Send(c, PublishCommand{Channel: channel, Payload: payload})
}

func (c *Client) HGet(key, field string) (*ReplyFuture[Value], error) {
	return Send(c, HGetCommand{Key: key, Field: field})
}

func (c *Client) HSet(key, field string, value []byte) (*ReplyFuture[int64], error) {
	return Send(c, HSetCommand{Key: key, Field: field, Value: value})
}

func (c *Client) HGetAll(key string) (*ReplyFuture[map[string]string], error) {
	return Send(c, HGetAllCommand{Key: key})
}

// BgSave requests a background snapshot.
func (c *Client) BgSave(schedule bool) (*ReplyFuture[string], error) {
	return Send(c, BgSaveCommand{Schedule: schedule})
}

// Subscribe registers for messages published to channel. The mapping is
// installed before SUBSCRIBE is sent so a message arriving immediately
// after the confirmation cannot be lost, and rolled back if the exchange
// fails.
func (c *Client) Subscribe(channel string) (*Subscription, error) {
	return c.subscribe(channel, false, c.subDefaults)
}

// PSubscribe registers for messages published to channels matching
// pattern.
func (c *Client) PSubscribe(pattern string) (*Subscription, error) {
	return c.subscribe(pattern, true, c.subDefaults)
}

// SubscribeWithConfig is Subscribe with an explicit queue capacity and
// overflow policy.
func (c *Client) SubscribeWithConfig(channel string, cfg SubscriptionConfig) (*Subscription, error) {
	return c.subscribe(channel, false, cfg)
}

// PSubscribeWithConfig is PSubscribe with an explicit queue capacity and
// overflow policy.
func (c *Client) PSubscribeWithConfig(pattern string, cfg SubscriptionConfig) (*Subscription, error) {
	return c.subscribe(pattern, true, cfg)
}

func (c *Client) subscribe(key string, pattern bool, cfg SubscriptionConfig) (*Subscription, error) {
	if c.conn.subs.lookup(key) != nil {
		return nil, ErrAlreadySubscribed
	}

	cfg = cfg.withDefaults()
	sub := &Subscription{
		client:     c,
		key:        key,
		pattern:    pattern,
		queue:      make([]Message, cfg.QueueSize),
		policy:     cfg.Policy,
		registered: true,
	}
	if err := c.conn.subs.insert(sub); err != nil {
		return nil, err
	}

	fut, err := send(c, subscribeCommand{key: key, pattern: pattern})
	if err != nil {
		c.conn.subs.remove(key)
		return nil, err
	}
	if _, err := fut.Wait(); err != nil {
		c.conn.subs.remove(key)
		return nil, err
	}
	return sub, nil
}
