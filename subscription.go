package redis

import (
	"github.com/zeebo/xxh3"

	"github.com/atlas-aero/rt-embedded-redis/resp"
)

// DropPolicy decides which message is lost when a subscription's bounded
// queue is full. Unbounded buffering is disallowed to respect static
// memory limits.
type DropPolicy uint8

const (
	// DropOldest evicts the queue head to admit the new message.
	DropOldest DropPolicy = iota
	// DropNewest discards the incoming message.
	DropNewest
)

// SubscriptionConfig fixes a subscription queue's capacity and overflow
// policy at creation.
type SubscriptionConfig struct {
	// QueueSize caps undrained messages. Default 16.
	QueueSize int
	Policy    DropPolicy
}

func (c SubscriptionConfig) withDefaults() SubscriptionConfig {
	if c.QueueSize <= 0 {
		c.QueueSize = 16
	}
	return c
}

// Message is one published pub/sub payload.
type Message struct {
	Channel string
	Payload []byte
}

// Subscription receives push messages for one channel or pattern. It is
// created by Client.Subscribe/PSubscribe and holds a bounded queue filled
// by the connection's poll cycle.
type Subscription struct {
	client  *Client
	key     string
	pattern bool

	queue   []Message
	head    int
	count   int
	policy  DropPolicy
	dropped uint64

	// terminal state: ErrUnsubscribed after removal, ErrConnectionLost
	// wrapped cause after a fatal connection error
	closed     error
	registered bool
}

// Channel returns the subscribed channel name or pattern.
func (s *Subscription) Channel() string {
	return s.key
}

// Dropped returns how many messages the overflow policy discarded.
func (s *Subscription) Dropped() uint64 {
	return s.dropped
}

// Receive polls the owning connection once and returns the next queued
// message, or nil when none is pending. Messages queued before removal
// stay retrievable; once drained, a removed subscription reports its
// terminal error.
func (s *Subscription) Receive() (*Message, error) {
	if s.registered && s.client.conn.state == StateConnected {
		if _, err := s.client.conn.Poll(); err != nil && s.count == 0 {
			return nil, err
		}
	}

	if s.count > 0 {
		m := s.queue[s.head]
		s.queue[s.head] = Message{}
		s.head = (s.head + 1) % len(s.queue)
		s.count--
		return &m, nil
	}
	if s.closed != nil {
		return nil, s.closed
	}
	return nil, nil
}

// Unsubscribe removes the key mapping after a confirmed UNSUBSCRIBE (or
// PUNSUBSCRIBE) exchange. Queued messages remain retrievable until
// drained.
func (s *Subscription) Unsubscribe() error {
	if !s.registered {
		return ErrUnsubscribed
	}

	fut, err := send(s.client, unsubscribeCommand{key: s.key, pattern: s.pattern})
	if err != nil {
		return err
	}
	if _, err := fut.Wait(); err != nil {
		return err
	}

	s.client.conn.subs.remove(s.key)
	s.registered = false
	s.closed = ErrUnsubscribed
	return nil
}

// Close drops the handle: it unsubscribes if still registered and
// releases the queue, discarding any undrained messages. The demux
// mapping is removed even when the UNSUBSCRIBE exchange fails, so a
// closed handle can never receive another push.
func (s *Subscription) Close() error {
	var err error
	if s.registered {
		err = s.Unsubscribe()
		if s.registered {
			s.client.conn.subs.remove(s.key)
			s.registered = false
		}
	}
	s.queue = nil
	s.head = 0
	s.count = 0
	if s.closed == nil {
		s.closed = ErrUnsubscribed
	}
	return err
}

func (s *Subscription) push(m Message) {
	if len(s.queue) == 0 {
		// released handle, nowhere to queue
		s.dropped++
		return
	}
	if s.count == len(s.queue) {
		s.dropped++
		if s.policy == DropNewest {
			return
		}
		// evict the head
		s.queue[s.head] = Message{}
		s.head = (s.head + 1) % len(s.queue)
		s.count--
	}
	s.queue[(s.head+s.count)%len(s.queue)] = m
	s.count++
}

func (s *Subscription) fail(err error) {
	s.closed = err
	s.registered = false
}

// subscriptionTable is the demultiplexer's key -> subscription mapping:
// a fixed-capacity open-addressing table hashed with xxh3, so routing a
// push message allocates nothing.
type subscriptionTable struct {
	slots []*Subscription
	count int
	limit int
}

// tombstone keeps probe chains intact after removals.
var tombstone = &Subscription{}

func newSubscriptionTable(size int) subscriptionTable {
	// slot count is the next power of two so probing can use a mask;
	// limit enforces the configured capacity
	n := 4
	for n < size {
		n *= 2
	}
	return subscriptionTable{slots: make([]*Subscription, n), limit: size}
}

func (t *subscriptionTable) mask() uint64 {
	return uint64(len(t.slots) - 1)
}

func (t *subscriptionTable) insert(s *Subscription) error {
	if t.count >= t.limit {
		return ErrBufferOverflow
	}
	i := xxh3.HashString(s.key) & t.mask()
	for {
		cur := t.slots[i]
		if cur == nil || cur == tombstone {
			t.slots[i] = s
			t.count++
			return nil
		}
		if cur.key == s.key {
			t.slots[i] = s
			return nil
		}
		i = (i + 1) & t.mask()
	}
}

func (t *subscriptionTable) lookup(key string) *Subscription {
	i := xxh3.HashString(key) & t.mask()
	for probes := 0; probes < len(t.slots); probes++ {
		cur := t.slots[i]
		if cur == nil {
			return nil
		}
		if cur != tombstone && cur.key == key {
			return cur
		}
		i = (i + 1) & t.mask()
	}
	return nil
}

func (t *subscriptionTable) remove(key string) {
	i := xxh3.HashString(key) & t.mask()
	for probes := 0; probes < len(t.slots); probes++ {
		cur := t.slots[i]
		if cur == nil {
			return
		}
		if cur != tombstone && cur.key == key {
			t.slots[i] = tombstone
			t.count--
			return
		}
		i = (i + 1) & t.mask()
	}
}

// deliver routes one push message by channel (or pattern for pmessage).
// Returns false when no subscriber is registered for the key.
func (t *subscriptionTable) deliver(push resp.Push) bool {
	key := push.Channel
	if push.Kind == resp.PushPMessage {
		key = push.Pattern
	}
	sub := t.lookup(string(key))
	if sub == nil {
		return false
	}
	sub.push(Message{Channel: string(push.Channel), Payload: push.Payload})
	return true
}

func (t *subscriptionTable) failAll(err error) {
	for i, cur := range t.slots {
		if cur != nil && cur != tombstone {
			cur.fail(err)
		}
		t.slots[i] = nil
	}
	t.count = 0
}
