package redis

// Buffer is a byte queue backing the connection's read and write sides.
// Two implementations exist so allocator-free and allocator-available
// deployments share one core: FixedBuffer never allocates after
// construction, GrowableBuffer may grow up to a hard cap. Exceeding
// capacity is always a reported error, never silent truncation.
type Buffer interface {
	// Write appends p, or fails with ErrBufferOverflow leaving the
	// buffer unchanged.
	Write(p []byte) (int, error)

	// Bytes returns the queued bytes. The slice is valid until the next
	// Write or Discard.
	Bytes() []byte

	// Discard drops n bytes from the front of the queue.
	Discard(n int)

	Len() int

	// Available returns how many more bytes Write can accept.
	Available() int
}

// FixedBuffer is a statically sized byte queue. The backing array is
// allocated once; all later operations are allocation-free.
type FixedBuffer struct {
	buf []byte
	n   int
}

func NewFixedBuffer(capacity int) *FixedBuffer {
	return &FixedBuffer{buf: make([]byte, capacity)}
}

func (b *FixedBuffer) Write(p []byte) (int, error) {
	if len(p) > len(b.buf)-b.n {
		return 0, ErrBufferOverflow
	}
	copy(b.buf[b.n:], p)
	b.n += len(p)
	return len(p), nil
}

func (b *FixedBuffer) Bytes() []byte { return b.buf[:b.n] }

func (b *FixedBuffer) Discard(n int) {
	if n <= 0 {
		return
	}
	if n >= b.n {
		b.n = 0
		return
	}
	copy(b.buf, b.buf[n:b.n])
	b.n -= n
}

func (b *FixedBuffer) Len() int       { return b.n }
func (b *FixedBuffer) Available() int { return len(b.buf) - b.n }

// GrowableBuffer starts at an initial capacity and grows on demand, up to
// an optional hard cap (0 means unbounded).
type GrowableBuffer struct {
	buf []byte
	max int
}

func NewGrowableBuffer(initial, max int) *GrowableBuffer {
	return &GrowableBuffer{buf: make([]byte, 0, initial), max: max}
}

func (b *GrowableBuffer) Write(p []byte) (int, error) {
	if b.max > 0 && len(b.buf)+len(p) > b.max {
		return 0, ErrBufferOverflow
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *GrowableBuffer) Bytes() []byte { return b.buf }

func (b *GrowableBuffer) Discard(n int) {
	if n <= 0 {
		return
	}
	if n >= len(b.buf) {
		b.buf = b.buf[:0]
		return
	}
	b.buf = append(b.buf[:0], b.buf[n:]...)
}

func (b *GrowableBuffer) Len() int { return len(b.buf) }

func (b *GrowableBuffer) Available() int {
	if b.max <= 0 {
		return int(^uint(0) >> 1)
	}
	return b.max - len(b.buf)
}
