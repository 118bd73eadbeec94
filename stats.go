package redis

// ConnectionStats counts connection activity. Exactly one logical caller
// drives Poll, so the counters are plain fields, not atomics.
type ConnectionStats struct {
	CommandsWritten uint64 // commands queued via WriteCommand
	RepliesMatched  uint64 // frames resolved against the FIFO head
	PushesRouted    uint64 // push messages delivered to a subscription
	PushesDropped   uint64 // push messages with no registered subscriber
	BytesSent       uint64
	BytesReceived   uint64
	FatalCloses     uint64
}

// Stats returns a snapshot of the connection counters.
func (c *Connection) Stats() ConnectionStats {
	return c.stats
}
