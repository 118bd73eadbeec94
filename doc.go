// Package redis is a single-threaded, non-blocking client core for the
// Redis wire protocol (RESP2 and RESP3). All progress is made through
// explicit Poll calls on one logical owner: commands are queued, futures
// resolve as replies are decoded in FIFO order, and published pub/sub
// messages are demultiplexed to per-channel subscriptions. Memory use is
// fixed at construction unless growable buffers are requested.
package redis
