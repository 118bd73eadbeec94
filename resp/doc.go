// Package resp implements the RESP2/RESP3 frame codec.
//
// The decoder is incremental: Decode inspects the front of a byte buffer
// and either returns one complete frame with its size, or ErrIncomplete
// without consuming anything. This makes it safe to call repeatedly over
// a receive buffer that fills a few bytes at a time.
//
// The encoder serializes commands as arrays of bulk strings, the request
// form accepted by both protocol versions.
package resp
