package resp

import "strconv"

// Version selects the wire protocol dialect spoken on a connection.
type Version int

const (
	RESP2 Version = 2
	RESP3 Version = 3
)

// RequiresHello reports whether the protocol needs an explicit HELLO
// handshake after connecting.
func (v Version) RequiresHello() bool {
	return v == RESP3
}

// Kind identifies the frame type. The values are the wire type bytes.
type Kind byte

const (
	KindSimpleString Kind = '+'
	KindError        Kind = '-'
	KindInteger      Kind = ':'
	KindBulkString   Kind = '$'
	KindArray        Kind = '*'

	// RESP3 only
	KindNull         Kind = '_'
	KindBoolean      Kind = '#'
	KindDouble       Kind = ','
	KindBigNumber    Kind = '('
	KindVerbatim     Kind = '='
	KindMap          Kind = '%'
	KindSet          Kind = '~'
	KindPush         Kind = '>'
	KindBulkError    Kind = '!'
)

// Frame is one decoded protocol unit. Scalar kinds carry their payload in
// Data; aggregate kinds (Array, Map, Set, Push) carry it in Items. Map
// entries are flattened as key/value pairs, so len(Items) is twice the
// element count.
//
// RESP2 null bulk strings ($-1) and null arrays (*-1) decode to KindNull.
type Frame struct {
	Kind  Kind
	Data  []byte
	Items []Frame
}

// IsNull reports whether the frame is a null of either protocol version.
func (f Frame) IsNull() bool {
	return f.Kind == KindNull
}

// IsError reports whether the frame is a server error reply.
func (f Frame) IsError() bool {
	return f.Kind == KindError || f.Kind == KindBulkError
}

// Text returns the payload as a string. Valid for string-like kinds; for
// other kinds it returns the raw payload bytes as-is.
func (f Frame) Text() string {
	return string(f.Data)
}

// Int parses the payload as a signed integer. The second return value is
// false if the frame is not an integer-like kind or the payload is
// malformed.
func (f Frame) Int() (int64, bool) {
	if f.Kind != KindInteger && f.Kind != KindBigNumber {
		return 0, false
	}
	n, err := strconv.ParseInt(string(f.Data), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Clone deep-copies the frame so it no longer aliases the decode buffer.
// Decoded frames point into the caller's byte buffer; a frame that must
// outlive the buffer's next compaction has to be cloned first.
func (f Frame) Clone() Frame {
	out := Frame{Kind: f.Kind}
	if f.Data != nil {
		out.Data = append([]byte(nil), f.Data...)
	}
	if f.Items != nil {
		out.Items = make([]Frame, len(f.Items))
		for i, item := range f.Items {
			out.Items[i] = item.Clone()
		}
	}
	return out
}

// IsString reports whether the frame carries a byte-string payload.
func (f Frame) IsString() bool {
	switch f.Kind {
	case KindSimpleString, KindBulkString, KindVerbatim:
		return true
	}
	return false
}
