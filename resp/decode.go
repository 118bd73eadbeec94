package resp

import (
	"errors"
	"strconv"
)

// ErrIncomplete signals that the buffer holds only a prefix of a frame.
// No bytes have been consumed; the caller should retry once more data
// has been received.
var ErrIncomplete = errors.New("resp: incomplete frame")

// ParseError reports a protocol violation in the received byte stream.
// A parse error is not recoverable: the stream position is undefined and
// the connection should be discarded.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string {
	return "resp: " + e.Message
}

var crlf = []byte("\r\n")

// Decode decodes exactly one frame from the front of b and returns the
// number of bytes it occupies. Decoding a partial frame returns
// ErrIncomplete and consumes nothing; calling Decode again with the same
// prefix plus more data yields the same result. Bytes belonging to an
// incomplete frame are never consumed.
func Decode(b []byte) (Frame, int, error) {
	frame, pos, err := decodeAt(b, 0)
	if err != nil {
		return Frame{}, 0, err
	}
	return frame, pos, nil
}

func decodeAt(b []byte, pos int) (Frame, int, error) {
	line, next, err := readLine(b, pos)
	if err != nil {
		return Frame{}, 0, err
	}
	if len(line) == 0 {
		return Frame{}, 0, &ParseError{Message: "empty frame header"}
	}

	kind := Kind(line[0])
	payload := line[1:]

	switch kind {
	case KindSimpleString, KindError, KindInteger, KindDouble, KindBigNumber, KindBoolean:
		return Frame{Kind: kind, Data: payload}, next, nil

	case KindNull:
		if len(payload) != 0 {
			return Frame{}, 0, &ParseError{Message: "null frame with payload"}
		}
		return Frame{Kind: KindNull}, next, nil

	case KindBulkString, KindVerbatim, KindBulkError:
		return decodeBlob(b, kind, payload, next)

	case KindArray, KindMap, KindSet, KindPush:
		return decodeAggregate(b, kind, payload, next)
	}

	return Frame{}, 0, &ParseError{Message: "unknown frame type " + strconv.QuoteRune(rune(line[0]))}
}

// decodeBlob handles length-prefixed byte strings: $<len>\r\n<data>\r\n
func decodeBlob(b []byte, kind Kind, header []byte, next int) (Frame, int, error) {
	size, err := parseLength(header)
	if err != nil {
		return Frame{}, 0, err
	}
	if size == -1 {
		// RESP2 null bulk string
		return Frame{Kind: KindNull}, next, nil
	}

	end := next + size + len(crlf)
	if end > len(b) {
		return Frame{}, 0, ErrIncomplete
	}
	if b[end-2] != '\r' || b[end-1] != '\n' {
		return Frame{}, 0, &ParseError{Message: "blob frame not terminated by CRLF"}
	}
	return Frame{Kind: kind, Data: b[next : next+size]}, end, nil
}

func decodeAggregate(b []byte, kind Kind, header []byte, next int) (Frame, int, error) {
	count, err := parseLength(header)
	if err != nil {
		return Frame{}, 0, err
	}
	if count == -1 {
		// RESP2 null array
		return Frame{Kind: KindNull}, next, nil
	}
	if kind == KindMap {
		// flattened key/value pairs
		count *= 2
		if count < 0 {
			return Frame{}, 0, &ParseError{Message: "illegal length header: " + string(header)}
		}
	}

	// Preallocate only what the buffer could possibly hold (an element
	// is at least 3 bytes); the claimed count is untrusted input. An
	// overstated count drains into ErrIncomplete below.
	items := make([]Frame, 0, min(count, (len(b)-next)/3))
	pos := next
	for i := 0; i < count; i++ {
		item, after, err := decodeAt(b, pos)
		if err != nil {
			return Frame{}, 0, err
		}
		items = append(items, item)
		pos = after
	}
	return Frame{Kind: kind, Items: items}, pos, nil
}

// readLine returns the line starting at pos without its CRLF terminator
// and the position just past the terminator.
func readLine(b []byte, pos int) ([]byte, int, error) {
	for i := pos; i < len(b)-1; i++ {
		if b[i] == '\r' {
			if b[i+1] != '\n' {
				return nil, 0, &ParseError{Message: "bare CR in frame header"}
			}
			return b[pos:i], i + 2, nil
		}
	}
	return nil, 0, ErrIncomplete
}

func parseLength(header []byte) (int, error) {
	n, err := strconv.Atoi(string(header))
	if err != nil || n < -1 {
		return 0, &ParseError{Message: "illegal length header: " + string(header)}
	}
	return n, nil
}
