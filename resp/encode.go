package resp

import (
	"errors"
	"strconv"
)

// ErrEmptyCommand is returned when encoding a command with no arguments.
var ErrEmptyCommand = errors.New("resp: command has no arguments")

// EncodeCommand appends the wire encoding of a command to dst and returns
// the extended slice. Commands are always sent as arrays of bulk strings,
// which both protocol versions accept.
func EncodeCommand(dst []byte, args ...[]byte) ([]byte, error) {
	if len(args) == 0 {
		return dst, ErrEmptyCommand
	}

	dst = append(dst, byte(KindArray))
	dst = strconv.AppendInt(dst, int64(len(args)), 10)
	dst = append(dst, crlf...)

	for _, arg := range args {
		dst = append(dst, byte(KindBulkString))
		dst = strconv.AppendInt(dst, int64(len(arg)), 10)
		dst = append(dst, crlf...)
		dst = append(dst, arg...)
		dst = append(dst, crlf...)
	}
	return dst, nil
}
