package redis

import (
	"strconv"
	"time"

	"github.com/atlas-aero/rt-embedded-redis/resp"
)

// Command serializes itself into wire arguments and interprets the
// generic decoded reply as a typed result. The connection core treats
// commands as opaque byte sequences; all semantics live here.
type Command[R any] interface {
	Build() *CommandBuilder
	Evaluate(frame resp.Frame) (R, error)
}

// CommandBuilder accumulates the argument list of one command.
type CommandBuilder struct {
	args [][]byte
}

// NewCommand starts a builder with the command word. Use it directly with
// RawCommand for commands the typed layer does not cover.
func NewCommand(name string) *CommandBuilder {
	return (&CommandBuilder{}).ArgString(name)
}

func (b *CommandBuilder) Arg(arg []byte) *CommandBuilder {
	b.args = append(b.args, arg)
	return b
}

func (b *CommandBuilder) ArgString(arg string) *CommandBuilder {
	return b.Arg([]byte(arg))
}

func (b *CommandBuilder) ArgInt(n int64) *CommandBuilder {
	return b.Arg(strconv.AppendInt(nil, n, 10))
}

func (b *CommandBuilder) encode(dst []byte) ([]byte, error) {
	return resp.EncodeCommand(dst, b.args...)
}

// String renders the wire encoding, mainly for debugging.
func (b *CommandBuilder) String() string {
	out, err := b.encode(nil)
	if err != nil {
		return ""
	}
	return string(out)
}

// replyError converts a server error frame into an *ErrorReply.
func replyError(frame resp.Frame) error {
	if frame.IsError() {
		return &ErrorReply{Message: frame.Text()}
	}
	return nil
}

// RawCommand sends an arbitrary builder and returns the reply frame
// untyped.
type RawCommand struct {
	Builder *CommandBuilder
}

func (c RawCommand) Build() *CommandBuilder { return c.Builder }

func (c RawCommand) Evaluate(frame resp.Frame) (resp.Frame, error) {
	if err := replyError(frame); err != nil {
		return resp.Frame{}, err
	}
	return frame, nil
}

// Value is the result of a lookup command: the payload plus whether the
// key existed at all.
type Value struct {
	Data  []byte
	Found bool
}

// PingCommand checks connection liveness. The server echoes Message, or
// answers PONG when it is empty.
type PingCommand struct {
	Message string
}

func (c PingCommand) Build() *CommandBuilder {
	b := NewCommand(cmdPing)
	if c.Message != "" {
		b.ArgString(c.Message)
	}
	return b
}

func (c PingCommand) Evaluate(frame resp.Frame) (string, error) {
	if err := replyError(frame); err != nil {
		return "", err
	}
	if !frame.IsString() {
		return "", ErrUnexpectedReply
	}
	// a plain PING answers PONG; anything else is not our reply
	if c.Message == "" && frame.Text() != statusPong {
		return "", ErrUnexpectedReply
	}
	return frame.Text(), nil
}

type GetCommand struct {
	Key string
}

func (c GetCommand) Build() *CommandBuilder {
	return NewCommand(cmdGet).ArgString(c.Key)
}

func (c GetCommand) Evaluate(frame resp.Frame) (Value, error) {
	return evalValue(frame)
}

func evalValue(frame resp.Frame) (Value, error) {
	if err := replyError(frame); err != nil {
		return Value{}, err
	}
	if frame.IsNull() {
		return Value{}, nil
	}
	if !frame.IsString() {
		return Value{}, ErrUnexpectedReply
	}
	return Value{Data: frame.Data, Found: true}, nil
}

// SetMode restricts when SET stores its value.
type SetMode uint8

const (
	// SetAlways stores unconditionally.
	SetAlways SetMode = iota
	// SetNX stores only if the key does not exist.
	SetNX
	// SetXX stores only if the key already exists.
	SetXX
)

// SetOptions carries the optional SET arguments.
type SetOptions struct {
	// TTL expires the key. Sent as EX when it is a whole number of
	// seconds, PX otherwise. Zero means no expiry.
	TTL time.Duration

	// ExpireAt expires the key at an absolute time (EXAT). Ignored when
	// zero; TTL takes precedence when both are set.
	ExpireAt time.Time

	// KeepTTL retains the key's existing expiry.
	KeepTTL bool

	Mode SetMode
}

// SetCommand stores a value. The result is false when an NX/XX condition
// was not met.
type SetCommand struct {
	Key     string
	Value   []byte
	Options SetOptions
}

func (c SetCommand) Build() *CommandBuilder {
	b := NewCommand(cmdSet).ArgString(c.Key).Arg(c.Value)

	switch c.Options.Mode {
	case SetNX:
		b.ArgString(optNX)
	case SetXX:
		b.ArgString(optXX)
	}
	if c.Options.KeepTTL {
		b.ArgString(optKeepTTL)
	}
	if ttl := c.Options.TTL; ttl > 0 {
		if ttl%time.Second == 0 {
			b.ArgString(optEX).ArgInt(int64(ttl / time.Second))
		} else {
			b.ArgString(optPX).ArgInt(ttl.Milliseconds())
		}
	} else if at := c.Options.ExpireAt; !at.IsZero() {
		b.ArgString(optEXAT).ArgInt(at.Unix())
	}
	return b
}

func (c SetCommand) Evaluate(frame resp.Frame) (bool, error) {
	if err := replyError(frame); err != nil {
		return false, err
	}
	if frame.IsNull() {
		// NX/XX condition not met
		return false, nil
	}
	if frame.Kind == resp.KindSimpleString && frame.Text() == statusOK {
		return true, nil
	}
	return false, ErrUnexpectedReply
}

// SetWithGetCommand is SET with the GET option: the result is the key's
// previous value, with Found false when the key did not exist or an NX/XX
// condition prevented the store.
type SetWithGetCommand struct {
	Key     string
	Value   []byte
	Options SetOptions
}

func (c SetWithGetCommand) Build() *CommandBuilder {
	return SetCommand{Key: c.Key, Value: c.Value, Options: c.Options}.Build().ArgString(optGet)
}

func (c SetWithGetCommand) Evaluate(frame resp.Frame) (Value, error) {
	return evalValue(frame)
}

// PublishCommand posts a message to a channel and reports how many
// subscribers received it.
type PublishCommand struct {
	Channel string
	Payload []byte
}

func (c PublishCommand) Build() *CommandBuilder {
	return NewCommand(cmdPublish).ArgString(c.Channel).Arg(c.Payload)
}

func (c PublishCommand) Evaluate(frame resp.Frame) (int64, error) {
	return evalInt(frame)
}

func evalInt(frame resp.Frame) (int64, error) {
	if err := replyError(frame); err != nil {
		return 0, err
	}
	n, ok := frame.Int()
	if !ok {
		return 0, ErrUnexpectedReply
	}
	return n, nil
}

// AuthCommand authenticates the connection: password-only against
// requirepass, or username+password against ACLs.
type AuthCommand struct {
	Username string
	Password string
}

func (c AuthCommand) Build() *CommandBuilder {
	b := NewCommand(cmdAuth)
	if c.Username != "" {
		b.ArgString(c.Username)
	}
	return b.ArgString(c.Password)
}

func (c AuthCommand) Evaluate(frame resp.Frame) (string, error) {
	return evalStatus(frame)
}

func evalStatus(frame resp.Frame) (string, error) {
	if err := replyError(frame); err != nil {
		return "", err
	}
	if frame.Kind != resp.KindSimpleString {
		return "", ErrUnexpectedReply
	}
	return frame.Text(), nil
}

// HelloReply is the parsed response to the HELLO handshake.
type HelloReply struct {
	Server  string
	Version string
	Mode    string
	Role    string
	Proto   int64
	ID      int64
}

// HelloCommand negotiates the protocol version (HELLO <proto>).
type HelloCommand struct {
	Proto int64
}

func (c HelloCommand) Build() *CommandBuilder {
	return NewCommand(cmdHello).ArgInt(c.Proto)
}

func (c HelloCommand) Evaluate(frame resp.Frame) (HelloReply, error) {
	if err := replyError(frame); err != nil {
		return HelloReply{}, err
	}
	if (frame.Kind != resp.KindMap && frame.Kind != resp.KindArray) || len(frame.Items)%2 != 0 {
		return HelloReply{}, ErrUnexpectedReply
	}

	var reply HelloReply
	for i := 0; i+1 < len(frame.Items); i += 2 {
		key, value := frame.Items[i], frame.Items[i+1]
		switch key.Text() {
		case "server":
			reply.Server = value.Text()
		case "version":
			reply.Version = value.Text()
		case "mode":
			reply.Mode = value.Text()
		case "role":
			reply.Role = value.Text()
		case "proto":
			reply.Proto, _ = value.Int()
		case "id":
			reply.ID, _ = value.Int()
		}
	}
	return reply, nil
}

type HGetCommand struct {
	Key   string
	Field string
}

func (c HGetCommand) Build() *CommandBuilder {
	return NewCommand(cmdHGet).ArgString(c.Key).ArgString(c.Field)
}

func (c HGetCommand) Evaluate(frame resp.Frame) (Value, error) {
	return evalValue(frame)
}

// HSetCommand stores one hash field and reports how many fields were
// newly created.
type HSetCommand struct {
	Key   string
	Field string
	Value []byte
}

func (c HSetCommand) Build() *CommandBuilder {
	return NewCommand(cmdHSet).ArgString(c.Key).ArgString(c.Field).Arg(c.Value)
}

func (c HSetCommand) Evaluate(frame resp.Frame) (int64, error) {
	return evalInt(frame)
}

type HGetAllCommand struct {
	Key string
}

func (c HGetAllCommand) Build() *CommandBuilder {
	return NewCommand(cmdHGetAll).ArgString(c.Key)
}

func (c HGetAllCommand) Evaluate(frame resp.Frame) (map[string]string, error) {
	if err := replyError(frame); err != nil {
		return nil, err
	}
	if frame.IsNull() {
		return map[string]string{}, nil
	}
	// RESP3 answers with a map, RESP2 with a flat field/value array.
	if (frame.Kind != resp.KindMap && frame.Kind != resp.KindArray) || len(frame.Items)%2 != 0 {
		return nil, ErrUnexpectedReply
	}

	fields := make(map[string]string, len(frame.Items)/2)
	for i := 0; i+1 < len(frame.Items); i += 2 {
		if !frame.Items[i].IsString() {
			return nil, ErrUnexpectedReply
		}
		fields[frame.Items[i].Text()] = frame.Items[i+1].Text()
	}
	return fields, nil
}

// BgSaveCommand asks the server to snapshot in the background.
type BgSaveCommand struct {
	// Schedule defers the save until no other persistence is running.
	Schedule bool
}

func (c BgSaveCommand) Build() *CommandBuilder {
	b := NewCommand(cmdBgSave)
	if c.Schedule {
		b.ArgString(optSchedule)
	}
	return b
}

func (c BgSaveCommand) Evaluate(frame resp.Frame) (string, error) {
	return evalStatus(frame)
}

// subscribeCommand's acknowledgment arrives as a push-shaped confirmation
// frame consuming one FIFO slot. The result is the channel count reported
// by the server.
type subscribeCommand struct {
	key     string
	pattern bool
}

func (c subscribeCommand) Build() *CommandBuilder {
	if c.pattern {
		return NewCommand(cmdPSubscribe).ArgString(c.key)
	}
	return NewCommand(cmdSubscribe).ArgString(c.key)
}

func (c subscribeCommand) Evaluate(frame resp.Frame) (int64, error) {
	want := resp.PushSubscribe
	if c.pattern {
		want = resp.PushPSubscribe
	}
	return evalConfirmation(frame, want)
}

type unsubscribeCommand struct {
	key     string
	pattern bool
}

func (c unsubscribeCommand) Build() *CommandBuilder {
	if c.pattern {
		return NewCommand(cmdPUnsubscribe).ArgString(c.key)
	}
	return NewCommand(cmdUnsubscribe).ArgString(c.key)
}

func (c unsubscribeCommand) Evaluate(frame resp.Frame) (int64, error) {
	want := resp.PushUnsubscribe
	if c.pattern {
		want = resp.PushPUnsubscribe
	}
	return evalConfirmation(frame, want)
}

func evalConfirmation(frame resp.Frame, want resp.PushKind) (int64, error) {
	if err := replyError(frame); err != nil {
		return 0, err
	}
	// RESP2 arrays and RESP3 push frames share the confirmation layout.
	push, ok, err := resp.AsPush(frame, resp.RESP2)
	if err != nil || !ok || push.Kind != want {
		return 0, ErrUnexpectedReply
	}
	return push.Count, nil
}
