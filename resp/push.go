package resp

// PushKind classifies the out-of-band frames of the subscribe family.
type PushKind int

const (
	PushMessage PushKind = iota
	PushPMessage
	PushSubscribe
	PushPSubscribe
	PushUnsubscribe
	PushPUnsubscribe
)

// Push is a decoded push frame.
type Push struct {
	Kind PushKind

	// Channel the message was published to. For pattern messages this is
	// the concrete channel; Pattern carries the matching pattern.
	Channel []byte
	Pattern []byte
	Payload []byte

	// Count is the number of active subscriptions reported by
	// (un)subscribe confirmations.
	Count int64
}

// IsConfirmation reports whether the push acknowledges a subscribe or
// unsubscribe command rather than delivering a published message.
func (p Push) IsConfirmation() bool {
	return p.Kind != PushMessage && p.Kind != PushPMessage
}

var pushKinds = map[string]PushKind{
	"message":      PushMessage,
	"pmessage":     PushPMessage,
	"subscribe":    PushSubscribe,
	"psubscribe":   PushPSubscribe,
	"unsubscribe":  PushUnsubscribe,
	"punsubscribe": PushPUnsubscribe,
}

// AsPush classifies a decoded frame. Classification is purely by frame
// shape: RESP3 marks pushes with a dedicated type byte, RESP2 delivers
// them as arrays whose first element names a subscribe-family event.
// The boolean is false for ordinary replies; an error is returned only
// for frames that are push-shaped but malformed.
func AsPush(f Frame, v Version) (Push, bool, error) {
	switch f.Kind {
	case KindPush:
	case KindArray:
		if v != RESP2 {
			return Push{}, false, nil
		}
	default:
		return Push{}, false, nil
	}

	items := f.Items
	if len(items) < 3 || !items[0].IsString() {
		if f.Kind == KindPush {
			return Push{}, false, &ParseError{Message: "malformed push frame"}
		}
		return Push{}, false, nil
	}

	kind, ok := pushKinds[string(items[0].Data)]
	if !ok {
		if f.Kind == KindPush {
			return Push{}, false, &ParseError{Message: "unknown push type " + items[0].Text()}
		}
		return Push{}, false, nil
	}

	push := Push{Kind: kind}
	switch kind {
	case PushMessage:
		if !items[1].IsString() || !items[2].IsString() {
			return Push{}, false, &ParseError{Message: "malformed message push"}
		}
		push.Channel = items[1].Data
		push.Payload = items[2].Data

	case PushPMessage:
		if len(items) < 4 || !items[1].IsString() || !items[2].IsString() || !items[3].IsString() {
			return Push{}, false, &ParseError{Message: "malformed pmessage push"}
		}
		push.Pattern = items[1].Data
		push.Channel = items[2].Data
		push.Payload = items[3].Data

	default:
		count, ok := items[2].Int()
		if !ok || count < 0 {
			return Push{}, false, &ParseError{Message: "malformed subscription confirmation"}
		}
		if items[1].IsString() {
			push.Channel = items[1].Data
		}
		push.Count = count
	}
	return push, true, nil
}
