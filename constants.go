package redis

// Command words and option tokens of the wire protocol.
const (
	cmdPing         = "PING"
	cmdGet          = "GET"
	cmdSet          = "SET"
	cmdPublish      = "PUBLISH"
	cmdAuth         = "AUTH"
	cmdHello        = "HELLO"
	cmdHGet         = "HGET"
	cmdHSet         = "HSET"
	cmdHGetAll      = "HGETALL"
	cmdBgSave       = "BGSAVE"
	cmdSubscribe    = "SUBSCRIBE"
	cmdPSubscribe   = "PSUBSCRIBE"
	cmdUnsubscribe  = "UNSUBSCRIBE"
	cmdPUnsubscribe = "PUNSUBSCRIBE"

	optEX       = "EX"
	optEXAT     = "EXAT"
	optGet      = "GET"
	optPX       = "PX"
	optNX       = "NX"
	optXX       = "XX"
	optKeepTTL  = "KEEPTTL"
	optSchedule = "SCHEDULE"

	statusOK   = "OK"
	statusPong = "PONG"
)
