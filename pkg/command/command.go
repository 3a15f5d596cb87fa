// Package command defines the tagged-variant request/response model shared
// by the RESP and HTTP codecs, the protocol router, and the executor.
//
// A Command is produced by a codec, carried through the router, and
// consumed by exactly one call into the executor. It never carries
// protocol-specific detail (no RESP framing, no HTTP headers) — those stay
// in their respective codec packages.
package command

import "time"

// Kind identifies which operation a Command represents.
type Kind uint8

const (
	Get Kind = iota
	Set
	Del
	Exists
	Incr
	Ping
	Config
	CommandDocs
	FlushDb
)

// String returns the lowercase command name, as used in log lines and
// metrics labels.
func (k Kind) String() string {
	switch k {
	case Get:
		return "get"
	case Set:
		return "set"
	case Del:
		return "del"
	case Exists:
		return "exists"
	case Incr:
		return "incr"
	case Ping:
		return "ping"
	case Config:
		return "config"
	case CommandDocs:
		return "command"
	case FlushDb:
		return "flushdb"
	default:
		return "unknown"
	}
}

// Command is one of the client operations described in spec §4.1. Only the
// fields relevant to Kind are populated; the rest are left zero.
type Command struct {
	Kind  Kind
	Key   string
	Value string
	// TTL is the relative expiry duration requested for Set, or zero if
	// none was supplied.
	TTL time.Duration
	// Warnings holds option tokens a codec ignored while assembling this
	// Command (spec §4.2: unrecognized SET option pairs are "ignored with
	// a warning"). Empty unless Kind is Set and malformed options were
	// present.
	Warnings []string
}

// ResponseKind identifies the shape of a Response.
type ResponseKind uint8

const (
	SimpleString ResponseKind = iota
	Integer
	Array
)

// Response is the executor's pure output for a Command, encoded later by
// whichever codec the connection is using.
type Response struct {
	Kind  ResponseKind
	Str   string
	Int   int64
	Items []Response
}

// NewSimpleString builds a SimpleString response.
func NewSimpleString(s string) Response {
	return Response{Kind: SimpleString, Str: s}
}

// NewInteger builds an Integer response.
func NewInteger(n int64) Response {
	return Response{Kind: Integer, Int: n}
}

// NewArray builds an Array response.
func NewArray(items []Response) Response {
	return Response{Kind: Array, Items: items}
}
