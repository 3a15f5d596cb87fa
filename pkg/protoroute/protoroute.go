// Package protoroute implements the protocol router from spec §4.4: it
// looks at one raw frame, decides whether it is RESP or HTTP, and returns
// the decoded Command together with a ReplyKind telling the caller which
// encoder to use for the response.
//
// Per the Design Note in spec §9 ("Protocol probe order"), trying both
// decoders unconditionally is wasteful; Route peeks the first byte (and,
// for HTTP, the presence of " HTTP/" on the request line) to pick a
// decoder first, and only falls back to the other decoder if that guess
// was wrong. CommandNotRecognized is a different case from a protocol
// decode failure: once a frame parses as one protocol, the router commits
// to that protocol's ReplyKind even if the operation name inside it isn't
// known, because the client still needs its reply in the wire format it
// sent.
package protoroute

import (
	"bytes"
	"errors"

	"github.com/kvmir/kvmir/pkg/command"
	"github.com/kvmir/kvmir/pkg/httpline"
	"github.com/kvmir/kvmir/pkg/resp"
)

// ReplyKind selects which codec should encode the response to a routed
// command.
type ReplyKind uint8

const (
	ReplyRESP ReplyKind = iota
	ReplyHTTP
)

// Route decodes data as either RESP or HTTP and returns the resulting
// Command and the ReplyKind to encode the response with. If neither
// decoder can parse the frame, the RESP protocol error is returned, since
// RESP is the primary protocol (spec §4.4).
func Route(data []byte) (*command.Command, ReplyKind, error) {
	if looksLikeHTTP(data) {
		if cmd, kind, err, done := tryHTTP(data); done {
			return cmd, kind, err
		}
	}

	cmd, err := resp.Decode(data)
	if err == nil {
		return cmd, ReplyRESP, nil
	}
	if isNotRecognized(err) {
		return nil, ReplyRESP, err
	}
	respErr := err

	if !looksLikeHTTP(data) {
		if cmd, kind, err, done := tryHTTP(data); done {
			return cmd, kind, err
		}
	}

	return nil, ReplyRESP, respErr
}

func tryHTTP(data []byte) (*command.Command, ReplyKind, error, bool) {
	cmd, err := httpline.Decode(data)
	if err == nil {
		return cmd, ReplyHTTP, nil, true
	}
	if isNotRecognized(err) {
		return nil, ReplyHTTP, err, true
	}
	return nil, ReplyHTTP, err, false
}

func isNotRecognized(err error) bool {
	var nr *command.NotRecognizedError
	return errors.As(err, &nr)
}

// looksLikeHTTP implements the peek heuristic: an ASCII letter (the start
// of a method name) followed somewhere by " HTTP/" on the request line.
// RESP frames always start with one of '*','+','-',':','$', none of which
// is an ASCII letter, so this is unambiguous for well-formed input.
func looksLikeHTTP(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	c := data[0]
	isLetter := (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
	if !isLetter {
		return false
	}
	line := data
	if i := bytes.IndexByte(data, '\r'); i >= 0 {
		line = data[:i]
	}
	return bytes.Contains(line, []byte(" HTTP/"))
}
