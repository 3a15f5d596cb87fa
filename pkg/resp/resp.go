// Package resp implements the RESP wire codec described in spec §4.2: it
// decodes a byte slice into a command.Command and encodes a
// command.Response back into RESP bytes.
//
// The decoder is grounded on the request-parsing shape used by
// tidwall/redcon and the standalone predis/overlord RESP decoders in the
// retrieval pack: a single recursive descent over type-tagged, CRLF
// terminated frames, with an inline-PING short circuit ahead of the real
// grammar for interactive clients that send a bare "PING\r\n".
package resp

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kvmir/kvmir/pkg/command"
)

// ProtocolError is returned for any input that cannot be parsed as a RESP
// frame: non-UTF-8 bytes, an unrecognized type byte, a malformed integer, a
// truncated frame, or a non-string element where a string was required.
// This is spec's RespProtocolDecodingError.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string { return "RESP protocol error: " + e.Msg }

func protoErrf(format string, args ...interface{}) error {
	return &ProtocolError{Msg: fmt.Sprintf(format, args...)}
}

// frame is a decoded RESP value before it has been interpreted as a
// command. Only one of str/num/arr is meaningful, selected by typ.
type frame struct {
	typ   byte
	str   string
	num   int64
	arr   []frame
	isNil bool
}

// Decode parses one RESP frame from data and assembles it into a Command.
// The inline "PING" heartbeat is special-cased ahead of the grammar per
// spec §4.2.
func Decode(data []byte) (*command.Command, error) {
	if bytes.Contains(data, []byte("PING")) {
		return &command.Command{Kind: command.Ping}, nil
	}

	if !utf8.Valid(data) {
		return nil, protoErrf("input is not valid UTF-8")
	}

	f, _, err := decodeFrame(data, 0)
	if err != nil {
		return nil, err
	}

	if f.typ != '*' {
		return nil, protoErrf("expected array frame for a command, got %q", f.typ)
	}

	return assembleCommand(f)
}

func decodeFrame(data []byte, pos int) (frame, int, error) {
	if pos >= len(data) {
		return frame{}, pos, protoErrf("truncated frame at offset %d", pos)
	}

	typ := data[pos]
	pos++

	switch typ {
	case '+', '-':
		line, next, err := readLine(data, pos)
		if err != nil {
			return frame{}, pos, err
		}
		return frame{typ: typ, str: line}, next, nil

	case ':':
		line, next, err := readLine(data, pos)
		if err != nil {
			return frame{}, pos, err
		}
		n, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return frame{}, pos, protoErrf("malformed integer %q", line)
		}
		return frame{typ: typ, num: n}, next, nil

	case '$':
		line, next, err := readLine(data, pos)
		if err != nil {
			return frame{}, pos, err
		}
		length, err := strconv.Atoi(line)
		if err != nil {
			return frame{}, pos, protoErrf("malformed bulk length %q", line)
		}
		if length == -1 {
			return frame{typ: typ, isNil: true}, next, nil
		}
		if length < 0 {
			return frame{}, pos, protoErrf("negative bulk length %d", length)
		}
		if next+length+2 > len(data) {
			return frame{}, pos, protoErrf("truncated bulk string")
		}
		s := string(data[next : next+length])
		if data[next+length] != '\r' || data[next+length+1] != '\n' {
			return frame{}, pos, protoErrf("bulk string missing terminating CRLF")
		}
		return frame{typ: typ, str: s}, next + length + 2, nil

	case '*':
		line, next, err := readLine(data, pos)
		if err != nil {
			return frame{}, pos, err
		}
		count, err := strconv.Atoi(line)
		if err != nil {
			return frame{}, pos, protoErrf("malformed array length %q", line)
		}
		if count == -1 {
			return frame{typ: typ, isNil: true}, next, nil
		}
		if count < 0 {
			return frame{}, pos, protoErrf("negative array length %d", count)
		}
		items := make([]frame, 0, count)
		for i := 0; i < count; i++ {
			var item frame
			item, next, err = decodeFrame(data, next)
			if err != nil {
				return frame{}, pos, err
			}
			items = append(items, item)
		}
		return frame{typ: typ, arr: items}, next, nil

	default:
		return frame{}, pos, protoErrf("unrecognized type byte %q", typ)
	}
}

// readLine consumes bytes up to \r, then discards the following \n, per
// spec §4.2's framing rule.
func readLine(data []byte, pos int) (string, int, error) {
	idx := bytes.IndexByte(data[pos:], '\r')
	if idx < 0 {
		return "", pos, protoErrf("truncated frame: missing CR")
	}
	end := pos + idx
	if end+1 >= len(data) || data[end+1] != '\n' {
		return "", pos, protoErrf("truncated frame: missing LF after CR")
	}
	return string(data[pos:end]), end + 2, nil
}

func frameString(f frame) (string, error) {
	if f.typ != '+' && f.typ != '$' {
		return "", protoErrf("expected string element, got %q", f.typ)
	}
	if f.isNil {
		return "", protoErrf("expected string element, got null")
	}
	return f.str, nil
}

// assembleCommand maps a decoded array onto a command.Command per the
// table in spec §4.2.
func assembleCommand(f frame) (*command.Command, error) {
	if len(f.arr) == 0 {
		return nil, protoErrf("empty command array")
	}

	name, err := frameString(f.arr[0])
	if err != nil {
		return nil, err
	}
	name = strings.ToLower(name)

	var key, value string
	if len(f.arr) > 1 {
		if key, err = frameString(f.arr[1]); err != nil {
			return nil, err
		}
	}
	if len(f.arr) > 2 {
		if value, err = frameString(f.arr[2]); err != nil {
			return nil, err
		}
	}

	var options []string
	for _, item := range f.arr[min(3, len(f.arr)):] {
		s, err := frameString(item)
		if err != nil {
			return nil, err
		}
		options = append(options, s)
	}

	switch name {
	case "get":
		return &command.Command{Kind: command.Get, Key: key}, nil
	case "set":
		ttl, warnings := parseEXOption(options)
		return &command.Command{Kind: command.Set, Key: key, Value: value, TTL: ttl, Warnings: warnings}, nil
	case "del":
		return &command.Command{Kind: command.Del, Key: key}, nil
	case "exists":
		return &command.Command{Kind: command.Exists, Key: key}, nil
	case "incr":
		return &command.Command{Kind: command.Incr, Key: key}, nil
	case "ping":
		return &command.Command{Kind: command.Ping}, nil
	case "config":
		return &command.Command{Kind: command.Config}, nil
	case "command":
		if strings.EqualFold(key, "DOCS") {
			return &command.Command{Kind: command.CommandDocs}, nil
		}
		return nil, command.NewNotRecognizedError(name)
	case "flushdb":
		return &command.Command{Kind: command.FlushDb}, nil
	default:
		return nil, command.NewNotRecognizedError(name)
	}
}

// parseEXOption recognizes exactly one option pair, "EX <seconds>", the
// same shape protocol/commands.rs's make_set accepts. Anything else —
// wrong arity, an unknown option name, a non-numeric value — is ignored
// and reported back as a warning string for the caller to log, per spec
// §4.2's "ignored with a warning" (the original logs this inline with
// tracing::info!; here it is surfaced on the Command for the server to
// log with connection context).
func parseEXOption(options []string) (time.Duration, []string) {
	if len(options) == 0 {
		return 0, nil
	}
	if len(options) == 2 && strings.EqualFold(options[0], "EX") {
		if secs, err := strconv.Atoi(options[1]); err == nil {
			return time.Duration(secs) * time.Second, nil
		}
	}
	return 0, []string{strings.Join(options, " ")}
}

// Encode serializes a Response into RESP bytes per spec §4.2: only
// SimpleString, Integer, and Array are produced; nulls are never emitted.
func Encode(r command.Response) []byte {
	var buf []byte
	return appendEncoded(buf, r)
}

func appendEncoded(buf []byte, r command.Response) []byte {
	switch r.Kind {
	case command.SimpleString:
		buf = append(buf, '+')
		buf = append(buf, r.Str...)
		buf = append(buf, '\r', '\n')
	case command.Integer:
		buf = append(buf, ':')
		buf = strconv.AppendInt(buf, r.Int, 10)
		buf = append(buf, '\r', '\n')
	case command.Array:
		buf = append(buf, '*')
		buf = strconv.AppendInt(buf, int64(len(r.Items)), 10)
		buf = append(buf, '\r', '\n')
		for _, item := range r.Items {
			buf = appendEncoded(buf, item)
		}
	}
	return buf
}
