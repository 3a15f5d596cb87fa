// Package httpline implements the minimal HTTP/1.1 codec described in spec
// §4.3: just enough request-line, header, and body parsing to let a
// curl-style client drive the same command set as the RESP codec, and a
// fixed "HTTP/1.1 200 OK" response encoder.
package httpline

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kvmir/kvmir/pkg/command"
)

// ProtocolError is spec's CurlProtocolDecodingError: a malformed request
// line.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string { return "HTTP protocol error: " + e.Msg }

func protoErrf(format string, args ...interface{}) error {
	return &ProtocolError{Msg: fmt.Sprintf(format, args...)}
}

// Decode parses an HTTP/1.1 request (request line, headers, optional body)
// into a Command, per spec §4.3's method table.
func Decode(data []byte) (*command.Command, error) {
	if !utf8.Valid(data) {
		return nil, protoErrf("input is not valid UTF-8")
	}

	raw := string(data)

	headEnd := strings.Index(raw, "\r\n\r\n")
	head := raw
	body := ""
	if headEnd >= 0 {
		head = raw[:headEnd]
		body = raw[headEnd+4:]
	}

	lines := strings.Split(head, "\r\n")
	if len(lines) == 0 || lines[0] == "" {
		return nil, protoErrf("empty request")
	}

	requestLine := strings.Fields(lines[0])
	if len(requestLine) != 3 {
		return nil, protoErrf("malformed request line %q", lines[0])
	}
	method := strings.ToUpper(requestLine[0])
	path := requestLine[1]
	version := requestLine[2]
	if !strings.HasPrefix(version, "HTTP/") {
		return nil, protoErrf("malformed HTTP version %q", version)
	}

	key := strings.Trim(path, "/")

	body = strings.TrimRight(body, "\r\n")

	var value string
	var options []string
	if body != "" {
		tokens := strings.Fields(body)
		value = tokens[0]
		options = tokens[1:]
	}

	switch method {
	case "GET":
		return &command.Command{Kind: command.Get, Key: key}, nil
	case "POST":
		if body != "" {
			ttl, warnings := parseEXOption(options)
			return &command.Command{Kind: command.Set, Key: key, Value: value, TTL: ttl, Warnings: warnings}, nil
		}
		return &command.Command{Kind: command.Del, Key: key}, nil
	case "DELETE", "DEL":
		return &command.Command{Kind: command.Del, Key: key}, nil
	default:
		return nil, command.NewNotRecognizedError(method)
	}
}

// parseEXOption mirrors pkg/resp's: only a well-formed "EX <seconds>" pair
// is accepted, anything else is ignored and reported back as a warning for
// the caller to log (spec §4.2).
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

// Encode renders a Response as "HTTP/1.1 200 OK\r\n\r\n<body>" per spec
// §4.3. Only SimpleString responses are expected on the HTTP path;
// non-string responses are a fatal encode error.
func Encode(r command.Response) ([]byte, error) {
	if r.Kind != command.SimpleString {
		return nil, protoErrf("cannot encode non-string response over HTTP")
	}
	return []byte("HTTP/1.1 200 OK\r\n\r\n" + r.Str), nil
}
