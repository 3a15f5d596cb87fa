package protoroute

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvmir/kvmir/pkg/command"
)

func TestRouteRESP(t *testing.T) {
	cmd, kind, err := Route([]byte("*2\r\n$3\r\nget\r\n$3\r\nfoo\r\n"))
	require.NoError(t, err)
	require.Equal(t, ReplyRESP, kind)
	require.Equal(t, command.Get, cmd.Kind)
}

func TestRouteHTTP(t *testing.T) {
	cmd, kind, err := Route([]byte("GET /foo HTTP/1.1\r\nHost: x\r\n\r\n"))
	require.NoError(t, err)
	require.Equal(t, ReplyHTTP, kind)
	require.Equal(t, command.Get, cmd.Kind)
}

func TestRouteInlinePing(t *testing.T) {
	cmd, kind, err := Route([]byte("PING\r\n"))
	require.NoError(t, err)
	require.Equal(t, ReplyRESP, kind)
	require.Equal(t, command.Ping, cmd.Kind)
}

func TestRouteBothFail(t *testing.T) {
	_, _, err := Route([]byte("\x01\x02\x03"))
	require.Error(t, err)
}

func TestRouteUnknownRESPCommandKeepsReplyKind(t *testing.T) {
	_, kind, err := Route([]byte("*1\r\n$4\r\nnope\r\n"))
	require.Error(t, err)
	require.Equal(t, ReplyRESP, kind)
	var nr *command.NotRecognizedError
	require.ErrorAs(t, err, &nr)
}

func TestRouteUnknownHTTPMethodKeepsReplyKind(t *testing.T) {
	_, kind, err := Route([]byte("PATCH /foo HTTP/1.1\r\n\r\n"))
	require.Error(t, err)
	require.Equal(t, ReplyHTTP, kind)
}
