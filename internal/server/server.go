// Package server implements the kvmir connection server from spec §4.7: an
// accept loop handing each connection its own goroutine, a protocol probe
// per received frame, and a single engine-actor goroutine holding
// exclusive access to the store, per SPEC_FULL.md §4.
package server

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kvmir/kvmir/pkg/command"
	"github.com/kvmir/kvmir/pkg/engine"
	"github.com/kvmir/kvmir/pkg/executor"
	"github.com/kvmir/kvmir/pkg/httpline"
	"github.com/kvmir/kvmir/pkg/metrics"
	"github.com/kvmir/kvmir/pkg/protoroute"
	"github.com/kvmir/kvmir/pkg/resp"
)

// readBufSize is spec §4.7's "4 KiB is sufficient for this workload".
const readBufSize = 4096

// Server accepts kvmir client connections on one TCP listener and routes
// each frame to the engine actor it supervises.
type Server struct {
	addr    string
	logger  zerolog.Logger
	metrics *metrics.Registry
}

// New builds a Server bound to addr. Call Run to start it.
func New(addr string, logger zerolog.Logger, reg *metrics.Registry) *Server {
	return &Server{addr: addr, logger: logger, metrics: reg}
}

// Run listens on the server's address and serves connections against
// store until ctx is canceled or a fatal error occurs in either the
// engine actor or the accept loop, whichever happens first — the
// errgroup.WithContext cancellation propagating between the two mirrors
// the way DanDo385-eth-rpc-monitor and cowsql-go-cowsql tie a worker's
// failure to the rest of the group's lifetime.
func (s *Server) Run(ctx context.Context, store *engine.Store) error {
	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}
	s.logger.Info().Str("addr", s.addr).Msg("kvmir server listening")

	g, gctx := errgroup.WithContext(ctx)
	requests := make(chan engine.Request)

	g.Go(func() error {
		return engine.Run(gctx, store, requests)
	})
	g.Go(func() error {
		<-gctx.Done()
		return listener.Close()
	})
	g.Go(func() error {
		return s.acceptLoop(gctx, listener, requests)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *Server) acceptLoop(ctx context.Context, listener net.Listener, requests chan<- engine.Request) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				s.logger.Warn().Err(err).Msg("failed to accept connection")
				continue
			}
		}
		go s.handleConnection(ctx, conn, requests)
	}
}

// handleConnection implements spec §4.7's per-connection loop: read one
// frame, route it, execute it against the engine actor, encode the
// reply, write it, and loop unless the reply kind was HTTP (HTTP/1.1
// default-close).
func (s *Server) handleConnection(ctx context.Context, conn net.Conn, requests chan<- engine.Request) {
	connID := uuid.NewString()[:8]
	logger := s.logger.With().Str("conn", connID).Logger()

	s.metrics.Connections.Inc()
	defer func() {
		conn.Close()
		s.metrics.Connections.Dec()
	}()

	buf := make([]byte, readBufSize)
	for {
		n, err := conn.Read(buf)
		if err != nil || n == 0 {
			return
		}
		data := make([]byte, n)
		copy(data, buf[:n])

		cmd, replyKind, err := protoroute.Route(data)
		if err != nil {
			logger.Debug().Err(err).Msg("unrecognized command")
			if replyKind == protoroute.ReplyHTTP {
				conn.Write([]byte("HTTP/1.1 200 OK\r\n\r\nERR unknown command"))
			} else {
				conn.Write([]byte("-ERR unknown command\r\n"))
			}
			return
		}

		for _, w := range cmd.Warnings {
			logger.Warn().Str("option", w).Str("command", cmd.Kind.String()).Msg("ignoring unrecognized SET option")
		}

		reply := make(chan command.Response, 1)
		select {
		case requests <- engine.Request{
			Exec: func(st *engine.Store, now time.Time) command.Response {
				return executor.Execute(cmd, st, now)
			},
			Reply: reply,
		}:
		case <-ctx.Done():
			return
		}

		var result command.Response
		select {
		case result = <-reply:
		case <-ctx.Done():
			return
		}
		s.metrics.ObserveCommand(cmd.Kind.String())

		var out []byte
		switch replyKind {
		case protoroute.ReplyRESP:
			out = resp.Encode(result)
		case protoroute.ReplyHTTP:
			out, err = httpline.Encode(result)
			if err != nil {
				logger.Warn().Err(err).Msg("failed to encode HTTP response")
				return
			}
		}

		if _, err := conn.Write(out); err != nil {
			logger.Debug().Err(err).Msg("failed to write response")
			return
		}

		if replyKind == protoroute.ReplyHTTP {
			return
		}
	}
}
