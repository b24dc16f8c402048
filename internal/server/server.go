// Package server implements the accept loop and per-connection read
// loop: each accepted socket gets its own goroutine reading frames and
// dispatching them through the executor, plus a dedicated writePump
// goroutine for outbound bytes.
package server

import (
	"context"
	"net"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/haldenlabs/redikv/internal/executor"
	"github.com/haldenlabs/redikv/internal/limits"
	"github.com/haldenlabs/redikv/internal/logging"
	"github.com/haldenlabs/redikv/internal/metrics"
)

// Server owns the accept loop; Executor and Limiter are shared across
// every connection it spawns.
type Server struct {
	Executor *executor.Executor
	Limiter  *limits.AcceptLimiter
	Logger   zerolog.Logger

	nextID atomic.Int64
}

func New(exec *executor.Executor, limiter *limits.AcceptLimiter, logger zerolog.Logger) *Server {
	return &Server{Executor: exec, Limiter: limiter, Logger: logger}
}

// Serve accepts connections off ln until ctx is canceled or Accept fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		nc, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		if !s.Limiter.TryAcquire() {
			metrics.ConnectionsRejected.Inc()
			nc.Close()
			continue
		}
		id := s.nextID.Add(1)
		metrics.ConnectionsTotal.Inc()
		metrics.ConnectionsActive.Inc()
		go s.handleConn(id, nc)
	}
}

// handleConn is the per-connection read loop: feed bytes into the
// parser, dispatch every complete frame, forward non-empty replies to
// the write pump. A single recover guards the whole loop so one bad
// command can never take the listener down with it.
func (s *Server) handleConn(id int64, nc net.Conn) {
	c := newConn(id, nc, s.Logger)
	go c.writePump()

	defer func() {
		if r := recover(); r != nil {
			logging.LogPanic(s.Logger, r, "panic in connection handler", map[string]any{"conn": id})
		}
		s.cleanup(c)
	}()

	buf := make([]byte, 16*1024)
	for {
		n, err := nc.Read(buf)
		if err != nil {
			return
		}
		c.parser.Feed(buf[:n])
		frames, _, derr := c.parser.Drain()
		if derr != nil {
			return
		}
		for _, frame := range frames {
			reply := s.Executor.Dispatch(c.session, frame)
			if len(reply) == 0 {
				continue
			}
			select {
			case c.send <- reply:
			case <-c.done:
				return
			}
		}
	}
}

func (s *Server) cleanup(c *Conn) {
	s.Executor.Store.PubSub.UnsubscribeAll(c.session)
	if replica, ok := c.session.ReplicaLink(); ok {
		s.Executor.Repl.Disconnect(replica)
	}
	s.Limiter.Release()
	metrics.ConnectionsActive.Dec()
	c.closeConn()
}
