package server

import (
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/haldenlabs/redikv/internal/executor"
	"github.com/haldenlabs/redikv/internal/resp"
)

const writeWait = 5 * time.Second

// Conn is one accepted TCP connection: its own receive parser, an
// outbound send queue drained by a dedicated writePump goroutine
// (mirroring ws/internal/single/core/pump_write.go's send-channel
// pattern), and the executor session carrying its transaction/subscribe/
// replication-link state.
type Conn struct {
	id      int64
	conn    net.Conn
	send    chan []byte
	done    chan struct{}
	session *executor.Session
	parser  *resp.Parser
	logger  zerolog.Logger

	closeOnce sync.Once
}

func newConn(id int64, nc net.Conn, logger zerolog.Logger) *Conn {
	c := &Conn{
		id:     id,
		conn:   nc,
		send:   make(chan []byte, 256),
		done:   make(chan struct{}),
		parser: resp.NewParser(),
		logger: logger,
	}
	c.session = executor.NewSession(id, nc, c.send, logger)
	c.session.OffsetFn = c.parser.Offset
	return c
}

// closeConn tears the socket down exactly once, regardless of whether
// the read loop (handleConn) or writePump observes the failure first (sync.Once, same idiom
// as client_lifecycle.go's closeOnce guard against racing closers).
func (c *Conn) closeConn() {
	c.closeOnce.Do(func() {
		c.conn.Close()
		close(c.done)
	})
}

// writePump is this connection's only socket writer. send is never
// closed (Deliver is called from other connections' goroutines via
// pub/sub and must never risk a send-on-closed-channel panic); done
// signals writePump to stop once the connection is gone.
func (c *Conn) writePump() {
	defer c.closeConn()
	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if _, err := c.conn.Write(msg); err != nil {
				c.logger.Debug().Int64("conn", c.id).Err(err).Msg("write error, closing connection")
				return
			}
		case <-c.done:
			return
		}
	}
}
