package replication

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/haldenlabs/redikv/internal/resp"
)

// handshakeStepDelay paces each handshake step so the primary has time
// to process one before the next arrives.
const handshakeStepDelay = 10 * time.Millisecond

// HandshakeResult carries what DialAndHandshake learned: the live
// connection (now positioned right after the snapshot blob), the parser
// that consumed it (preserving any bytes read past the blob), and the
// snapshot payload itself.
type HandshakeResult struct {
	Conn     net.Conn
	Parser   *resp.Parser
	Snapshot []byte
}

// DialAndHandshake performs the four-step replica handshake against a
// primary at addr, in order: PING, REPLCONF listening-port, REPLCONF capa
// psync2, PSYNC ? -1. It blocks until the primary's bare snapshot blob
// has been fully received.
func DialAndHandshake(addr string, listeningPort int, logger zerolog.Logger) (*HandshakeResult, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("replication: dial primary %s: %w", addr, err)
	}

	steps := [][]byte{
		resp.EncodeCommand("PING"),
		resp.EncodeCommand("REPLCONF", "listening-port", strconv.Itoa(listeningPort)),
		resp.EncodeCommand("REPLCONF", "capa", "psync2"),
		resp.EncodeCommand("PSYNC", "?", "-1"),
	}
	for _, step := range steps {
		if _, err := conn.Write(step); err != nil {
			conn.Close()
			return nil, fmt.Errorf("replication: handshake write: %w", err)
		}
		time.Sleep(handshakeStepDelay)
	}

	parser := resp.NewParser()
	buf := make([]byte, 64*1024)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("replication: handshake read: %w", err)
		}
		parser.Feed(buf[:n])
		_, blob, err := parser.Drain()
		if err != nil {
			conn.Close()
			return nil, err
		}
		if blob != nil {
			logger.Info().Int("bytes", len(blob)).Msg("received snapshot payload from primary")
			return &HandshakeResult{Conn: conn, Parser: parser, Snapshot: blob}, nil
		}
	}
}
