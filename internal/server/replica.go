package server

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/haldenlabs/redikv/internal/executor"
	"github.com/haldenlabs/redikv/internal/replication"
	"github.com/haldenlabs/redikv/internal/snapshot"
)

// RunReplicaApplyLoop loads the snapshot a handshake already captured,
// then keeps reading the primary's fanned-out write commands off the
// same connection and applying them through the executor, asynchronously
// and without acknowledging each one. The only reply ever written back
// to the primary is REPLCONF ACK, in response to a GETACK probe; applied
// write commands are dispatched for effect only, and their replies
// (e.g. SET's +OK) are discarded rather than sent upstream.
func RunReplicaApplyLoop(exec *executor.Executor, hs *replication.HandshakeResult, logger zerolog.Logger) error {
	entries, err := snapshot.DecodeBytes(hs.Snapshot)
	if err != nil {
		return fmt.Errorf("server: decoding primary snapshot: %w", err)
	}
	exec.Store.Strings.Load(executor.StringEntriesFrom(entries))
	logger.Info().Int("keys", len(entries)).Msg("loaded initial snapshot from primary")

	sendDiscard := make(chan []byte, 1)
	session := executor.NewSession(0, hs.Conn, sendDiscard, logger)
	session.OffsetFn = hs.Parser.Offset

	buf := make([]byte, 16*1024)
	for {
		n, err := hs.Conn.Read(buf)
		if err != nil {
			return fmt.Errorf("server: replica apply loop read: %w", err)
		}
		hs.Parser.Feed(buf[:n])
		frames, _, derr := hs.Parser.Drain()
		if derr != nil {
			return derr
		}
		for _, frame := range frames {
			reply := exec.Dispatch(session, frame)
			if len(reply) == 0 || len(frame) == 0 || strings.ToUpper(frame.String(0)) != "REPLCONF" {
				continue
			}
			if _, err := hs.Conn.Write(reply); err != nil {
				return fmt.Errorf("server: replica ack write: %w", err)
			}
		}
	}
}
