// Package executor implements the per-connection command dispatcher:
// the full verb table, MULTI/EXEC/DISCARD queueing, subscribe-mode
// filtering, and the blocking command paths.
package executor

import (
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/haldenlabs/redikv/internal/replication"
	"github.com/haldenlabs/redikv/internal/resp"
)

// Session is one connection's mutable dispatch state: transaction
// queue, subscribe roster, and replication-link bookkeeping. The server
// package constructs one per accepted connection and drives Dispatch
// with each decoded frame.
type Session struct {
	ID     int64
	Conn   net.Conn
	send   chan<- []byte
	logger zerolog.Logger

	// OffsetFn, when set by the caller driving a replica's apply loop,
	// returns the connection parser's cumulative byte offset, used to
	// answer REPLCONF GETACK with the replica's current position.
	OffsetFn func() int64

	mu            sync.Mutex
	inMulti       bool
	queued        []resp.Frame
	subChannels   map[string]bool
	hasWritten    bool
	isReplicaLink bool
	replica       *replication.Replica
	listeningPort string
}

// NewSession wraps a connection's identity, raw socket (needed only for
// the PSYNC handshake's synchronous FULLRESYNC + bare-bulk write), and
// async send channel (used for pub/sub delivery) into dispatch state.
func NewSession(id int64, conn net.Conn, send chan<- []byte, logger zerolog.Logger) *Session {
	return &Session{
		ID:          id,
		Conn:        conn,
		send:        send,
		logger:      logger,
		subChannels: make(map[string]bool),
	}
}

// SubscriberID implements store.Subscriber.
func (s *Session) SubscriberID() int64 { return s.ID }

// Deliver implements store.Subscriber: async push of a pub/sub message
// onto this connection's outbound queue. A full queue means a slow
// reader; the message is dropped and logged rather than blocking the
// publisher.
func (s *Session) Deliver(msg []byte) {
	select {
	case s.send <- msg:
	default:
		s.logger.Warn().Int64("session", s.ID).Msg("dropping pub/sub message, send queue full")
	}
}

func (s *Session) subscribedChannelCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subChannels)
}

func (s *Session) addChannel(ch string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subChannels[ch] = true
	return len(s.subChannels)
}

func (s *Session) removeChannel(ch string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subChannels, ch)
	return len(s.subChannels)
}

func (s *Session) channelNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.subChannels))
	for c := range s.subChannels {
		out = append(out, c)
	}
	return out
}

func (s *Session) markWritten() {
	s.mu.Lock()
	s.hasWritten = true
	s.mu.Unlock()
}

func (s *Session) hasPriorWrite() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasWritten
}

// ReplicaLink reports whether this session has completed PSYNC and, if
// so, returns the registry handle the server package should disconnect
// on socket close.
func (s *Session) ReplicaLink() (*replication.Replica, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replica, s.isReplicaLink
}

// Reset clears transaction and subscribe state, used by RESET.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inMulti = false
	s.queued = nil
	s.subChannels = make(map[string]bool)
}
