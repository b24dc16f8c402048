package executor

import (
	"strings"

	"github.com/haldenlabs/redikv/internal/resp"
)

// cmdMulti opens a per-connection queue: every subsequent command
// (other than MULTI/EXEC/DISCARD) is buffered instead of executed, and
// replies +QUEUED.
func (e *Executor) cmdMulti(s *Session) []byte {
	s.mu.Lock()
	s.inMulti = true
	s.queued = nil
	s.mu.Unlock()
	return resp.SimpleString("OK")
}

// cmdExec drains the queue, dispatching each command through the same
// verb switch EXEC-body commands call into (back-to-back, uninterrupted
// by any other frame on this connection), and assembles the per-command
// replies into one array.
func (e *Executor) cmdExec(s *Session) []byte {
	s.mu.Lock()
	if !s.inMulti {
		s.mu.Unlock()
		return resp.Error("ERR EXEC without MULTI")
	}
	queued := s.queued
	s.inMulti = false
	s.queued = nil
	s.mu.Unlock()

	replies := make([][]byte, len(queued))
	for i, frame := range queued {
		replies[i] = e.execOne(s, strings.ToUpper(frame.String(0)), frame)
	}
	return resp.Array(replies...)
}

func (e *Executor) cmdDiscard(s *Session) []byte {
	s.mu.Lock()
	if !s.inMulti {
		s.mu.Unlock()
		return resp.Error("ERR DISCARD without MULTI")
	}
	s.inMulti = false
	s.queued = nil
	s.mu.Unlock()
	return resp.SimpleString("OK")
}

