package executor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/haldenlabs/redikv/internal/replication"
	"github.com/haldenlabs/redikv/internal/resp"
	"github.com/haldenlabs/redikv/internal/snapshot"
)

// cmdReplConf handles every REPLCONF subcommand: listening-port/capa
// during handshake (primary side), GETACK (answered by a replica with
// its running offset), and ACK (recorded by a primary).
func (e *Executor) cmdReplConf(s *Session, frame resp.Frame) []byte {
	if len(frame) < 2 {
		return resp.Error("ERR wrong number of arguments for 'replconf' command")
	}
	switch strings.ToUpper(frame.String(1)) {
	case "LISTENING-PORT":
		if len(frame) < 3 {
			return resp.Error("ERR wrong number of arguments for 'replconf' command")
		}
		s.mu.Lock()
		s.listeningPort = frame.String(2)
		s.mu.Unlock()
		return resp.SimpleString("OK")

	case "CAPA":
		return resp.SimpleString("OK")

	case "GETACK":
		if s.OffsetFn == nil {
			return nil
		}
		offset := s.OffsetFn() - int64(replication.ProbeLen())
		if offset < 0 {
			offset = 0
		}
		return resp.EncodeCommand("REPLCONF", "ACK", strconv.FormatInt(offset, 10))

	case "ACK":
		if len(frame) < 3 {
			return nil
		}
		s.mu.Lock()
		replica := s.replica
		s.mu.Unlock()
		if replica == nil {
			return nil
		}
		offset, err := strconv.ParseInt(frame.String(2), 10, 64)
		if err == nil {
			e.Repl.RecordAck(replica, offset)
		}
		return nil

	default:
		return resp.SimpleString("OK")
	}
}

// cmdPsync answers PSYNC ? -1 with FULLRESYNC plus the bare-bulk
// snapshot payload, writing directly to the socket since this reply has
// a second part (the blob) that doesn't fit the normal single-frame
// return path, then promotes the connection into the fan-out registry.
func (e *Executor) cmdPsync(s *Session) []byte {
	replID := e.Repl.ReplID()
	fullresync := resp.SimpleString(fmt.Sprintf("FULLRESYNC %s 0", replID))

	entries := entriesFromStrings(e.Store.Strings.Snapshot())
	blob, err := snapshot.Serialize(entries, snapshot.Options{Compress: true})
	if err != nil {
		return resp.Error("ERR " + err.Error())
	}

	if _, err := s.Conn.Write(fullresync); err != nil {
		return nil
	}
	if _, err := s.Conn.Write(resp.BareBulk(blob)); err != nil {
		return nil
	}

	r := e.Repl.NewHandshakingReplica(s.Conn)
	s.mu.Lock()
	r.SetListeningPort(s.listeningPort)
	s.isReplicaLink = true
	s.replica = r
	s.mu.Unlock()
	e.Repl.Promote(r)
	return nil
}

// cmdWait implements the WAIT barrier.
func (e *Executor) cmdWait(s *Session, frame resp.Frame) []byte {
	if len(frame) < 3 {
		return resp.Error("ERR wrong number of arguments for 'wait' command")
	}
	n, err1 := strconv.Atoi(frame.String(1))
	ms, err2 := strconv.Atoi(frame.String(2))
	if err1 != nil || err2 != nil {
		return resp.Error("ERR value is not an integer or out of range")
	}
	got := e.Repl.Wait(n, time.Duration(ms)*time.Millisecond, s.hasPriorWrite())
	return resp.Integer(int64(got))
}
