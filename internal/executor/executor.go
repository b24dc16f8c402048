package executor

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/haldenlabs/redikv/internal/config"
	"github.com/haldenlabs/redikv/internal/metrics"
	"github.com/haldenlabs/redikv/internal/replication"
	"github.com/haldenlabs/redikv/internal/resp"
	"github.com/haldenlabs/redikv/internal/store"
)

// subscribeModeAllowed is the verb set permitted while a connection has
// at least one active channel subscription.
var subscribeModeAllowed = map[string]bool{
	"SUBSCRIBE":   true,
	"UNSUBSCRIBE": true,
	"PING":        true,
	"QUIT":        true,
	"RESET":       true,
}

// fanOutVerbs is the set of commands actually replicated to attached
// replicas: SET alone, for now.
var fanOutVerbs = map[string]bool{"SET": true}

// writeVerbs is the broader set of store-mutating commands that count
// as "a write" for WAIT's hasPriorWrite gate: any mutating verb, not
// just the ones that get fanned out.

var writeVerbs = map[string]bool{
	"SET": true, "DEL": true, "INCR": true,
	"RPUSH": true, "LPUSH": true, "LPOP": true, "BLPOP": true,
	"XADD": true,
	"ZADD": true, "ZREM": true,
}

// Executor holds the shared, process-wide collaborators every session
// dispatches against.
type Executor struct {
	Store      *store.Store
	Repl       *replication.Manager
	Config     *config.Config
	Logger     zerolog.Logger
	StartedAt  time.Time
	IsReplica  bool
}

func New(st *store.Store, repl *replication.Manager, cfg *config.Config, logger zerolog.Logger, isReplica bool) *Executor {
	return &Executor{
		Store:     st,
		Repl:      repl,
		Config:    cfg,
		Logger:    logger,
		StartedAt: time.Now(),
		IsReplica: isReplica,
	}
}

// Dispatch processes one decoded frame for s, returning the bytes to
// write back to the connection (nil when PSYNC already wrote its own
// reply directly to the socket).
func (e *Executor) Dispatch(s *Session, frame resp.Frame) []byte {
	if len(frame) == 0 {
		return nil
	}
	verb := strings.ToUpper(frame.String(0))

	s.mu.Lock()
	inMulti := s.inMulti
	s.mu.Unlock()

	if inMulti && verb != "EXEC" && verb != "DISCARD" && verb != "MULTI" {
		s.mu.Lock()
		s.queued = append(s.queued, frame)
		s.mu.Unlock()
		return resp.SimpleString("QUEUED")
	}

	if s.subscribedChannelCount() > 0 && !subscribeModeAllowed[verb] {
		return resp.Error("ERR Can't execute '" + strings.ToLower(verb) +
			"': only (P|S)SUBSCRIBE / (P|S)UNSUBSCRIBE / PING / QUIT / RESET are allowed in this context")
	}

	return e.execOne(s, verb, frame)
}

// execOne is the verb switch; it is also the re-entrant path EXEC drives
// for each queued frame.
func (e *Executor) execOne(s *Session, verb string, frame resp.Frame) []byte {
	metrics.CommandsTotal.WithLabelValues(verb).Inc()
	reply := e.dispatchVerb(s, verb, frame)
	if len(reply) > 0 && reply[0] == '-' {
		metrics.CommandErrorsTotal.WithLabelValues(verb).Inc()
	}

	if !s.isReplicaLink && !e.IsReplica && writeVerbs[verb] {
		s.markWritten()
		if fanOutVerbs[verb] {
			e.Repl.FanOut(resp.EncodeFrame(frame))
		}
	}
	return reply
}

func (e *Executor) dispatchVerb(s *Session, verb string, frame resp.Frame) []byte {
	switch verb {
	case "PING":
		return e.cmdPing(s)
	case "ECHO":
		return e.cmdEcho(frame)
	case "QUIT":
		return resp.SimpleString("OK")
	case "RESET":
		return e.cmdReset(s)

	case "SET":
		return e.cmdSet(frame)
	case "GET":
		return e.cmdGet(frame)
	case "DEL":
		return e.cmdDel(frame)
	case "EXISTS":
		return e.cmdExists(frame)
	case "INCR":
		return e.cmdIncr(frame)
	case "TTL":
		return e.cmdTTL(frame, time.Second)
	case "PTTL":
		return e.cmdTTL(frame, time.Millisecond)
	case "TYPE":
		return e.cmdType(frame)

	case "CONFIG":
		return e.cmdConfig(frame)
	case "KEYS":
		return e.cmdKeys(frame)
	case "SAVE":
		return e.cmdSave()
	case "INFO":
		return e.cmdInfo(frame)
	case "COMMAND":
		return e.cmdCommand(frame)

	case "REPLCONF":
		return e.cmdReplConf(s, frame)
	case "PSYNC":
		return e.cmdPsync(s)
	case "WAIT":
		return e.cmdWait(s, frame)

	case "XADD":
		return e.cmdXAdd(frame)
	case "XRANGE":
		return e.cmdXRange(frame)
	case "XREAD":
		return e.cmdXRead(frame)
	case "XLEN":
		return e.cmdXLen(frame)

	case "MULTI":
		return e.cmdMulti(s)
	case "EXEC":
		return e.cmdExec(s)
	case "DISCARD":
		return e.cmdDiscard(s)

	case "RPUSH":
		return e.cmdPush(frame, false)
	case "LPUSH":
		return e.cmdPush(frame, true)
	case "LRANGE":
		return e.cmdLRange(frame)
	case "LLEN":
		return e.cmdLLen(frame)
	case "LPOP":
		return e.cmdLPop(frame)
	case "BLPOP":
		return e.cmdBLPop(frame)

	case "SUBSCRIBE":
		return e.cmdSubscribe(s, frame)
	case "UNSUBSCRIBE":
		return e.cmdUnsubscribe(s, frame)
	case "PUBLISH":
		return e.cmdPublish(frame)

	case "ZADD":
		return e.cmdZAdd(frame)
	case "ZRANK":
		return e.cmdZRank(frame)
	case "ZRANGE":
		return e.cmdZRange(frame)
	case "ZCARD":
		return e.cmdZCard(frame)
	case "ZSCORE":
		return e.cmdZScore(frame)
	case "ZREM":
		return e.cmdZRem(frame)

	default:
		return resp.Error("ERR unknown command '" + verb + "'")
	}
}

func (e *Executor) cmdReset(s *Session) []byte {
	e.Store.PubSub.UnsubscribeAll(s)
	s.Reset()
	return resp.SimpleString("RESET")
}
