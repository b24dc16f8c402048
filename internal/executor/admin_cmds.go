package executor

import (
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/haldenlabs/redikv/internal/resp"
)

func (e *Executor) cmdPing(s *Session) []byte {
	if s.subscribedChannelCount() > 0 {
		return resp.Array(resp.BulkString([]byte("pong")), resp.BulkString([]byte("")))
	}
	return resp.SimpleString("PONG")
}

func (e *Executor) cmdEcho(frame resp.Frame) []byte {
	if len(frame) < 2 {
		return resp.Error("ERR wrong number of arguments for 'echo' command")
	}
	return resp.SimpleString(frame.String(1))
}

// cmdConfig implements CONFIG GET dir|dbfilename.
func (e *Executor) cmdConfig(frame resp.Frame) []byte {
	if len(frame) < 3 || strings.ToUpper(frame.String(1)) != "GET" {
		return resp.Error("ERR unsupported CONFIG subcommand")
	}
	name := strings.ToLower(frame.String(2))
	var value string
	switch name {
	case "dir":
		value = e.Config.Dir
	case "dbfilename":
		value = e.Config.DBFilename
	default:
		return resp.EmptyArray()
	}
	return resp.Array(resp.BulkString([]byte(name)), resp.BulkString([]byte(value)))
}

// cmdKeys loads the snapshot file and returns matching keys. It
// deliberately reads persisted state rather than the live store.
func (e *Executor) cmdKeys(frame resp.Frame) []byte {
	if len(frame) < 2 {
		return resp.Error("ERR wrong number of arguments for 'keys' command")
	}
	pattern := frame.String(1)
	entries, err := readSnapshotEntries(e.Config.SnapshotPath())
	if err != nil {
		return resp.NullBulk()
	}
	elems := make([][]byte, 0, len(entries))
	for _, ent := range entries {
		key := string(ent.Key)
		if matchGlob(pattern, key) {
			elems = append(elems, resp.BulkString(ent.Key))
		}
	}
	return resp.Array(elems...)
}

// matchGlob implements the single `*`-glob KEYS supports: "*" matches
// everything, "prefix*" / "*suffix" / "*mid*" match via substring rules,
// anything else is an exact match.
func matchGlob(pattern, s string) bool {
	if pattern == "*" {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return pattern == s
	}
	parts := strings.Split(pattern, "*")
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	rest := s[len(parts[0]):]
	for _, p := range parts[1 : len(parts)-1] {
		idx := strings.Index(rest, p)
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(p):]
	}
	return strings.HasSuffix(rest, parts[len(parts)-1])
}

func (e *Executor) cmdSave() []byte {
	timer := startSnapshotTimer("save")
	defer timer()
	entries := entriesFromStrings(e.Store.Strings.Snapshot())
	path := e.Config.SnapshotPath()
	if err := writeSnapshotEntries(path, entries); err != nil {
		return resp.Error("ERR " + err.Error())
	}
	return resp.SimpleString("OK")
}

// cmdInfo renders a handful of "k:v" sections; the memory section is
// backed by gopsutil.
func (e *Executor) cmdInfo(frame resp.Frame) []byte {
	section := ""
	if len(frame) > 1 {
		section = strings.ToLower(frame.String(1))
	}

	var b strings.Builder
	role := "master"
	if e.IsReplica {
		role = "slave"
	}

	if section == "" || section == "replication" {
		fmt.Fprintf(&b, "# Replication\r\nrole:%s\r\nconnected_slaves:%d\r\nmaster_replid:%s\r\n",
			role, e.Repl.ReplicaCount(), e.Repl.ReplID())
	}
	if section == "" || section == "memory" {
		b.WriteString("# Memory\r\n")
		if proc, err := process.NewProcess(int32(currentPID())); err == nil {
			if mi, err := proc.MemoryInfo(); err == nil {
				fmt.Fprintf(&b, "process_rss_bytes:%d\r\n", mi.RSS)
			}
		}
		if vm, err := mem.VirtualMemory(); err == nil {
			fmt.Fprintf(&b, "host_memory_used_percent:%.2f\r\n", vm.UsedPercent)
		}
	}
	return resp.BulkString([]byte(b.String()))
}

// cmdCommand answers the introspection probes naive clients issue on
// connect with minimal stub replies rather than an unknown-command
// error.
func (e *Executor) cmdCommand(frame resp.Frame) []byte {
	if len(frame) < 2 {
		return resp.EmptyArray()
	}
	switch strings.ToUpper(frame.String(1)) {
	case "COUNT":
		return resp.Integer(int64(len(knownVerbs)))
	case "DOCS":
		return resp.EmptyArray()
	default:
		return resp.EmptyArray()
	}
}

var knownVerbs = []string{
	"PING", "ECHO", "QUIT", "RESET", "SET", "GET", "DEL", "EXISTS", "INCR",
	"TTL", "PTTL", "TYPE", "CONFIG", "KEYS", "SAVE", "INFO", "COMMAND",
	"REPLCONF", "PSYNC", "WAIT", "XADD", "XRANGE", "XREAD", "XLEN",
	"MULTI", "EXEC", "DISCARD", "RPUSH", "LPUSH", "LRANGE", "LLEN", "LPOP",
	"BLPOP", "SUBSCRIBE", "UNSUBSCRIBE", "PUBLISH", "ZADD", "ZRANK",
	"ZRANGE", "ZCARD", "ZSCORE", "ZREM",
}
