package executor

import (
	"strconv"
	"strings"
	"time"

	"github.com/haldenlabs/redikv/internal/metrics"
	"github.com/haldenlabs/redikv/internal/resp"
	"github.com/haldenlabs/redikv/internal/store"
)

func (e *Executor) cmdXAdd(frame resp.Frame) []byte {
	if len(frame) < 5 || (len(frame)-3)%2 != 0 {
		return resp.Error("ERR wrong number of arguments for 'xadd' command")
	}
	name, idSpec := frame.String(1), frame.String(2)
	fields := parseFieldPairs(frame[3:])

	id, err := e.Store.Streams.ResolveXAddID(name, idSpec)
	if err != nil {
		return resp.Error("ERR " + err.Error())
	}
	entry := e.Store.Streams.Append(name, id, fields)
	return resp.BulkString([]byte(entry.ID.String()))
}

func parseFieldPairs(args [][]byte) [][2][]byte {
	out := make([][2][]byte, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		out = append(out, [2][]byte{args[i], args[i+1]})
	}
	return out
}

func (e *Executor) cmdXRange(frame resp.Frame) []byte {
	if len(frame) < 4 {
		return resp.Error("ERR wrong number of arguments for 'xrange' command")
	}
	start, err := store.ParseRangeBound(frame.String(2), true)
	if err != nil {
		return resp.Error("ERR " + err.Error())
	}
	end, err := store.ParseRangeBound(frame.String(3), false)
	if err != nil {
		return resp.Error("ERR " + err.Error())
	}
	entries := e.Store.Streams.Range(frame.String(1), start, end)
	return resp.Array(encodeStreamEntries(entries)...)
}

func encodeStreamEntries(entries []store.StreamEntry) [][]byte {
	out := make([][]byte, len(entries))
	for i, e := range entries {
		fieldElems := make([][]byte, 0, len(e.Fields)*2)
		for _, fv := range e.Fields {
			fieldElems = append(fieldElems, resp.BulkString(fv[0]), resp.BulkString(fv[1]))
		}
		out[i] = resp.Array(
			resp.BulkString([]byte(e.ID.String())),
			resp.Array(fieldElems...),
		)
	}
	return out
}

// cmdXRead implements XREAD [BLOCK ms] STREAMS name+ id+. Without BLOCK
// it is a plain exclusive-after range read; BLOCK ms>0 sleeps once then
// reads; BLOCK 0 registers a waiter per stream and delivers only the
// next appended entry.
func (e *Executor) cmdXRead(frame resp.Frame) []byte {
	blockMs := -1
	streamsIdx := -1
	for i := 1; i < len(frame); i++ {
		switch strings.ToUpper(frame.String(i)) {
		case "BLOCK":
			if i+1 >= len(frame) {
				return resp.Error("ERR syntax error")
			}
			ms, err := strconv.Atoi(frame.String(i + 1))
			if err != nil {
				return resp.Error("ERR timeout is not an integer or out of range")
			}
			blockMs = ms
			i++
		case "STREAMS":
			streamsIdx = i
		}
		if streamsIdx >= 0 {
			break
		}
	}
	if streamsIdx < 0 {
		return resp.Error("ERR syntax error")
	}
	rest := frame[streamsIdx+1:]
	if len(rest) == 0 || len(rest)%2 != 0 {
		return resp.Error("ERR Unbalanced XREAD list of streams: for each stream key an ID or '$' must be specified.")
	}
	k := len(rest) / 2
	names := make([]string, k)
	idArgs := make([]string, k)
	for i := 0; i < k; i++ {
		names[i] = string(rest[i])
		idArgs[i] = string(rest[k+i])
	}

	if blockMs < 0 {
		return e.xreadImmediate(names, idArgs)
	}
	return e.xreadBlocking(names, idArgs, blockMs)
}

func (e *Executor) xreadImmediate(names, idArgs []string) []byte {
	var perStream [][]byte
	for i, name := range names {
		after, err := store.ParseExplicitID(idArgs[i])
		if err != nil {
			return resp.Error("ERR " + err.Error())
		}
		entries := e.Store.Streams.After(name, after)
		if len(entries) == 0 {
			continue
		}
		perStream = append(perStream, resp.Array(
			resp.BulkString([]byte(name)),
			resp.Array(encodeStreamEntries(entries)...),
		))
	}
	if len(perStream) == 0 {
		return resp.NullArray()
	}
	return resp.Array(perStream...)
}

func (e *Executor) xreadBlocking(names, idArgs []string, blockMs int) []byte {
	resolved := make([]store.StreamID, len(names))
	for i, name := range names {
		if idArgs[i] == "$" {
			resolved[i] = e.Store.Streams.LastID(name)
			continue
		}
		id, err := store.ParseExplicitID(idArgs[i])
		if err != nil {
			return resp.Error("ERR " + err.Error())
		}
		resolved[i] = id
	}

	gauge := metrics.BlockedClients.WithLabelValues("stream")
	gauge.Inc()
	defer gauge.Dec()

	if blockMs > 0 {
		time.Sleep(time.Duration(blockMs) * time.Millisecond)
		var perStream [][]byte
		for i, name := range names {
			entries := e.Store.Streams.After(name, resolved[i])
			if len(entries) == 0 {
				continue
			}
			perStream = append(perStream, resp.Array(
				resp.BulkString([]byte(name)),
				resp.Array(encodeStreamEntries(entries)...),
			))
		}
		if len(perStream) == 0 {
			return resp.NullArray()
		}
		return resp.Array(perStream...)
	}

	// BLOCK 0: register a waiter per stream, deliver the first one that
	// produces a new entry.
	type delivery struct {
		name  string
		entry store.StreamEntry
	}
	relay := make(chan delivery, len(names))
	var cancels []func()
	for _, name := range names {
		ch, cancel := e.Store.Streams.RegisterWaiter(name)
		cancels = append(cancels, cancel)
		go func(name string, ch chan store.StreamEntry) {
			entry, ok := <-ch
			if ok {
				relay <- delivery{name: name, entry: entry}
			}
		}(name, ch)
	}
	d := <-relay
	for _, c := range cancels {
		c()
	}
	return resp.Array(resp.Array(
		resp.BulkString([]byte(d.name)),
		resp.Array(encodeStreamEntries([]store.StreamEntry{d.entry})...),
	))
}

func (e *Executor) cmdXLen(frame resp.Frame) []byte {
	if len(frame) < 2 {
		return resp.Error("ERR wrong number of arguments for 'xlen' command")
	}
	return resp.Integer(int64(e.Store.Streams.Len(frame.String(1))))
}
