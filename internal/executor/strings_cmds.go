package executor

import (
	"strconv"
	"strings"
	"time"

	"github.com/haldenlabs/redikv/internal/resp"
)

func (e *Executor) cmdSet(frame resp.Frame) []byte {
	if len(frame) < 3 {
		return resp.Error("ERR wrong number of arguments for 'set' command")
	}
	key, value := frame.String(1), frame[2]

	var ttl *time.Duration
	if len(frame) >= 5 {
		switch strings.ToUpper(frame.String(3)) {
		case "EX":
			secs, err := strconv.ParseInt(frame.String(4), 10, 64)
			if err != nil {
				return resp.Error("ERR value is not an integer or out of range")
			}
			d := time.Duration(secs) * time.Second
			ttl = &d
		case "PX":
			ms, err := strconv.ParseInt(frame.String(4), 10, 64)
			if err != nil {
				return resp.Error("ERR value is not an integer or out of range")
			}
			d := time.Duration(ms) * time.Millisecond
			ttl = &d
		default:
			return resp.Error("ERR syntax error")
		}
	}

	e.Store.Strings.Set(key, value, ttl)
	return resp.SimpleString("OK")
}

func (e *Executor) cmdGet(frame resp.Frame) []byte {
	if len(frame) < 2 {
		return resp.Error("ERR wrong number of arguments for 'get' command")
	}
	v, ok := e.Store.Strings.Get(frame.String(1))
	if !ok {
		return resp.NullBulk()
	}
	return resp.BulkString(v)
}

func (e *Executor) cmdDel(frame resp.Frame) []byte {
	if len(frame) < 2 {
		return resp.Error("ERR wrong number of arguments for 'del' command")
	}
	var n int64
	for _, k := range frame[1:] {
		if e.Store.Strings.Del(string(k)) {
			n++
		}
	}
	return resp.Integer(n)
}

func (e *Executor) cmdExists(frame resp.Frame) []byte {
	if len(frame) < 2 {
		return resp.Error("ERR wrong number of arguments for 'exists' command")
	}
	var n int64
	for _, k := range frame[1:] {
		if e.Store.Strings.Exists(string(k)) {
			n++
		}
	}
	return resp.Integer(n)
}

func (e *Executor) cmdIncr(frame resp.Frame) []byte {
	if len(frame) < 2 {
		return resp.Error("ERR wrong number of arguments for 'incr' command")
	}
	n, err := e.Store.Strings.Incr(frame.String(1))
	if err != nil {
		return resp.Error("ERR " + err.Error())
	}
	return resp.Integer(n)
}

func (e *Executor) cmdTTL(frame resp.Frame, unit time.Duration) []byte {
	if len(frame) < 2 {
		return resp.Error("ERR wrong number of arguments for 'ttl' command")
	}
	var n int64
	if unit == time.Second {
		n = e.Store.Strings.TTLSeconds(frame.String(1))
	} else {
		n = e.Store.Strings.TTLMillis(frame.String(1))
	}
	return resp.Integer(n)
}

// cmdType reports which container (if any) currently owns key, across
// the string and stream stores ("+string", "+stream", or "+none").
func (e *Executor) cmdType(frame resp.Frame) []byte {
	if len(frame) < 2 {
		return resp.Error("ERR wrong number of arguments for 'type' command")
	}
	key := frame.String(1)
	switch {
	case e.Store.Strings.Exists(key):
		return resp.SimpleString("string")
	case e.Store.Streams.Exists(key):
		return resp.SimpleString("stream")
	default:
		return resp.SimpleString("none")
	}
}
