package executor

import (
	"strconv"
	"time"

	"github.com/haldenlabs/redikv/internal/metrics"
	"github.com/haldenlabs/redikv/internal/resp"
)

// blpopPollInterval is the poll cadence for finite-timeout BLPOP waits.
const blpopPollInterval = 50 * time.Millisecond

func (e *Executor) cmdPush(frame resp.Frame, left bool) []byte {
	if len(frame) < 3 {
		return resp.Error("ERR wrong number of arguments for push command")
	}
	key := frame.String(1)
	values := make([][]byte, 0, len(frame)-2)
	for _, v := range frame[2:] {
		values = append(values, v)
	}
	n := e.Store.Lists.Push(key, left, values...)
	return resp.Integer(int64(n))
}

func (e *Executor) cmdLRange(frame resp.Frame) []byte {
	if len(frame) < 4 {
		return resp.Error("ERR wrong number of arguments for 'lrange' command")
	}
	start, err1 := strconv.Atoi(frame.String(2))
	stop, err2 := strconv.Atoi(frame.String(3))
	if err1 != nil || err2 != nil {
		return resp.Error("ERR value is not an integer or out of range")
	}
	vals := e.Store.Lists.Range(frame.String(1), start, stop)
	elems := make([][]byte, len(vals))
	for i, v := range vals {
		elems[i] = resp.BulkString(v)
	}
	return resp.Array(elems...)
}

func (e *Executor) cmdLLen(frame resp.Frame) []byte {
	if len(frame) < 2 {
		return resp.Error("ERR wrong number of arguments for 'llen' command")
	}
	return resp.Integer(int64(e.Store.Lists.Len(frame.String(1))))
}

func (e *Executor) cmdLPop(frame resp.Frame) []byte {
	if len(frame) < 2 {
		return resp.Error("ERR wrong number of arguments for 'lpop' command")
	}
	count := 1
	if len(frame) >= 3 {
		n, err := strconv.Atoi(frame.String(2))
		if err != nil {
			return resp.Error("ERR value is not an integer or out of range")
		}
		count = n
	}
	vals := e.Store.Lists.Pop(frame.String(1), count)
	if len(vals) == 0 {
		return resp.NullBulk()
	}
	if len(frame) < 3 {
		return resp.BulkString(vals[0])
	}
	elems := make([][]byte, len(vals))
	for i, v := range vals {
		elems[i] = resp.BulkString(v)
	}
	return resp.Array(elems...)
}

// cmdBLPop implements BLPOP: immediate pop when non-empty, an infinite
// channel-based wait when seconds==0 on an empty list, and a
// poll-cadence wait up to the given timeout otherwise.
func (e *Executor) cmdBLPop(frame resp.Frame) []byte {
	if len(frame) < 3 {
		return resp.Error("ERR wrong number of arguments for 'blpop' command")
	}
	key := frame.String(1)
	secs, err := strconv.ParseFloat(frame.String(2), 64)
	if err != nil {
		return resp.Error("ERR timeout is not a float or out of range")
	}

	if v, ok := e.Store.Lists.TryPopHead(key); ok {
		return blpopReply(key, v)
	}

	gauge := metrics.BlockedClients.WithLabelValues("list")
	gauge.Inc()
	defer gauge.Dec()

	if secs == 0 {
		ch, cancel := e.Store.Lists.RegisterWaiter(key)
		defer cancel()
		v := <-ch
		return blpopReply(key, v)
	}

	deadline := time.Now().Add(time.Duration(secs * float64(time.Second)))
	for time.Now().Before(deadline) {
		time.Sleep(blpopPollInterval)
		if v, ok := e.Store.Lists.TryPopHead(key); ok {
			return blpopReply(key, v)
		}
	}
	return resp.NullArray()
}

func blpopReply(key string, v []byte) []byte {
	return resp.Array(resp.BulkString([]byte(key)), resp.BulkString(v))
}
