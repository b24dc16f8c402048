package executor

import (
	"strconv"

	"github.com/haldenlabs/redikv/internal/resp"
)

func (e *Executor) cmdZAdd(frame resp.Frame) []byte {
	if len(frame) < 4 || (len(frame)-2)%2 != 0 {
		return resp.Error("ERR wrong number of arguments for 'zadd' command")
	}
	key := frame.String(1)
	var added int64
	for i := 2; i+1 < len(frame); i += 2 {
		score, err := strconv.ParseFloat(frame.String(i), 64)
		if err != nil {
			return resp.Error("ERR value is not a valid float")
		}
		if e.Store.ZSets.Add(key, frame.String(i+1), score) {
			added++
		}
	}
	return resp.Integer(added)
}

func (e *Executor) cmdZRank(frame resp.Frame) []byte {
	if len(frame) < 3 {
		return resp.Error("ERR wrong number of arguments for 'zrank' command")
	}
	rank, ok := e.Store.ZSets.Rank(frame.String(1), frame.String(2))
	if !ok {
		return resp.NullBulk()
	}
	return resp.Integer(int64(rank))
}

func (e *Executor) cmdZRange(frame resp.Frame) []byte {
	if len(frame) < 4 {
		return resp.Error("ERR wrong number of arguments for 'zrange' command")
	}
	start, err1 := strconv.Atoi(frame.String(2))
	stop, err2 := strconv.Atoi(frame.String(3))
	if err1 != nil || err2 != nil {
		return resp.Error("ERR value is not an integer or out of range")
	}
	members := e.Store.ZSets.RangeByRank(frame.String(1), start, stop)
	elems := make([][]byte, len(members))
	for i, m := range members {
		elems[i] = resp.BulkString([]byte(m))
	}
	return resp.Array(elems...)
}

func (e *Executor) cmdZCard(frame resp.Frame) []byte {
	if len(frame) < 2 {
		return resp.Error("ERR wrong number of arguments for 'zcard' command")
	}
	return resp.Integer(int64(e.Store.ZSets.Card(frame.String(1))))
}

func (e *Executor) cmdZScore(frame resp.Frame) []byte {
	if len(frame) < 3 {
		return resp.Error("ERR wrong number of arguments for 'zscore' command")
	}
	score, ok := e.Store.ZSets.Score(frame.String(1), frame.String(2))
	if !ok {
		return resp.NullBulk()
	}
	return resp.BulkString([]byte(strconv.FormatFloat(score, 'f', -1, 64)))
}

func (e *Executor) cmdZRem(frame resp.Frame) []byte {
	if len(frame) < 3 {
		return resp.Error("ERR wrong number of arguments for 'zrem' command")
	}
	var removed int64
	for _, m := range frame[2:] {
		if e.Store.ZSets.Rem(frame.String(1), string(m)) {
			removed++
		}
	}
	return resp.Integer(removed)
}
