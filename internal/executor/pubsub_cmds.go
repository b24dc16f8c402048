package executor

import "github.com/haldenlabs/redikv/internal/resp"

func (e *Executor) cmdSubscribe(s *Session, frame resp.Frame) []byte {
	if len(frame) < 2 {
		return resp.Error("ERR wrong number of arguments for 'subscribe' command")
	}
	var replies [][]byte
	for _, ch := range frame[1:] {
		name := string(ch)
		e.Store.PubSub.Subscribe(name, s)
		count := s.addChannel(name)
		replies = append(replies, resp.Array(
			resp.BulkString([]byte("subscribe")),
			resp.BulkString(ch),
			resp.Integer(int64(count)),
		))
	}
	out := make([]byte, 0, 64)
	for _, r := range replies {
		out = append(out, r...)
	}
	return out
}

func (e *Executor) cmdUnsubscribe(s *Session, frame resp.Frame) []byte {
	names := s.channelNames()
	if len(frame) >= 2 {
		names = names[:0]
		for _, ch := range frame[1:] {
			names = append(names, string(ch))
		}
	}
	var out []byte
	for _, name := range names {
		e.Store.PubSub.Unsubscribe(name, s)
		count := s.removeChannel(name)
		out = append(out, resp.Array(
			resp.BulkString([]byte("unsubscribe")),
			resp.BulkString([]byte(name)),
			resp.Integer(int64(count)),
		)...)
	}
	if len(out) == 0 {
		return resp.Array(
			resp.BulkString([]byte("unsubscribe")),
			resp.NullBulk(),
			resp.Integer(0),
		)
	}
	return out
}

func (e *Executor) cmdPublish(frame resp.Frame) []byte {
	if len(frame) < 3 {
		return resp.Error("ERR wrong number of arguments for 'publish' command")
	}
	channel := frame.String(1)
	payload := resp.Array(
		resp.BulkString([]byte("message")),
		resp.BulkString(frame[1]),
		resp.BulkString(frame[2]),
	)
	n := e.Store.PubSub.Publish(channel, payload)
	return resp.Integer(int64(n))
}
