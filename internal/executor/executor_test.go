package executor

import (
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/haldenlabs/redikv/internal/config"
	"github.com/haldenlabs/redikv/internal/replication"
	"github.com/haldenlabs/redikv/internal/resp"
	"github.com/haldenlabs/redikv/internal/store"
)

func newTestExecutor(t *testing.T) (*Executor, *Session) {
	t.Helper()
	client, srv := net.Pipe()
	t.Cleanup(func() { client.Close(); srv.Close() })

	st := store.New()
	repl := replication.NewManager(zerolog.Nop(), 5*time.Millisecond)
	cfg := &config.Config{}
	exec := New(st, repl, cfg, zerolog.Nop(), false)
	send := make(chan []byte, 16)
	session := NewSession(1, srv, send, zerolog.Nop())
	return exec, session
}

func frame(parts ...string) resp.Frame {
	f := make(resp.Frame, len(parts))
	for i, p := range parts {
		f[i] = []byte(p)
	}
	return f
}

func TestDispatchSetGet(t *testing.T) {
	exec, s := newTestExecutor(t)

	got := exec.Dispatch(s, frame("SET", "foo", "bar"))
	if string(got) != "+OK\r\n" {
		t.Fatalf("SET reply = %q", got)
	}

	got = exec.Dispatch(s, frame("GET", "foo"))
	if string(got) != "$3\r\nbar\r\n" {
		t.Fatalf("GET reply = %q", got)
	}

	got = exec.Dispatch(s, frame("GET", "missing"))
	if string(got) != "$-1\r\n" {
		t.Fatalf("GET missing reply = %q", got)
	}
}

func TestDispatchIncrRejectsNonInteger(t *testing.T) {
	exec, s := newTestExecutor(t)
	exec.Dispatch(s, frame("SET", "n", "abc"))

	got := exec.Dispatch(s, frame("INCR", "n"))
	want := "-ERR value is not an integer or out of range\r\n"
	if string(got) != want {
		t.Fatalf("INCR reply = %q, want %q", got, want)
	}
}

func TestTransactionQueuesAndExecutes(t *testing.T) {
	exec, s := newTestExecutor(t)

	if got := exec.Dispatch(s, frame("MULTI")); string(got) != "+OK\r\n" {
		t.Fatalf("MULTI reply = %q", got)
	}
	if got := exec.Dispatch(s, frame("INCR", "n")); string(got) != "+QUEUED\r\n" {
		t.Fatalf("queued INCR reply = %q", got)
	}
	if got := exec.Dispatch(s, frame("INCR", "n")); string(got) != "+QUEUED\r\n" {
		t.Fatalf("queued INCR reply = %q", got)
	}

	got := exec.Dispatch(s, frame("EXEC"))
	want := "*2\r\n:1\r\n:2\r\n"
	if string(got) != want {
		t.Fatalf("EXEC reply = %q, want %q", got, want)
	}
}

func TestExecWithoutMultiErrors(t *testing.T) {
	exec, s := newTestExecutor(t)
	got := exec.Dispatch(s, frame("EXEC"))
	want := "-ERR EXEC without MULTI\r\n"
	if string(got) != want {
		t.Fatalf("EXEC reply = %q, want %q", got, want)
	}
}

func TestSubscribeModeRejectsOtherCommands(t *testing.T) {
	exec, s := newTestExecutor(t)
	exec.Dispatch(s, frame("SUBSCRIBE", "ch"))

	got := exec.Dispatch(s, frame("GET", "foo"))
	if len(got) == 0 || got[0] != '-' {
		t.Fatalf("expected an error reply while subscribed, got %q", got)
	}

	if got := exec.Dispatch(s, frame("PING")); string(got) != "*2\r\n$4\r\npong\r\n$0\r\n\r\n" {
		t.Fatalf("PING while subscribed = %q", got)
	}
}

func TestXAddRejectsZeroAndNonIncreasingIDs(t *testing.T) {
	exec, s := newTestExecutor(t)

	got := exec.Dispatch(s, frame("XADD", "s", "0-0", "k", "v"))
	if len(got) == 0 || got[0] != '-' {
		t.Fatalf("expected error for id 0-0, got %q", got)
	}

	exec.Dispatch(s, frame("XADD", "s", "5-0", "k", "v"))
	got = exec.Dispatch(s, frame("XADD", "s", "5-0", "k", "v"))
	if len(got) == 0 || got[0] != '-' {
		t.Fatalf("expected error for non-increasing id, got %q", got)
	}
}

func TestXRangeInclusiveBounds(t *testing.T) {
	exec, s := newTestExecutor(t)
	exec.Dispatch(s, frame("XADD", "s", "1-1", "temp", "36"))
	exec.Dispatch(s, frame("XADD", "s", "1-2", "temp", "37"))

	got := exec.Dispatch(s, frame("XRANGE", "s", "-", "+"))
	want := "*2\r\n*2\r\n$3\r\n1-1\r\n*2\r\n$4\r\ntemp\r\n$2\r\n36\r\n*2\r\n$3\r\n1-2\r\n*2\r\n$4\r\ntemp\r\n$2\r\n37\r\n"
	if string(got) != want {
		t.Fatalf("XRANGE reply = %q, want %q", got, want)
	}
}

func TestWaitWithNoReplicasAndNoWritesReturnsImmediately(t *testing.T) {
	exec, s := newTestExecutor(t)
	got := exec.Dispatch(s, frame("WAIT", "0", "100"))
	if string(got) != ":0\r\n" {
		t.Fatalf("WAIT reply = %q", got)
	}
}

func TestBlockingXReadDeliversOnlyNewEntry(t *testing.T) {
	exec, s := newTestExecutor(t)
	exec.Dispatch(s, frame("XADD", "s", "1-0", "k", "v0"))

	done := make(chan []byte, 1)
	go func() {
		done <- exec.Dispatch(s, frame("XREAD", "BLOCK", "0", "STREAMS", "s", "$"))
	}()

	time.Sleep(20 * time.Millisecond)
	exec.Dispatch(s, frame("XADD", "s", "2-0", "k", "v1"))

	select {
	case got := <-done:
		want := "*1\r\n*2\r\n$1\r\ns\r\n*1\r\n*2\r\n$3\r\n2-0\r\n*2\r\n$1\r\nk\r\n$2\r\nv1\r\n"
		if string(got) != want {
			t.Fatalf("XREAD BLOCK 0 reply = %q, want %q", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("XREAD BLOCK 0 never delivered")
	}
}
