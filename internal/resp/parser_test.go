package resp

import (
	"bytes"
	"testing"
)

func TestParserDrainSimpleCommand(t *testing.T) {
	p := NewParser()
	p.Feed([]byte("*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n"))

	frames, blob, err := p.Drain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if blob != nil {
		t.Fatalf("did not expect a blob")
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	want := Frame{[]byte("GET"), []byte("foo")}
	if len(frames[0]) != len(want) || string(frames[0][0]) != "GET" || string(frames[0][1]) != "foo" {
		t.Fatalf("got %v, want %v", frames[0], want)
	}
}

func TestParserPartialFrameIsPreserved(t *testing.T) {
	p := NewParser()
	p.Feed([]byte("*2\r\n$3\r\nGET\r\n$3\r\nfo"))

	frames, _, err := p.Drain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 0 {
		t.Fatalf("expected no complete frames yet, got %d", len(frames))
	}

	p.Feed([]byte("o\r\n"))
	frames, _, err = p.Drain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 1 || string(frames[0][1]) != "foo" {
		t.Fatalf("expected completed frame with foo, got %v", frames)
	}
}

func TestParserSwallowsBareBlob(t *testing.T) {
	p := NewParser()
	p.Feed([]byte("+FULLRESYNC abc123 0\r\n"))
	p.Feed([]byte("$5\r\nhello"))
	p.Feed([]byte("*1\r\n$4\r\nPING\r\n"))

	frames, blob, err := p.Drain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(blob) != "hello" {
		t.Fatalf("expected blob payload %q, got %q", "hello", blob)
	}
	if len(frames) != 1 || string(frames[0][0]) != "PING" {
		t.Fatalf("expected one PING frame after the blob, got %v", frames)
	}
}

func TestParserResyncsPastMalformedLine(t *testing.T) {
	p := NewParser()
	p.Feed([]byte("*2\r\n$3\r\nGET\r\nNOTABULK\r\n*1\r\n$4\r\nPING\r\n"))

	frames, _, err := p.Drain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 1 || string(frames[0][0]) != "PING" {
		t.Fatalf("expected resync to recover the PING frame, got %v", frames)
	}
}

func TestRoundTripEncodeDecode(t *testing.T) {
	cmd := EncodeCommand("SET", "foo", "bar")
	p := NewParser()
	p.Feed(cmd)
	frames, _, err := p.Drain()
	if err != nil || len(frames) != 1 {
		t.Fatalf("round trip failed: frames=%v err=%v", frames, err)
	}
	got := EncodeFrame(frames[0])
	if !bytes.Equal(got, cmd) {
		t.Fatalf("round trip mismatch: got %q want %q", got, cmd)
	}
}
