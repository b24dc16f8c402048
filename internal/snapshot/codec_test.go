package snapshot

import (
	"path/filepath"
	"testing"
	"time"
)

func TestRoundTripStringsWithAndWithoutExpiry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.rdb")

	expireAt := time.Now().Add(time.Hour).Truncate(time.Second)
	in := []Entry{
		{Key: []byte("foo"), Value: []byte("bar")},
		{Key: []byte("withttl"), Value: []byte("v"), HasExpiry: true, ExpireAt: expireAt},
	}

	if err := Write(path, in, Options{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(out))
	}
	byKey := map[string]Entry{}
	for _, e := range out {
		byKey[string(e.Key)] = e
	}
	if string(byKey["foo"].Value) != "bar" {
		t.Fatalf("foo mismatch: %+v", byKey["foo"])
	}
	ttlEntry := byKey["withttl"]
	if !ttlEntry.HasExpiry || !ttlEntry.ExpireAt.Equal(expireAt) {
		t.Fatalf("expiry mismatch: %+v vs %v", ttlEntry, expireAt)
	}
}

func TestRoundTripCompressedLargeValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.rdb")

	big := make([]byte, 4096)
	for i := range big {
		big[i] = byte('a' + i%4)
	}
	in := []Entry{{Key: []byte("k"), Value: big}}

	if err := Write(path, in, Options{Compress: true}); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(out) != 1 || string(out[0].Value) != string(big) {
		t.Fatalf("compressed round trip mismatch")
	}
}
