package store

import (
	"testing"
	"time"
)

func TestStringExpiryIsLazilyEvicted(t *testing.T) {
	s := NewStringStore()
	ttl := time.Millisecond
	s.Set("k", []byte("v"), &ttl)
	time.Sleep(5 * time.Millisecond)
	if _, ok := s.Get("k"); ok {
		t.Fatalf("expected expired key to be absent")
	}
	snap := s.Snapshot()
	if _, ok := snap["k"]; ok {
		t.Fatalf("expired key leaked into snapshot")
	}
}

func TestIncrRejectsNonInteger(t *testing.T) {
	s := NewStringStore()
	s.Set("k", []byte("abc"), nil)
	if _, err := s.Incr("k"); err == nil {
		t.Fatalf("expected error incrementing non-integer value")
	}
}

func TestListBlockingWaiterReceivesPushedValue(t *testing.T) {
	l := NewListStore()
	ch, cancel := l.RegisterWaiter("q")
	defer cancel()

	l.Push("q", false, []byte("hello"))

	select {
	case v := <-ch:
		if string(v) != "hello" {
			t.Fatalf("got %q", v)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter was never woken")
	}
	if l.Len("q") != 0 {
		t.Fatalf("value should have gone straight to the waiter, not the list")
	}
}

func TestStreamXAddStrictIncrease(t *testing.T) {
	s := NewStreamStore()
	id1, err := s.ResolveXAddID("s", "1-1")
	if err != nil {
		t.Fatal(err)
	}
	s.Append("s", id1, nil)

	if _, err := s.ResolveXAddID("s", "1-1"); err != ErrStreamIDBehind {
		t.Fatalf("expected ErrStreamIDBehind, got %v", err)
	}
	if _, err := s.ResolveXAddID("other", "0-0"); err != ErrStreamIDZero {
		t.Fatalf("expected ErrStreamIDZero, got %v", err)
	}
}

func TestStreamRangeInclusive(t *testing.T) {
	s := NewStreamStore()
	id1, _ := s.ResolveXAddID("s", "1-1")
	s.Append("s", id1, [][2][]byte{{[]byte("temp"), []byte("36")}})
	id2, _ := s.ResolveXAddID("s", "1-2")
	s.Append("s", id2, [][2][]byte{{[]byte("temp"), []byte("37")}})

	start, _ := ParseRangeBound("-", true)
	end, _ := ParseRangeBound("+", false)
	entries := s.Range("s", start, end)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

func TestZSetInvariants(t *testing.T) {
	z := NewZSetStore()
	if !z.Add("z", "b", 2) {
		t.Fatalf("expected new member")
	}
	if !z.Add("z", "a", 1) {
		t.Fatalf("expected new member")
	}
	if z.Add("z", "a", 5) {
		t.Fatalf("updating an existing member must return false")
	}
	rank, ok := z.Rank("z", "b")
	if !ok || rank != 0 {
		t.Fatalf("expected b at rank 0 after reorder, got %d ok=%v", rank, ok)
	}
	if z.Card("z") != 2 {
		t.Fatalf("expected 2 members")
	}
}
