package ring

import (
	"bytes"
	"testing"
)

func TestPutFlushRoundTrip(t *testing.T) {
	b := New(make([]byte, 8), nil)
	b.Put([]byte{1, 2, 3})
	got := b.Flush()
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("got %v", got)
	}
	if b.Len() != 0 {
		t.Fatalf("expected empty after flush, got len=%d", b.Len())
	}
}

func TestFlushNeverWraps(t *testing.T) {
	b := New(make([]byte, 4), nil)
	b.Put([]byte{1, 2, 3})
	_ = b.Flush() // drains [1,2,3], head now at 3
	b.Put([]byte{4, 5}) // wraps: writes at idx3, then idx0
	var all []byte
	for {
		r := b.Flush()
		if len(r) == 0 {
			break
		}
		all = append(all, r...)
	}
	if !bytes.Equal(all, []byte{4, 5}) {
		t.Fatalf("got %v", all)
	}
}

func TestOverflowDiscardsOldest(t *testing.T) {
	b := New(make([]byte, 4), nil)
	b.Put([]byte{1, 2, 3, 4, 5, 6}) // 6 bytes into a 4-byte ring
	if !b.Overflowed() {
		t.Fatal("expected overflow flag latched")
	}
	got := b.Flush()
	if !bytes.Equal(got, []byte{3, 4, 5, 6}) {
		t.Fatalf("expected newest 4 bytes [3 4 5 6], got %v", got)
	}
}

func TestOverflowIncrementalOverwrite(t *testing.T) {
	b := New(make([]byte, 4), nil)
	b.Put([]byte{1, 2, 3, 4}) // exactly fills
	if b.Overflowed() {
		t.Fatal("exact fill must not overflow")
	}
	b.Put([]byte{5}) // one more byte forces overwrite of oldest (1)
	if !b.Overflowed() {
		t.Fatal("expected overflow after exceeding capacity")
	}
	// 5 sits at index 0, so Flush (which never wraps) needs two calls
	var got []byte
	for {
		r := b.Flush()
		if len(r) == 0 {
			break
		}
		got = append(got, r...)
	}
	if !bytes.Equal(got, []byte{2, 3, 4, 5}) {
		t.Fatalf("got %v", got)
	}
}

func TestClearOverflow(t *testing.T) {
	b := New(make([]byte, 2), nil)
	b.Put([]byte{1, 2, 3})
	if !b.Overflowed() {
		t.Fatal("expected overflow")
	}
	b.ClearOverflow()
	if b.Overflowed() {
		t.Fatal("expected overflow cleared")
	}
}

func TestEmptyFlushIsNil(t *testing.T) {
	b := New(make([]byte, 4), nil)
	if got := b.Flush(); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
