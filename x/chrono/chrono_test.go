package chrono

import "testing"

type fakeSource struct{ t uint32 }

func (f *fakeSource) Tick() uint32 { return f.t }

func TestElapsedAndExpired(t *testing.T) {
	src := &fakeSource{t: 100}
	c := New(src)
	c.Start()
	src.t = 150
	if c.Elapsed() != 50 {
		t.Fatalf("elapsed=%d", c.Elapsed())
	}
	if c.Expired(100) {
		t.Fatal("should not be expired yet")
	}
	src.t = 201
	if !c.Expired(100) {
		t.Fatal("expected expired")
	}
}

func TestElapsedBeforeStartIsZero(t *testing.T) {
	c := New(&fakeSource{t: 5})
	if c.Elapsed() != 0 {
		t.Fatalf("expected 0 before Start, got %d", c.Elapsed())
	}
}

func TestElapsedHandlesWraparound(t *testing.T) {
	src := &fakeSource{t: 0xFFFFFFF0}
	c := New(src)
	c.Start()
	src.t = 10 // wrapped past uint32 max
	if c.Elapsed() != 26 {
		t.Fatalf("expected wraparound-safe elapsed=26, got %d", c.Elapsed())
	}
}
