package dict

import (
	"testing"

	"faraabin/event"
	"faraabin/fobject"
)

type fakeFobjectEmittable struct {
	fo       *fobject.Fobject
	children []Emittable
}

func (f *fakeFobjectEmittable) Fobject() *fobject.Fobject  { return f.fo }
func (f *fakeFobjectEmittable) EmitSelf(w *event.Writer)   { w.AddString(f.fo.Name) }
func (f *fakeFobjectEmittable) Children() []Emittable      { return f.children }

type fakeSource struct{ fos []*fobject.Fobject }

func (s *fakeSource) Count() int                  { return len(s.fos) }
func (s *fakeSource) At(i int) *fobject.Fobject   { return s.fos[i] }

func TestTwoPassCountMatchesEmitCount(t *testing.T) {
	child := &fakeFobjectEmittable{fo: &fobject.Fobject{Handle: 2, Name: "member"}}
	parent := &fakeFobjectEmittable{fo: &fobject.Fobject{Handle: 1, Name: "vartype"}, children: []Emittable{child}}
	other := &fakeFobjectEmittable{fo: &fobject.Fobject{Handle: 3, Name: "container"}}

	src := &fakeSource{fos: []*fobject.Fobject{parent.fo, other.fo}}
	byHandle := map[fobject.Handle]Emittable{1: parent, 3: other}
	w := &Walker{Source: src, Emittable: func(h fobject.Handle) Emittable { return byHandle[h] }}

	var emitted []int
	var lastIsLast bool
	w.Run(func(curDictIdx int, totalSub, curSubIdx int, isLast bool, e Emittable) {
		emitted = append(emitted, curSubIdx)
		if totalSub != 3 {
			t.Fatalf("expected totalSub=3 (parent+child+other), got %d", totalSub)
		}
		lastIsLast = isLast
	})
	if len(emitted) != 3 {
		t.Fatalf("expected 3 emissions, got %d", len(emitted))
	}
	for i, idx := range emitted {
		if idx != i {
			t.Fatalf("curSubIdx out of order: %v", emitted)
		}
	}
	if !lastIsLast {
		t.Fatal("expected final callback's isLast=true")
	}
}

func TestEmptyRegistryEmitsNothing(t *testing.T) {
	w := &Walker{Source: &fakeSource{}, Emittable: func(fobject.Handle) Emittable { return nil }}
	called := false
	w.Run(func(int, int, int, bool, Emittable) { called = true })
	if called {
		t.Fatal("expected no emissions for empty registry")
	}
}
