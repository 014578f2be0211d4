// Package dict implements the two-pass Dictionary Iterator described in
// spec.md §4.6: pass 1 counts sub-items across every registered fobject,
// pass 2 emits one frame per sub-item carrying the pre-counted total so the
// host can pre-allocate.
package dict

import (
	"faraabin/event"
	"faraabin/fobject"
)

// Emittable is implemented by anything the dictionary iterator can walk: a
// parent fobject plus zero or more children (struct/enum members,
// function-group functions, state/transition children, a container's
// user-supplied body). EmitSelf writes the parent's own descriptor;
// Children returns nested Emittables to recurse into, in declaration
// order (spec.md §4.6).
type Emittable interface {
	Fobject() *fobject.Fobject
	EmitSelf(w *event.Writer)
	Children() []Emittable
}

// Source supplies the ordered fobjects the iterator walks (the registry,
// in production).
type Source interface {
	Count() int
	At(i int) *fobject.Fobject
}

// Walker adapts a fobject.Registry plus an Emittable-lookup into something
// Run can drive without the dict package depending on every concrete
// fobject type.
type Walker struct {
	Source Source
	// Emittable resolves a registered fobject's handle to its Emittable
	// view. Returns nil for fobjects dict enumeration should skip.
	Emittable func(h fobject.Handle) Emittable
}

// count walks every top-level fobject and its children, returning the
// total sub-item count pass 1 computes.
func (w *Walker) count() int {
	var total int
	var walk func(e Emittable)
	walk = func(e Emittable) {
		total++
		for _, c := range e.Children() {
			walk(c)
		}
	}
	for i := 0; i < w.Source.Count(); i++ {
		fo := w.Source.At(i)
		if fo == nil {
			continue
		}
		if e := w.Emittable(fo.Handle); e != nil {
			walk(e)
		}
	}
	return total
}

// Item is one pre-counted dictionary entry produced by Items: a single
// sub-item emission plus the bookkeeping a SendDict frame needs.
type Item struct {
	DictIdx   int
	TotalSub  int
	CurSubIdx int
	IsLast    bool
	Emittable Emittable
}

// Items performs the full two-pass enumeration (spec.md §4.6) eagerly,
// returning every sub-item in emission order. Run is the common inline
// case built atop Items; callers that need to pace emission across
// multiple scheduler ticks (non-blocking SendAllDict, spec.md §4.9) use
// Items directly and step through the slice themselves.
func (w *Walker) Items() []Item {
	totalSub := w.count()
	if totalSub == 0 {
		return nil
	}
	items := make([]Item, 0, totalSub)
	curSubIdx := 0
	var walk func(dictIdx int, e Emittable)
	walk = func(dictIdx int, e Emittable) {
		isLast := curSubIdx == totalSub-1
		items = append(items, Item{dictIdx, totalSub, curSubIdx, isLast, e})
		curSubIdx++
		for _, c := range e.Children() {
			walk(dictIdx, c)
		}
	}
	for i := 0; i < w.Source.Count(); i++ {
		fo := w.Source.At(i)
		if fo == nil {
			continue
		}
		if e := w.Emittable(fo.Handle); e != nil {
			walk(i, e)
		}
	}
	return items
}

// Run performs the full two-pass enumeration inline, calling emit once per
// sub-item in pass 2 with (curDictIdx, totalSub, curSubIdx, isLast, the
// Emittable to render). The caller (faraabin/link) is responsible for
// translating each callback into a SendDict frame and for emitting the
// terminal DictEnd event once Run returns.
func (w *Walker) Run(emit func(curDictIdx int, totalSub, curSubIdx int, isLast bool, e Emittable)) {
	for _, it := range w.Items() {
		emit(it.DictIdx, it.TotalSub, it.CurSubIdx, it.IsLast, it.Emittable)
	}
}
