package statemachine

import "testing"

func TestChildrenOrderedStatesThenTransitions(t *testing.T) {
	sm := New(1, "power")
	sm.AddState(2, "off")
	sm.AddState(3, "on")
	sm.AddTransition(4, "turn_on", "off", "on")

	children := sm.View().Children()
	if len(children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(children))
	}
	if children[0].Fobject().Name != "off" || children[1].Fobject().Name != "on" {
		t.Fatalf("expected states before transitions, got %+v", children)
	}
	if children[2].Fobject().Name != "turn_on" {
		t.Fatalf("expected transition last, got %+v", children[2])
	}
}

func TestChildPathsNestUnderParent(t *testing.T) {
	sm := New(1, "power")
	sm.AddState(2, "off")
	if got := sm.States[0].Fobject.Path; got != "root/power" {
		t.Fatalf("expected child path root/power, got %q", got)
	}
}

func TestFindSubLocatesStateOrTransition(t *testing.T) {
	sm := New(1, "power")
	sm.AddState(2, "off")
	sm.AddTransition(3, "turn_on", "off", "on")
	if sm.findSub(2) == nil || sm.findSub(3) == nil {
		t.Fatal("expected findSub to locate both a state and a transition")
	}
	if sm.findSub(99) != nil {
		t.Fatal("expected findSub to return nil for unknown handle")
	}
}
