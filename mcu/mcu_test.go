package mcu

import "testing"

func TestLiveTimeout(t *testing.T) {
	m := New(0, FeaturePassword, 100)
	m.TouchLive(0)
	if !m.HostConnected {
		t.Fatal("expected host connected after TouchLive")
	}
	m.CheckLiveTimeout(50)
	if !m.HostConnected {
		t.Fatal("expected still connected before timeout")
	}
	m.CheckLiveTimeout(101)
	if m.HostConnected {
		t.Fatal("expected disconnected after timeout")
	}
}

func TestStatusFlagsSetClear(t *testing.T) {
	m := New(0, 0, 1000)
	m.SetStatus(StatusNewDict)
	if !m.HasStatus(StatusNewDict) {
		t.Fatal("expected NewDict set")
	}
	m.ClearStatus(StatusNewDict)
	if m.HasStatus(StatusNewDict) {
		t.Fatal("expected NewDict cleared")
	}
}
