package bus

import (
	"testing"
	"time"
)

func TestBasicPubSub(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("config", "geo"))
	conn.Publish(conn.NewMessage(T("config", "geo"), "hello"))

	select {
	case got := <-sub.Channel():
		if got.Payload.(string) != "hello" {
			t.Errorf("expected payload 'hello', got %v", got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishOnlyReachesExactTopic(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	configSub := conn.Subscribe(T("config", "geo"))
	otherSub := conn.Subscribe(T("config", "net"))

	conn.Publish(conn.NewMessage(T("config", "geo"), "m1"))

	select {
	case got := <-configSub.Channel():
		if got.Payload.(string) != "m1" {
			t.Fatalf("expected m1, got %v", got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message on exact topic")
	}

	select {
	case got := <-otherSub.Channel():
		t.Fatalf("unexpected delivery to a different topic: %#v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFullQueueDropsOldestRatherThanBlocking(t *testing.T) {
	b := NewBus(1)
	conn := b.NewConnection("test")
	sub := conn.Subscribe(T("frame_in"))

	conn.Publish(conn.NewMessage(T("frame_in"), "old"))
	conn.Publish(conn.NewMessage(T("frame_in"), "new"))

	select {
	case got := <-sub.Channel():
		if got.Payload.(string) != "new" {
			t.Fatalf("expected the newest message to survive the drop, got %v", got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
}

func TestUnsubscribeStopsFurtherDelivery(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")
	sub := conn.Subscribe(T("line"))
	sub.Unsubscribe()

	conn.Publish(conn.NewMessage(T("line"), "after unsubscribe"))

	select {
	case _, ok := <-sub.Channel():
		if ok {
			t.Fatal("expected no delivery after Unsubscribe")
		}
	case <-time.After(50 * time.Millisecond):
		t.Fatal("expected the channel to be closed, not just empty")
	}
}

func TestDisconnectClosesEveryOwnedSubscription(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")
	a := conn.Subscribe(T("a"))
	c := conn.Subscribe(T("c"))

	conn.Disconnect()

	for _, sub := range []*Subscription{a, c} {
		if _, ok := <-sub.Channel(); ok {
			t.Fatal("expected Disconnect to close every subscription's channel")
		}
	}
}
