// Package bus implements a minimal in-process publish/subscribe queue,
// adapted from the teacher's topic-trie pub/sub down to the exact-topic,
// non-blocking-delivery subset cmd/hostsim actually drives: no wildcard
// subscriptions, no retained messages, no request/reply helpers. It
// exists purely to decouple hostsim's link-RX producer goroutine from its
// console-consumer goroutine (spec.md §5's single-threaded core never
// imports this package); a slow subscriber loses its oldest queued
// message rather than blocking the publisher, the same best-effort
// delivery the teacher's bus uses for hal event fan-out.
package bus

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// Token is one segment of a Topic, compared by its string representation.
type Token any

// Topic is an ordered sequence of Tokens, matched by exact equality.
type Topic []Token

// T builds a Topic from its segments.
func T(tokens ...Token) Topic { return Topic(tokens) }

func (t Topic) key() string {
	parts := make([]string, len(t))
	for i, tok := range t {
		if s, ok := tok.(string); ok {
			parts[i] = s
			continue
		}
		parts[i] = fmt.Sprint(tok)
	}
	return strings.Join(parts, "\x1f")
}

// Message is one published item.
type Message struct {
	Topic   Topic
	Payload any
	ID      uint32
}

// Subscription is a single consumer's queue for one Topic.
type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// Bus holds every live subscription, keyed by exact topic.
type Bus struct {
	mu    sync.Mutex
	subs  map[string][]*Subscription
	qLen  int
	idCtr atomic.Uint32
}

// NewBus builds a Bus whose subscriber queues hold queueLen messages
// before the oldest is dropped to make room for the newest.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 3
	}
	return &Bus{subs: make(map[string][]*Subscription), qLen: queueLen}
}

func (b *Bus) nextID() uint32 { return b.idCtr.Add(1) }

// NewMessage stamps payload with a fresh monotonic ID for topic.
func (b *Bus) NewMessage(topic Topic, payload any) *Message {
	return &Message{Topic: topic, Payload: payload, ID: b.nextID()}
}

// Publish delivers msg to every current subscriber of its exact topic.
func (b *Bus) Publish(msg *Message) {
	key := msg.Topic.key()
	b.mu.Lock()
	subs := append([]*Subscription(nil), b.subs[key]...)
	b.mu.Unlock()

	for _, sub := range subs {
		deliver(sub.ch, msg)
	}
}

// deliver is non-blocking: a full queue drops its oldest message to make
// room, so a stalled consumer never stalls the publisher.
func deliver(ch chan *Message, m *Message) {
	select {
	case ch <- m:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- m:
	default:
	}
}

func (b *Bus) subscribe(topic Topic, conn *Connection) *Subscription {
	sub := &Subscription{topic: topic, ch: make(chan *Message, b.qLen), conn: conn}
	key := topic.key()
	b.mu.Lock()
	b.subs[key] = append(b.subs[key], sub)
	b.mu.Unlock()
	return sub
}

func (b *Bus) unsubscribe(sub *Subscription) {
	key := sub.topic.key()
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[key]
	for i, s := range list {
		if s == sub {
			b.subs[key] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(b.subs[key]) == 0 {
		delete(b.subs, key)
	}
}

// Connection groups the subscriptions one consumer owns, so Disconnect can
// tear them all down together.
type Connection struct {
	bus  *Bus
	subs []*Subscription
	mu   sync.Mutex
	id   string
}

// NewConnection names a new Connection onto b.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) NewMessage(topic Topic, payload any) *Message {
	return c.bus.NewMessage(topic, payload)
}

func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := c.bus.subscribe(topic, c)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.unsubscribe(sub)
	c.mu.Lock()
	c.subs = removeSub(c.subs, sub)
	c.mu.Unlock()
	close(sub.ch)
}

// Disconnect unsubscribes and closes every queue this Connection owns.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub)
		close(sub.ch)
	}
}

func removeSub(list []*Subscription, target *Subscription) []*Subscription {
	for i, s := range list {
		if s == target {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
