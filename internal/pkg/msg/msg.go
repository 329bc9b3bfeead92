// Package msg is the internal publish/subscribe fabric connecting the
// solve orchestrator to the persistence and presentation layers.
package msg

import (
	"sync"

	"github.com/google/uuid"
)

// Topic partitions the message stream.
type Topic int

const (
	// Result carries solved model results.
	Result Topic = iota
	// Status carries orchestrator state changes.
	Status
)

// Publisher is an interface for objects that allow subscription to
// their events.
type Publisher interface {
	Subscribe(pid uuid.UUID, topic Topic) (<-chan Msg, error)
	Unsubscribe(pid uuid.UUID)
}

// Msg wraps a payload with the sender's PID and topic.
type Msg struct {
	sender  uuid.UUID
	topic   Topic
	payload interface{}
}

// New is the Msg factory function.
func New(sender uuid.UUID, topic Topic, payload interface{}) Msg {
	return Msg{sender, topic, payload}
}

// PID returns the sender's PID.
func (m Msg) PID() uuid.UUID {
	return m.sender
}

// Topic returns the message topic.
func (m Msg) Topic() Topic {
	return m.topic
}

// Payload returns the message data.
func (m Msg) Payload() interface{} {
	return m.payload
}

// PubSub fans published messages out to per-topic subscribers.
// Subscriber channels are buffered; a full channel drops the message
// rather than blocking the publisher.
type PubSub struct {
	mux  *sync.Mutex
	pid  uuid.UUID
	subs map[Topic]map[uuid.UUID]chan Msg
}

// NewPublisher returns a PubSub publishing under the given PID.
func NewPublisher(pid uuid.UUID) *PubSub {
	return &PubSub{
		mux:  &sync.Mutex{},
		pid:  pid,
		subs: make(map[Topic]map[uuid.UUID]chan Msg),
	}
}

// Subscribe returns a read-only channel of messages on the topic. A
// resubscribing PID closes its previous channel on that topic.
func (p *PubSub) Subscribe(pid uuid.UUID, topic Topic) (<-chan Msg, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	if _, ok := p.subs[topic]; !ok {
		p.subs[topic] = make(map[uuid.UUID]chan Msg)
	}
	if old, ok := p.subs[topic][pid]; ok {
		close(old)
	}
	ch := make(chan Msg, 8)
	p.subs[topic][pid] = ch
	return ch, nil
}

// Unsubscribe closes and removes the subscriber's channels on every
// topic.
func (p *PubSub) Unsubscribe(pid uuid.UUID) {
	p.mux.Lock()
	defer p.mux.Unlock()
	for _, subs := range p.subs {
		if ch, ok := subs[pid]; ok {
			delete(subs, pid)
			close(ch)
		}
	}
}

// Publish sends payload to every subscriber of the topic.
func (p *PubSub) Publish(topic Topic, payload interface{}) {
	p.Forward(New(p.pid, topic, payload))
}

// Forward relays an existing message to the topic's subscribers.
func (p *PubSub) Forward(m Msg) {
	p.mux.Lock()
	defer p.mux.Unlock()
	for _, ch := range p.subs[m.Topic()] {
		select {
		case ch <- m:
		default:
		}
	}
}
