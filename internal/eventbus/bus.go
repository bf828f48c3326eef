// Package eventbus is an in-process publish/subscribe table used to tell mounted views
// that another view changed server state.
//
// Delivery is synchronous, in subscription order, to the subscribers present at publish
// time. Nothing is buffered or replayed.
package eventbus

import "sync"

// Topics published by doclane.
const (
	TopicDocumentUploaded = "document-uploaded"
	TopicDocumentsChanged = "documents-changed"
	TopicResultValidated  = "result-validated"
	TopicSessionEnded     = "session-ended"
)

// Event is a transient notification.
type Event struct {
	Topic   string
	Payload any
}

// Handler receives events for a subscribed topic.
type Handler func(Event)

type subscription struct {
	id uint64
	fn Handler
}

// Bus is a synchronous dispatch table. The zero value is not usable; use New.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string][]subscription
}

func New() *Bus {
	return &Bus{subs: map[string][]subscription{}}
}

// Subscribe registers fn for topic and returns its unsubscribe func.
// Unsubscribe is idempotent.
func (b *Bus) Subscribe(topic string, fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic, id) })
	}
}

// Publish invokes the handlers subscribed to topic at call time.
// Handlers may subscribe or unsubscribe while being invoked.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.Lock()
	current := make([]subscription, len(b.subs[topic]))
	copy(current, b.subs[topic])
	b.mu.Unlock()

	ev := Event{Topic: topic, Payload: payload}
	for _, s := range current {
		s.fn(ev)
	}
}

// Subscribers returns how many handlers are registered for topic.
func (b *Bus) Subscribers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}

func (b *Bus) remove(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[topic]
	for i, s := range list {
		if s.id == id {
			b.subs[topic] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
}
