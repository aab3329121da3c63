// Package bus is the in-process event stream between the session
// engine and its front-ends. Dispatch is synchronous: Publish invokes
// every handler in subscription order before returning, so a handler
// observes events in the exact order the engine produced them.
package bus

import "sync"

// Event is the closed union of engine events. Exactly one concrete
// type below is published per occurrence.
type Event interface{ isEvent() }

// Connected fires once the realtime channel is open and configured.
type Connected struct{}

// Disconnected fires when the channel is torn down, cleanly or not.
type Disconnected struct{}

// Error carries an engine error plus its localized human message.
type Error struct {
	Err     error
	Message string
}

// TextDelta is one streamed fragment of the assistant's turn.
type TextDelta struct {
	Text string
}

// TextComplete is the full text of a finished assistant turn.
type TextComplete struct {
	Text string
}

// AudioChunk is one decoded chunk of assistant speech.
type AudioChunk struct {
	Samples []float32
}

// RecordingStarted fires when microphone capture begins.
type RecordingStarted struct{}

// RecordingStopped fires when microphone capture ends.
type RecordingStopped struct{}

// UserSpeaking reports server-side voice activity detection flips.
type UserSpeaking struct {
	Speaking bool
}

// ResponseComplete fires when the model finishes a whole response.
type ResponseComplete struct{}

func (Connected) isEvent()        {}
func (Disconnected) isEvent()     {}
func (Error) isEvent()            {}
func (TextDelta) isEvent()        {}
func (TextComplete) isEvent()     {}
func (AudioChunk) isEvent()       {}
func (RecordingStarted) isEvent() {}
func (RecordingStopped) isEvent() {}
func (UserSpeaking) isEvent()     {}
func (ResponseComplete) isEvent() {}

// Handler receives every published event.
type Handler func(Event)

// Bus fans events out to subscribers. Safe for concurrent use;
// handlers run on the publishing goroutine.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   []subscription
}

type subscription struct {
	id      int
	handler Handler
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers handler and returns its unsubscribe func, which
// is idempotent. Handlers are invoked in subscription order.
func (b *Bus) Subscribe(handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, handler: handler})
	return func() { b.unsubscribe(id) }
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers ev to every subscriber before returning.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.handler(ev)
	}
}
