package engine

import "sync"

// subscriberBufferSize is the channel buffer for each event subscriber.
// Events are dropped if a subscriber falls this far behind; the record in the
// registry always holds the authoritative latest state.
const subscriberBufferSize = 64

// Event is one progress or status update published while a simulation runs.
type Event struct {
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Error    string  `json:"error,omitempty"`
}

// ProgressBroker fans simulation events out to subscribers. It is safe for
// concurrent use.
//
// Closed topics are retained as markers so that late subscribers (those
// subscribing after a simulation finishes) receive a closed channel instead
// of blocking forever.
type ProgressBroker struct {
	mu     sync.Mutex
	topics map[string]*eventTopic
}

type eventTopic struct {
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewProgressBroker creates a new event broker.
func NewProgressBroker() *ProgressBroker {
	return &ProgressBroker{
		topics: make(map[string]*eventTopic),
	}
}

// Subscribe returns a channel that receives events for the given simulation
// and an unsubscribe function. If the simulation has already finished (Close
// was called), the returned channel is immediately closed.
func (b *ProgressBroker) Subscribe(simID string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[simID]
	if !ok {
		t = &eventTopic{subs: make(map[int]chan Event)}
		b.topics[simID] = t
	}

	ch := make(chan Event, subscriberBufferSize)
	if t.closed {
		close(ch)
		return ch, func() {}
	}

	id := t.nextID
	t.nextID++
	t.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(t.subs, id)
	}
}

// Publish sends an event to all subscribers of the given simulation.
// Events are dropped for subscribers whose buffers are full.
func (b *ProgressBroker) Publish(simID string, ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[simID]
	if !ok || t.closed {
		return
	}

	for _, ch := range t.subs {
		select {
		case ch <- ev:
		default:
			// Drop for slow subscribers to avoid blocking the runner.
		}
	}
}

// Close signals that no more events will be published for the simulation.
// All subscriber channels are closed and future Subscribe calls return a
// closed channel.
func (b *ProgressBroker) Close(simID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[simID]
	if !ok {
		b.topics[simID] = &eventTopic{subs: make(map[int]chan Event), closed: true}
		return
	}

	t.closed = true
	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}
}
