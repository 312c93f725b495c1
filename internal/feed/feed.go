// Package feed is an in-memory activity stream of handled interactions,
// served to operators as server-sent events.
package feed

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Entry kinds.
const (
	KindInteraction  = "interaction"
	KindEventCreated = "event_created"
)

// Entry is one item in the feed.
type Entry struct {
	ID   int64           `json:"id"`
	Kind string          `json:"kind"`
	At   time.Time       `json:"at"`
	Data json.RawMessage `json:"data"`
}

// Feed fans entries out to subscribers and keeps the most recent ones for
// clients that reconnect. A nil *Feed drops everything.
type Feed struct {
	nextID atomic.Int64
	now    func() time.Time

	mu    sync.Mutex
	ring  []Entry
	start int
	size  int

	subs      map[int]chan Entry
	nextSubID int
}

// New creates a Feed that retains up to capacity entries.
func New(capacity int) *Feed {
	if capacity <= 0 {
		capacity = 100
	}
	return &Feed{
		now:  time.Now,
		ring: make([]Entry, capacity),
		subs: make(map[int]chan Entry),
	}
}

// Publish appends an entry. Subscribers that are not keeping up miss it.
func (f *Feed) Publish(kind string, data any) {
	if f == nil {
		return
	}

	payload := json.RawMessage("{}")
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			payload = b
		}
	}

	e := Entry{
		ID:   f.nextID.Add(1),
		Kind: kind,
		At:   f.now().UTC(),
		Data: payload,
	}

	f.mu.Lock()
	f.pushLocked(e)
	for _, ch := range f.subs {
		select {
		case ch <- e:
		default:
		}
	}
	f.mu.Unlock()
}

// Subscribe returns a channel of new entries and a cancel func that closes it.
func (f *Feed) Subscribe() (<-chan Entry, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextSubID
	f.nextSubID++
	ch := make(chan Entry, 64)
	f.subs[id] = ch

	cancel := func() {
		f.mu.Lock()
		if c, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(c)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Since returns retained entries with ID > lastID, oldest first.
func (f *Feed) Since(lastID int64) []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Entry, 0, f.size)
	for i := 0; i < f.size; i++ {
		e := f.ring[(f.start+i)%len(f.ring)]
		if e.ID > lastID {
			out = append(out, e)
		}
	}
	return out
}

func (f *Feed) pushLocked(e Entry) {
	capacity := len(f.ring)
	if f.size < capacity {
		f.ring[(f.start+f.size)%capacity] = e
		f.size++
		return
	}
	// Overwrite oldest.
	f.ring[f.start] = e
	f.start = (f.start + 1) % capacity
}
