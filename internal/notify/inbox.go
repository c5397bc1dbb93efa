package notify

import (
	"context"
	"sync"
	"time"
)

const defaultInboxSize = 32

// Inbox is a bounded per-session queue. When full the oldest entry is dropped.
type Inbox struct {
	mu      sync.Mutex
	items   []Notification
	size    int
	dropped int
	now     func() time.Time
}

// NewInbox returns an inbox holding at most size notifications.
func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = defaultInboxSize
	}
	return &Inbox{size: size, now: time.Now}
}

func (i *Inbox) Notify(_ context.Context, event Event, payload Payload) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.items) == i.size {
		copy(i.items, i.items[1:])
		i.items = i.items[:len(i.items)-1]
		i.dropped++
	}
	i.items = append(i.items, Notification{Event: event, Payload: payload, At: i.now().UTC()})
}

// Drain returns queued notifications oldest first and empties the inbox.
func (i *Inbox) Drain() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.items
	i.items = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

// Len returns the number of queued notifications.
func (i *Inbox) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.items)
}

// Dropped returns how many notifications were discarded for space.
func (i *Inbox) Dropped() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.dropped
}
