package billing

import (
	"sync"

	"github.com/caban7m/GymRat/internal/domain"
)

// subscriberBuffer bounds each subscriber channel. Updates for one user
// are rare (purchase, restore, renewal), so a small buffer is enough to
// keep Publish from blocking on a slow reader.
const subscriberBuffer = 8

// Feed fans customer-info updates out to session reconcilers. The
// purchase/restore handlers publish into it; each reconciler drains its
// own subscription channel and must cancel it on teardown; a leaked
// subscription would deliver a stale callback into the next session.
type Feed struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan domain.CustomerInfo
}

// NewFeed creates an empty update feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[int]chan domain.CustomerInfo)}
}

// Subscribe registers a listener. The returned cancel func removes the
// subscription and closes the channel; it is safe to call more than once.
func (f *Feed) Subscribe() (<-chan domain.CustomerInfo, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	ch := make(chan domain.CustomerInfo, subscriberBuffer)
	f.subs[id] = ch

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if sub, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers an update to every live subscriber. A subscriber whose
// buffer is full is skipped rather than blocking the publisher; the
// reconciler re-verifies against the store anyway.
func (f *Feed) Publish(info domain.CustomerInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- info:
		default:
		}
	}
}
