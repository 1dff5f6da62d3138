/*
Package notify is the process-wide change broadcast point.

PURPOSE:
  Tells every currently connected observer that something in the ledger
  changed, without describing what. Observers re-fetch; this is a live
  refresh hint, not a durable event log.

DELIVERY MODEL:
  - At-most-once per observer per signal, best-effort.
  - No backlog: an observer that subscribes after a signal never sees it.
  - Never blocks the publisher: each subscriber channel has capacity one,
    and a subscriber that already holds an undelivered signal coalesces
    further signals into it.
*/
package notify

import "sync"

// Broadcaster fans a content-free "changed" signal out to every current
// subscriber. The zero value is not usable; call NewBroadcaster.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan struct{}]struct{})}
}

// Subscribe registers an observer and returns its signal channel plus a
// cancel function. Cancel is idempotent and must be called when the
// observer disconnects; afterwards the channel receives nothing further.
func (b *Broadcaster) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers one signal to every current subscriber without
// waiting for any of them. With no subscribers the signal is dropped.
func (b *Broadcaster) Publish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
			// Subscriber already has a pending signal; coalesce.
		}
	}
}

// Len reports the current number of subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
