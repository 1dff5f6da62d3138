package notify

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublish_ReachesEverySubscriber(t *testing.T) {
	b := NewBroadcaster()

	first, cancelFirst := b.Subscribe()
	defer cancelFirst()
	second, cancelSecond := b.Subscribe()
	defer cancelSecond()

	b.Publish()

	assert.Len(t, first, 1)
	assert.Len(t, second, 1)
}

func TestPublish_NoSubscribers(t *testing.T) {
	b := NewBroadcaster()

	// Must not block or panic; the signal is simply dropped.
	b.Publish()
	assert.Equal(t, 0, b.Len())
}

func TestPublish_CoalescesWhenSubscriberIsSlow(t *testing.T) {
	b := NewBroadcaster()

	signals, cancel := b.Subscribe()
	defer cancel()

	// Three publishes with nobody reading: the publisher never blocks
	// and the subscriber holds exactly one pending signal.
	b.Publish()
	b.Publish()
	b.Publish()

	assert.Len(t, signals, 1)

	<-signals
	b.Publish()
	assert.Len(t, signals, 1, "delivery resumes once the pending signal is consumed")
}

func TestCancel_StopsDelivery(t *testing.T) {
	b := NewBroadcaster()

	signals, cancel := b.Subscribe()
	cancel()
	cancel() // idempotent

	b.Publish()
	assert.Len(t, signals, 0)
	assert.Equal(t, 0, b.Len())
}

func TestSubscribe_NoReplayOfPastSignals(t *testing.T) {
	b := NewBroadcaster()

	b.Publish()

	signals, cancel := b.Subscribe()
	defer cancel()
	assert.Len(t, signals, 0, "a late subscriber only sees future signals")
}

func TestPublish_ConcurrentWithSubscribe(t *testing.T) {
	b := NewBroadcaster()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, cancel := b.Subscribe()
			cancel()
		}()
		go func() {
			defer wg.Done()
			b.Publish()
		}()
	}
	wg.Wait()
}
