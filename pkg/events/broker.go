package events

import (
	"log/slog"
	"sync"

	"github.com/kgee-io/kgee/pkg/models"
)

// subscriberBuffer bounds each subscriber's queue; a slow consumer drops
// updates rather than blocking the supervisor.
const subscriberBuffer = 64

// Broker fans progress updates out to channel subscribers. It implements
// the session manager's ProgressPublisher.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan ProgressPayload]bool
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subscribers: make(map[string]map[chan ProgressPayload]bool)}
}

// Subscribe registers a subscriber on a channel. The returned cancel
// function unregisters and closes the subscription.
func (b *Broker) Subscribe(channel string) (<-chan ProgressPayload, func()) {
	ch := make(chan ProgressPayload, subscriberBuffer)

	b.mu.Lock()
	subs, ok := b.subscribers[channel]
	if !ok {
		subs = make(map[chan ProgressPayload]bool)
		b.subscribers[channel] = subs
	}
	subs[ch] = true
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if subs, ok := b.subscribers[channel]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subscribers, channel)
				}
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// PublishProgress implements session.ProgressPublisher.
func (b *Broker) PublishProgress(sessionID string, state models.ResearchState) {
	b.Publish(SessionChannel(sessionID), NewProgressPayload(sessionID, state))
}

// Publish delivers a payload to every subscriber of a channel, dropping it
// for subscribers with a full buffer.
func (b *Broker) Publish(channel string, payload ProgressPayload) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers[channel] {
		select {
		case ch <- payload:
		default:
			slog.Debug("progress_subscriber_backlogged", "channel", channel)
		}
	}
}

// SubscriberCount reports the subscribers on a channel.
func (b *Broker) SubscriberCount(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[channel])
}
