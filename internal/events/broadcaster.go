// Package events provides a change broadcaster for the presentation
// layer: index progress and filesystem mutations fan out to subscribers.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/TG-SkyBox/SkyBox/internal/metrics"
)

const (
	EventIndexed        = "indexed"
	EventBackfill       = "backfill"
	EventFolderCreated  = "folder_created"
	EventRenamed        = "renamed"
	EventMoved          = "moved"
	EventRecycled       = "recycled"
	EventRestored       = "restored"
	EventDeleted        = "deleted"
	EventThumbnailReady = "thumbnail_ready"
)

// Event represents a virtual filesystem change.
type Event struct {
	Type      string `json:"type"`
	Path      string `json:"path,omitempty"`
	NewPath   string `json:"new_path,omitempty"`
	MessageID int64  `json:"message_id,omitempty"`
	Count     int    `json:"count,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Broadcaster manages subscribers and publishes events.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
}

// NewBroadcaster creates a new event broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[chan Event]struct{}),
	}
}

// Subscribe adds a new subscriber and returns its event channel.
// The caller must call Unsubscribe when done.
func (b *Broadcaster) Subscribe() chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	delete(b.subscribers, ch)
	close(ch)
	b.mu.Unlock()
}

// Publish sends an event to all subscribers. Non-blocking: drops events
// for slow consumers.
func (b *Broadcaster) Publish(event Event) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			// Drop event for slow consumer
		}
	}
	metrics.RecordEventPublished(event.Type)
}

// Count returns the current number of subscribers.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// MarshalEvent serializes an event to JSON.
func MarshalEvent(e Event) ([]byte, error) {
	return json.Marshal(e)
}
