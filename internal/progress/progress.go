// Package progress fans progress events out to subscribers of an
// in-flight investigation. Adapted from the teacher's websocket hub
// (internal/websocket/hub.go): a register/unregister/broadcast select
// loop with full-channel handling, generalized from "one client" to
// "bounded per-investigation subscriber set with best-effort delivery."
package progress

import (
	"sync"

	"github.com/osint-pipeline/investigator/internal/models"
)

// channelCapacity bounds each subscriber's event queue; a slow or
// disconnected subscriber falls behind rather than blocking the
// investigation pipeline.
const channelCapacity = 64

// investigationFeed is one investigation's subscriber set and delivery
// bookkeeping.
type investigationFeed struct {
	mu          sync.Mutex
	subscribers map[int]chan models.ProgressEvent
	nextID      int
	lastEvent   *models.ProgressEvent
	dropped     int
}

// Hub is the process-wide progress fan-out.
type Hub struct {
	mu    sync.Mutex
	feeds map[string]*investigationFeed // investigationID -> feed
}

// NewHub builds an empty Hub.
func NewHub() *Hub {
	return &Hub{feeds: make(map[string]*investigationFeed)}
}

func (h *Hub) feedFor(investigationID string) *investigationFeed {
	h.mu.Lock()
	defer h.mu.Unlock()

	f, ok := h.feeds[investigationID]
	if !ok {
		f = &investigationFeed{subscribers: make(map[int]chan models.ProgressEvent)}
		h.feeds[investigationID] = f
	}
	return f
}

// Subscription is a live handle on one subscriber's event channel.
type Subscription struct {
	Events chan models.ProgressEvent
	hub    *Hub
	invID  string
	id     int
}

// Subscribe registers a new subscriber for an investigation. If the
// investigation already has a known status, that status is delivered
// immediately as the first event so late subscribers aren't left blind.
func (h *Hub) Subscribe(investigationID string) *Subscription {
	f := h.feedFor(investigationID)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	ch := make(chan models.ProgressEvent, channelCapacity)
	f.subscribers[id] = ch
	last := f.lastEvent
	f.mu.Unlock()

	if last != nil {
		select {
		case ch <- *last:
		default:
		}
	}

	return &Subscription{Events: ch, hub: h, invID: investigationID, id: id}
}

// Unsubscribe removes the subscription and closes its channel.
func (s *Subscription) Unsubscribe() {
	f := s.hub.feedFor(s.invID)
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.subscribers[s.id]; ok {
		close(ch)
		delete(f.subscribers, s.id)
	}
}

// Publish delivers an event to every current subscriber of its
// investigation, best-effort. Non-critical events are dropped (and
// counted) when a subscriber's queue is full; critical events displace
// the oldest queued event to make room before being dropped.
func (h *Hub) Publish(event models.ProgressEvent) {
	f := h.feedFor(event.InvestigationID)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastEvent = &event

	for _, ch := range f.subscribers {
		select {
		case ch <- event:
			continue
		default:
		}

		if !event.Critical {
			f.dropped++
			continue
		}

		select {
		case <-ch:
		default:
		}
		select {
		case ch <- event:
		default:
			f.dropped++
		}
	}
}

// Dropped returns the number of non-delivered events for an
// investigation, for telemetry.
func (h *Hub) Dropped(investigationID string) int {
	f := h.feedFor(investigationID)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}

// Close tears down an investigation's feed, closing every subscriber
// channel. Called once an investigation reaches a terminal status.
func (h *Hub) Close(investigationID string) {
	h.mu.Lock()
	f, ok := h.feeds[investigationID]
	if ok {
		delete(h.feeds, investigationID)
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, ch := range f.subscribers {
		close(ch)
		delete(f.subscribers, id)
	}
}
