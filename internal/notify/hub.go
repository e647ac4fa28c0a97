// Package notify fans engine events out to interested subscribers: global
// topics plus per-vehicle rooms, mirroring the original deployment's
// broadcast channels and vehicle_{id} rooms.
package notify

import (
	"log"
	"sync"
	"sync/atomic"

	"anpr-engine/internal/models"
)

// Topic names a global broadcast channel.
type Topic string

const (
	// TopicSightings carries every classified sighting.
	TopicSightings Topic = "sightings"
	// TopicAlerts carries blacklist and checkpoint-avoidance alerts.
	TopicAlerts Topic = "alerts"
	// TopicRefData carries reference-data-changed signals.
	TopicRefData Topic = "refdata"
)

// DefaultBufferSize is the per-subscriber channel buffer.
const DefaultBufferSize = 64

// Subscription is one subscriber's bounded event feed. Events arrive in
// publish order; when the buffer is full, new events are dropped for this
// subscriber only.
type Subscription struct {
	C      <-chan models.Event
	cancel func()
	once   sync.Once
}

// Close detaches the subscription from the hub.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
}

// Hub routes events to subscribers. Publishing never blocks: delivery is
// best-effort per subscriber.
type Hub struct {
	mu       sync.Mutex
	nextID   uint64
	topics   map[Topic]map[uint64]chan models.Event
	vehicles map[int64]map[uint64]chan models.Event
	buffer   int
	dropped  atomic.Uint64
}

// NewHub creates a Hub with the given per-subscriber buffer size; sizes
// below 1 fall back to DefaultBufferSize.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = DefaultBufferSize
	}
	return &Hub{
		topics:   make(map[Topic]map[uint64]chan models.Event),
		vehicles: make(map[int64]map[uint64]chan models.Event),
		buffer:   buffer,
	}
}

// Subscribe attaches a subscriber to a global topic.
func (h *Hub) Subscribe(topic Topic) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.topics[topic] == nil {
		h.topics[topic] = make(map[uint64]chan models.Event)
	}
	id := h.nextID
	h.nextID++
	ch := make(chan models.Event, h.buffer)
	h.topics[topic][id] = ch

	return &Subscription{C: ch, cancel: func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.topics[topic], id)
	}}
}

// SubscribeVehicle attaches a subscriber to one vehicle's room.
func (h *Hub) SubscribeVehicle(vehicleID int64) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.vehicles[vehicleID] == nil {
		h.vehicles[vehicleID] = make(map[uint64]chan models.Event)
	}
	id := h.nextID
	h.nextID++
	ch := make(chan models.Event, h.buffer)
	h.vehicles[vehicleID][id] = ch

	return &Subscription{C: ch, cancel: func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.vehicles[vehicleID], id)
	}}
}

// Publish delivers an event to every subscriber of a global topic.
func (h *Hub) Publish(topic Topic, ev models.Event) {
	h.mu.Lock()
	subs := make([]chan models.Event, 0, len(h.topics[topic]))
	for _, ch := range h.topics[topic] {
		subs = append(subs, ch)
	}
	h.mu.Unlock()

	for _, ch := range subs {
		h.deliver(ch, ev)
	}
}

// PublishVehicle delivers an event to one vehicle's room.
func (h *Hub) PublishVehicle(vehicleID int64, ev models.Event) {
	h.mu.Lock()
	subs := make([]chan models.Event, 0, len(h.vehicles[vehicleID]))
	for _, ch := range h.vehicles[vehicleID] {
		subs = append(subs, ch)
	}
	h.mu.Unlock()

	for _, ch := range subs {
		h.deliver(ch, ev)
	}
}

// Broadcast delivers an event to every subscriber on every topic and room.
// Used for reference-data-changed so all observers know to refresh.
func (h *Hub) Broadcast(ev models.Event) {
	h.mu.Lock()
	var subs []chan models.Event
	for _, topic := range h.topics {
		for _, ch := range topic {
			subs = append(subs, ch)
		}
	}
	for _, room := range h.vehicles {
		for _, ch := range room {
			subs = append(subs, ch)
		}
	}
	h.mu.Unlock()

	for _, ch := range subs {
		h.deliver(ch, ev)
	}
}

// Dropped returns how many deliveries were dropped on full buffers.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

func (h *Hub) deliver(ch chan models.Event, ev models.Event) {
	select {
	case ch <- ev:
	default:
		h.dropped.Add(1)
		log.Printf("Hub: subscriber buffer full, dropping %s event", ev.Kind)
	}
}
