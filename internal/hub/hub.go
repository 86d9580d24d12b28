// Package hub fans out room events to live WebSocket connections. The hub
// owns the outbound side of every connection; transport code drains a
// subscriber's channel and writes frames, nothing else touches the stream.
package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultSendBuffer is the per-subscriber outbound queue depth used when the
// configured value is out of range.
const DefaultSendBuffer = 16

// Subscriber is one live connection's view of a room. Events arrive on the
// buffered channel returned by Events; when the hub drops or evicts the
// subscriber, Done is closed.
type Subscriber struct {
	roomID string

	events chan []byte
	done   chan struct{}
	once   sync.Once

	mu       sync.Mutex
	lastSeen time.Time
}

// RoomID reports which room this subscriber belongs to.
func (s *Subscriber) RoomID() string { return s.roomID }

// Events is the outbound frame queue drained by the connection write loop.
func (s *Subscriber) Events() <-chan []byte { return s.events }

// Done is closed when the subscriber is removed from the hub.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// Touch records inbound traffic for idle eviction.
func (s *Subscriber) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Subscriber) seen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Deliver queues a frame for this subscriber only. Returns false when the
// queue is full or the subscriber is already closed.
func (s *Subscriber) Deliver(frame []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- frame:
		return true
	default:
		return false
	}
}

func (s *Subscriber) close() {
	s.once.Do(func() { close(s.done) })
}

// Hub maintains the set of live subscribers per room and delivers events to
// them. Membership in the hub is a transport concern only: dropping a
// connection never touches the room's player list.
type Hub struct {
	sendBuffer int
	log        *zerolog.Logger

	mu    sync.RWMutex
	rooms map[string]map[*Subscriber]struct{}
}

// New constructs an empty hub.
func New(sendBuffer int, logger *zerolog.Logger) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}
	return &Hub{
		sendBuffer: sendBuffer,
		log:        logger,
		rooms:      make(map[string]map[*Subscriber]struct{}),
	}
}

// Subscribe registers a new connection for a room and returns its
// subscriber handle.
func (h *Hub) Subscribe(roomID string) *Subscriber {
	sub := &Subscriber{
		roomID:   roomID,
		events:   make(chan []byte, h.sendBuffer),
		done:     make(chan struct{}),
		lastSeen: time.Now(),
	}

	h.mu.Lock()
	set, ok := h.rooms[roomID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.rooms[roomID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	h.log.Debug().Str("room_id", roomID).Msg("subscriber attached")
	return sub
}

// Unsubscribe removes a connection from its room. Safe to call more than
// once.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	h.removeLocked(sub)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(sub *Subscriber) {
	set, ok := h.rooms[sub.roomID]
	if !ok {
		sub.close()
		return
	}
	if _, present := set[sub]; present {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.rooms, sub.roomID)
		}
	}
	sub.close()
}

// Broadcast marshals the payload once and queues it for every subscriber of
// the room. A subscriber whose queue is full is dropped from the room: the
// hub never retries delivery, and a disconnected client recovers by
// re-fetching full state after reconnecting.
func (h *Hub) Broadcast(roomID string, payload any) {
	frame, err := json.Marshal(payload)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", roomID).Msg("marshal broadcast payload")
		return
	}

	h.mu.RLock()
	set := h.rooms[roomID]
	subs := make([]*Subscriber, 0, len(set))
	for sub := range set {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	var stale []*Subscriber
	for _, sub := range subs {
		if !sub.Deliver(frame) {
			stale = append(stale, sub)
		}
	}

	if len(stale) == 0 {
		return
	}
	h.mu.Lock()
	for _, sub := range stale {
		h.removeLocked(sub)
	}
	h.mu.Unlock()
	h.log.Warn().Str("room_id", roomID).Int("dropped", len(stale)).Msg("dropped slow subscribers")
}

// Subscribers reports the number of live connections for a room.
func (h *Hub) Subscribers(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// EvictIdle drops subscribers with no inbound traffic for at least the given
// duration, returning how many were removed. Abandoned clients that stop
// pinging get cleaned up here instead of holding resources forever.
func (h *Hub) EvictIdle(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)

	h.mu.Lock()
	defer h.mu.Unlock()

	var evicted int
	for roomID, set := range h.rooms {
		for sub := range set {
			if sub.seen().Before(cutoff) {
				h.removeLocked(sub)
				evicted++
				h.log.Info().Str("room_id", roomID).Msg("evicted idle subscriber")
			}
		}
	}
	return evicted
}
