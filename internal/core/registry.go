package core

import (
	"fmt"
	"strings"
	"sync"
)

// maxCodeAttempts bounds collision retries during room creation. With a
// 6-digit code space this is only reachable when the registry is nearly full.
const maxCodeAttempts = 32

// Registry holds every live room in memory, keyed by room code. It is an
// injectable store: each server (and each test) owns its own instance, and
// the registry lives exactly as long as the process.
type Registry struct {
	codeLength int

	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewRegistry constructs an empty registry generating codes of the given
// length.
func NewRegistry(codeLength int) *Registry {
	if codeLength <= 0 {
		codeLength = DefaultCodeLength
	}
	return &Registry{
		codeLength: codeLength,
		rooms:      make(map[string]*Room),
	}
}

// Create generates a fresh unique room code, stores an empty room and
// returns it.
func (r *Registry) Create(hostName, hostAvatar string) (*Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := GenerateCode(r.codeLength)
		if err != nil {
			return nil, fmt.Errorf("generate room code: %w", err)
		}
		if _, taken := r.rooms[code]; taken {
			continue
		}
		room := NewRoom(code, hostName, hostAvatar)
		r.rooms[code] = room
		return room, nil
	}
	return nil, fmt.Errorf("room code space exhausted after %d attempts", maxCodeAttempts)
}

// Get looks up a live room by code.
func (r *Registry) Get(code string) (*Room, error) {
	code = NormalizeCode(code)
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// AppendPlayer atomically appends a player to the room's sequence and
// returns the updated state. notify follows the Room.AppendPlayer contract.
func (r *Registry) AppendPlayer(code string, p Player, notify func(RoomState)) (RoomState, error) {
	room, err := r.Get(code)
	if err != nil {
		return RoomState{}, err
	}
	return room.AppendPlayer(p, notify)
}

// Snapshot returns a copy of the room's current state.
func (r *Registry) Snapshot(code string) (RoomState, error) {
	room, err := r.Get(code)
	if err != nil {
		return RoomState{}, err
	}
	return room.State(), nil
}

// SnapshotSync returns a copy of the room's current state after running fn
// with it under the room lock. See Room.StateSync.
func (r *Registry) SnapshotSync(code string, fn func(RoomState)) (RoomState, error) {
	room, err := r.Get(code)
	if err != nil {
		return RoomState{}, err
	}
	return room.StateSync(fn), nil
}

// Start transitions a room from waiting to started. notify follows the
// Room.Start contract.
func (r *Registry) Start(code string, notify func(RoomState)) (RoomState, error) {
	room, err := r.Get(code)
	if err != nil {
		return RoomState{}, err
	}
	return room.Start(notify)
}

// Remove drops a room from the registry. Missing rooms are a no-op.
func (r *Registry) Remove(code string) {
	code = NormalizeCode(code)
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, code)
}

// Len reports the number of live rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// NormalizeCode canonicalizes a client-supplied room code.
func NormalizeCode(code string) string {
	return strings.TrimSpace(code)
}
