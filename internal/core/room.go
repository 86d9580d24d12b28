package core

import (
	"sync"
	"time"
)

// Status is the lifecycle phase of a room.
type Status string

const (
	// StatusWaiting means the room accepts joins and players sit in the
	// waiting screen.
	StatusWaiting Status = "waiting"
	// StatusStarted means the host has started the quiz; late joins are
	// refused.
	StatusStarted Status = "started"
)

// Room holds one live quiz room. All mutation goes through methods that hold
// the room mutex, so two simultaneous joins are both retained and the player
// sequence preserves join order.
type Room struct {
	ID         string
	HostName   string
	HostAvatar string
	CreatedAt  time.Time

	mu      sync.Mutex
	status  Status
	players []Player
}

// NewRoom constructs a waiting room with no players.
func NewRoom(id, hostName, hostAvatar string) *Room {
	return &Room{
		ID:         id,
		HostName:   hostName,
		HostAvatar: hostAvatar,
		CreatedAt:  time.Now(),
		status:     StatusWaiting,
	}
}

// AppendPlayer atomically appends a player and returns the updated state.
// Joins after the quiz has started are refused with ErrRoomStarted.
//
// A non-nil notify runs with the updated state while the room lock is still
// held, so notifications for one room fire in exactly the order their
// mutations were accepted. notify must not call back into the room.
func (r *Room) AppendPlayer(p Player, notify func(RoomState)) (RoomState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != StatusWaiting {
		return RoomState{}, ErrRoomStarted
	}
	r.players = append(r.players, p)
	state := r.stateLocked()
	if notify != nil {
		notify(state)
	}
	return state, nil
}

// Start transitions the room to the started status. Calling it twice
// returns ErrRoomStarted. notify follows the AppendPlayer contract.
func (r *Room) Start(notify func(RoomState)) (RoomState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == StatusStarted {
		return RoomState{}, ErrRoomStarted
	}
	r.status = StatusStarted
	state := r.stateLocked()
	if notify != nil {
		notify(state)
	}
	return state, nil
}

// State returns a copy of the room's current state.
func (r *Room) State() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

// StateSync returns a copy of the current state after running fn with it
// under the room lock, so whatever fn queues cannot be overtaken by a
// concurrent mutation's notification. fn must not call back into the room.
func (r *Room) StateSync(fn func(RoomState)) RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	state := r.stateLocked()
	if fn != nil {
		fn(state)
	}
	return state
}

func (r *Room) stateLocked() RoomState {
	players := make([]Player, len(r.players))
	copy(players, r.players)
	return RoomState{
		RoomID:     r.ID,
		HostName:   r.HostName,
		HostAvatar: r.HostAvatar,
		Status:     r.status,
		Players:    players,
	}
}
