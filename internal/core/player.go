package core

import "time"

// Player is a participant in a quiz room. The ID is always assigned by the
// server at join time; clients never invent identity for another player.
type Player struct {
	ID       string
	Name     string
	Avatar   string
	JoinedAt time.Time
}

// RoomState is an immutable copy of a room's observable state, safe to hand
// out across goroutines.
type RoomState struct {
	RoomID     string
	HostName   string
	HostAvatar string
	Status     Status
	Players    []Player
}
