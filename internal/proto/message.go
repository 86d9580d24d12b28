package proto

import "github.com/qazaqedu/iquiz-server/internal/core"

// Inbound is the envelope for messages coming from a room connection. The
// only recognized inbound type today is the keepalive ping; anything else is
// ignored by the server.
type Inbound struct {
	Type string `json:"type"`
}

const (
	InboundTypePing = "ping"

	OutboundTypePong          = "pong"
	OutboundTypeSnapshot      = "snapshot"
	OutboundTypePlayerJoined  = "player_joined"
	OutboundTypeStatusChanged = "status_changed"
	OutboundTypeConnected     = "connected"
)

// PlayerPayload is a player as sent over the wire.
type PlayerPayload struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// FromPlayer converts the domain player to its wire shape.
func FromPlayer(p core.Player) PlayerPayload {
	return PlayerPayload{ID: p.ID, Name: p.Name, Avatar: p.Avatar}
}

// FromPlayers converts a player sequence, never returning nil so the JSON
// encoding is always an array.
func FromPlayers(players []core.Player) []PlayerPayload {
	out := make([]PlayerPayload, 0, len(players))
	for _, p := range players {
		out = append(out, FromPlayer(p))
	}
	return out
}

// Pong answers an inbound ping.
type Pong struct {
	Type string `json:"type"`
}

// NewPong builds the keepalive reply.
func NewPong() Pong {
	return Pong{Type: OutboundTypePong}
}

// Snapshot carries the full player list of a room. Clients replace their
// local list wholesale when they see a players array.
type Snapshot struct {
	Type    string          `json:"type"`
	RoomID  string          `json:"roomId"`
	Players []PlayerPayload `json:"players"`
}

// NewSnapshot builds a snapshot from room state.
func NewSnapshot(state core.RoomState) Snapshot {
	return Snapshot{
		Type:    OutboundTypeSnapshot,
		RoomID:  state.RoomID,
		Players: FromPlayers(state.Players),
	}
}

// PlayerJoined is the incremental membership event. The top-level Name and
// Avatar duplicate the Player fields for older clients that predate the
// embedded player object; the id inside Player is always server-assigned.
type PlayerJoined struct {
	Type   string        `json:"type"`
	Player PlayerPayload `json:"player"`
	Name   string        `json:"name"`
	Avatar string        `json:"avatar"`
}

// NewPlayerJoined builds the join event for a player.
func NewPlayerJoined(p core.Player) PlayerJoined {
	return PlayerJoined{
		Type:   OutboundTypePlayerJoined,
		Player: FromPlayer(p),
		Name:   p.Name,
		Avatar: p.Avatar,
	}
}

// StatusChanged announces a room lifecycle transition to every subscriber.
type StatusChanged struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	Status string `json:"status"`
}

// NewStatusChanged builds the transition event.
func NewStatusChanged(roomID string, status core.Status) StatusChanged {
	return StatusChanged{
		Type:   OutboundTypeStatusChanged,
		RoomID: roomID,
		Status: string(status),
	}
}

// Connected is sent to a room when a new connection attaches, carrying the
// current player count.
type Connected struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// NewConnected builds the attach notice.
func NewConnected(count int) Connected {
	return Connected{Type: OutboundTypeConnected, Count: count}
}
