// Package service implements the room lifecycle: create, join, state query
// and start. It is the only writer to the registry; the broadcast hub learns
// about every accepted mutation from here.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/qazaqedu/iquiz-server/internal/auth"
	"github.com/qazaqedu/iquiz-server/internal/core"
	"github.com/qazaqedu/iquiz-server/internal/proto"
	"github.com/qazaqedu/iquiz-server/internal/store"
)

// Broadcaster delivers an event to every live connection of a room.
// Delivery is best-effort: a dead subscriber never fails the caller.
type Broadcaster interface {
	Broadcast(roomID string, payload any)
}

// Service is the HTTP-facing room lifecycle.
type Service struct {
	registry    *core.Registry
	broadcaster Broadcaster
	archive     store.Archive
	tokens      *auth.TokenConfig
	log         *zerolog.Logger
}

// New constructs the lifecycle service.
func New(registry *core.Registry, broadcaster Broadcaster, archive store.Archive, tokens *auth.TokenConfig, logger *zerolog.Logger) *Service {
	return &Service{
		registry:    registry,
		broadcaster: broadcaster,
		archive:     archive,
		tokens:      tokens,
		log:         logger,
	}
}

// CreatedRoom is returned to the host after room creation.
type CreatedRoom struct {
	RoomID    string
	HostToken string
	Players   []core.Player
}

// JoinedPlayer is the identity handed back to a joining player.
type JoinedPlayer struct {
	PlayerID string
	RoomID   string
	Name     string
	Avatar   string
}

// StateView is the soft-fail state query result. Unknown rooms come back
// with Exists false and an empty player list instead of an error, so clients
// can render an empty room rather than crash.
type StateView struct {
	Exists  bool
	RoomID  string
	Status  core.Status
	Players []core.Player
}

// CreateRoom registers a new empty room and mints the host token that
// authorizes starting it. No broadcast: there are no subscribers yet.
func (s *Service) CreateRoom(ctx context.Context, hostName, hostAvatar string) (CreatedRoom, error) {
	room, err := s.registry.Create(strings.TrimSpace(hostName), strings.TrimSpace(hostAvatar))
	if err != nil {
		return CreatedRoom{}, err
	}

	token, err := auth.MintHostToken(s.tokens, room.ID)
	if err != nil {
		s.registry.Remove(room.ID)
		return CreatedRoom{}, err
	}

	if err := s.archive.RecordRoom(ctx, room.ID, room.HostName); err != nil {
		s.log.Warn().Err(err).Str("room_id", room.ID).Msg("archive room failed")
	}

	s.log.Info().Str("room_id", room.ID).Str("host_name", room.HostName).Msg("room created")
	return CreatedRoom{RoomID: room.ID, HostToken: token, Players: []core.Player{}}, nil
}

// JoinRoom validates the request, assigns a server-side player identity,
// appends the player and notifies the room. The broadcast can never delay or
// fail the join itself.
func (s *Service) JoinRoom(ctx context.Context, roomCode, name, avatar string) (JoinedPlayer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return JoinedPlayer{}, core.ErrInvalidName
	}

	player := core.Player{
		ID:       uuid.NewString(),
		Name:     name,
		Avatar:   strings.TrimSpace(avatar),
		JoinedAt: time.Now(),
	}

	// The broadcast fires inside the room's critical section so two racing
	// joins cannot emit their deltas in the opposite order from the roster.
	// Hub delivery is non-blocking, so a slow peer never extends the lock.
	state, err := s.registry.AppendPlayer(roomCode, player, func(st core.RoomState) {
		s.broadcaster.Broadcast(st.RoomID, proto.NewPlayerJoined(player))
	})
	if err != nil {
		return JoinedPlayer{}, err
	}

	if err := s.archive.RecordJoin(ctx, state.RoomID, player.ID, player.Name); err != nil {
		s.log.Warn().Err(err).Str("room_id", state.RoomID).Msg("archive join failed")
	}

	s.log.Info().
		Str("room_id", state.RoomID).
		Str("player_id", player.ID).
		Str("name", player.Name).
		Int("players", len(state.Players)).
		Msg("player joined")

	return JoinedPlayer{
		PlayerID: player.ID,
		RoomID:   state.RoomID,
		Name:     player.Name,
		Avatar:   player.Avatar,
	}, nil
}

// RoomState is a pure read used by clients to bootstrap before the stream
// delivers deltas.
func (s *Service) RoomState(_ context.Context, roomID string) StateView {
	state, err := s.registry.Snapshot(roomID)
	if err != nil {
		return StateView{Exists: false, Players: []core.Player{}}
	}
	return StateView{
		Exists:  true,
		RoomID:  state.RoomID,
		Status:  state.Status,
		Players: state.Players,
	}
}

// RoomStateSync is RoomState with a delivery hook: deliver runs with the
// view while the room's event order is pinned, so a snapshot queued for a
// new subscriber cannot be overtaken by a concurrent join's delta. deliver
// must not call back into the service. Unknown rooms soft-fail like
// RoomState and never invoke deliver.
func (s *Service) RoomStateSync(roomID string, deliver func(StateView)) StateView {
	state, err := s.registry.SnapshotSync(roomID, func(st core.RoomState) {
		deliver(StateView{Exists: true, RoomID: st.RoomID, Status: st.Status, Players: st.Players})
	})
	if err != nil {
		return StateView{Exists: false, Players: []core.Player{}}
	}
	return StateView{
		Exists:  true,
		RoomID:  state.RoomID,
		Status:  state.Status,
		Players: state.Players,
	}
}

// StartRoom transitions the room to started and tells every subscriber.
// Authorization (host token scope) is checked by the transport layer.
func (s *Service) StartRoom(ctx context.Context, roomID string) (StateView, error) {
	state, err := s.registry.Start(roomID, func(st core.RoomState) {
		s.broadcaster.Broadcast(st.RoomID, proto.NewStatusChanged(st.RoomID, st.Status))
	})
	if err != nil {
		return StateView{}, err
	}

	if err := s.archive.RecordStart(ctx, state.RoomID); err != nil {
		s.log.Warn().Err(err).Str("room_id", state.RoomID).Msg("archive start failed")
	}

	s.log.Info().Str("room_id", state.RoomID).Msg("room started")
	return StateView{Exists: true, RoomID: state.RoomID, Status: state.Status, Players: state.Players}, nil
}

// History returns recently archived rooms.
func (s *Service) History(ctx context.Context, limit int) ([]store.RoomRecord, error) {
	return s.archive.ListRecentRooms(ctx, limit)
}
