// Package store defines the archive: an append-only record of rooms and
// joins used for history queries. Live room state never depends on it; every
// write is best-effort and a failed archive write must not fail the request
// that triggered it.
package store

import (
	"context"
	"time"
)

// RoomRecord is an archived room with aggregate join information.
type RoomRecord struct {
	ID        int64
	RoomID    string
	HostName  string
	CreatedAt time.Time
	StartedAt *time.Time
	JoinCount int
}

// JoinRecord is one archived join.
type JoinRecord struct {
	ID       int64
	RoomID   string
	PlayerID string
	Name     string
	JoinedAt time.Time
}

// Archive persists room lifecycle history.
type Archive interface {
	// RecordRoom archives a newly created room.
	RecordRoom(ctx context.Context, roomID, hostName string) error

	// RecordJoin archives an accepted join.
	RecordJoin(ctx context.Context, roomID, playerID, name string) error

	// RecordStart stamps the room's start time.
	RecordStart(ctx context.Context, roomID string) error

	// ListRecentRooms returns the most recently created rooms, newest first.
	ListRecentRooms(ctx context.Context, limit int) ([]RoomRecord, error)

	// ListJoins returns the joins for one room in join order.
	ListJoins(ctx context.Context, roomID string) ([]JoinRecord, error)

	// Close releases the underlying storage.
	Close() error
}

// NopArchive discards every write. Used in tests and when the archive is
// disabled by configuration.
type NopArchive struct{}

func (NopArchive) RecordRoom(context.Context, string, string) error          { return nil }
func (NopArchive) RecordJoin(context.Context, string, string, string) error { return nil }
func (NopArchive) RecordStart(context.Context, string) error                 { return nil }
func (NopArchive) ListRecentRooms(context.Context, int) ([]RoomRecord, error) {
	return []RoomRecord{}, nil
}
func (NopArchive) ListJoins(context.Context, string) ([]JoinRecord, error) {
	return []JoinRecord{}, nil
}
func (NopArchive) Close() error { return nil }
